// Package pb defines the protobuf messages published by the daemon.
package pb

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/hba.go/pkg/hba"
)

// ResourceValue is a broadcast of a resource value.
//
//	message ResourceValue {
//	  string plugin = 1;
//	  string resource = 2;
//	  uint32 value = 3;
//	  string text = 4;
//	  string daemon = 5;
//	  int64 timestamp_us = 6;
//	}
type ResourceValue struct {
	Plugin      string `protobuf:"bytes,1,opt,name=plugin,proto3" json:"plugin,omitempty"`
	Resource    string `protobuf:"bytes,2,opt,name=resource,proto3" json:"resource,omitempty"`
	Value       uint32 `protobuf:"varint,3,opt,name=value,proto3" json:"value,omitempty"`
	Text        string `protobuf:"bytes,4,opt,name=text,proto3" json:"text,omitempty"`
	Daemon      string `protobuf:"bytes,5,opt,name=daemon,proto3" json:"daemon,omitempty"`
	TimestampUs int64  `protobuf:"varint,6,opt,name=timestamp_us,json=timestampUs,proto3" json:"timestamp_us,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *ResourceValue) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ResourceValue) Reset() { *m = ResourceValue{} }

// String implements proto.Message.
func (m *ResourceValue) String() string { return proto.CompactTextString(m) }

// NewResourceValue creates a ResourceValue from the broadcast text of rsc.
// Value is left zero if text is not a hex byte.
func NewResourceValue(rsc *hba.Resource, text []byte) *ResourceValue {
	m := &ResourceValue{
		Resource:    rsc.Name,
		Text:        string(text),
		TimestampUs: time.Now().UnixNano() / int64(time.Microsecond),
	}
	if slot := rsc.Slot(); slot != nil {
		m.Plugin = slot.Name()
	}
	if v, err := hba.ParseValue(string(text)); err == nil {
		m.Value = uint32(v)
	}
	return m
}

// Time returns the timestamp.
func (m *ResourceValue) Time() time.Time {
	return time.Unix(0, m.TimestampUs*int64(time.Microsecond))
}

// Encode encodes the message to bytes.
func (m *ResourceValue) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeResourceValue decodes bytes into ResourceValue.
func DecodeResourceValue(data []byte) (*ResourceValue, error) {
	var m ResourceValue
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
