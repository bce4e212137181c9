package link

import (
	"io"
	"time"
)

// Seq is the sequence number of a frame. Valid numbers are 1 to 0xef, the
// rest are reserved for sync bytes.
type Seq byte

// NewSeq picks a random valid sequence number.
func NewSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the sequence number following s.
func (s Seq) Next() Seq {
	if n := byte(s) + 1; n > 0 && n < 0xf0 {
		return Seq(n)
	}
	return 1
}

// IsValid tells whether s can number a frame.
func (s Seq) IsValid() bool {
	return s > 0 && s < 0xf0
}

// Frame codes. The low nibble (and the event bit) are carried on the wire.
const (
	// CodePacket frames a register packet. The reply uses the same code.
	CodePacket byte = 0x02
	// CodeFailure is set in a reply when the device could not process the
	// request.
	CodeFailure byte = 0x01
	// CodeEvent marks a frame sent without a request.
	CodeEvent byte = 0x80
	// CodeInterrupt is the event listing the cores with pending interrupts.
	CodeInterrupt = CodeEvent | 0x02

	codeMask byte = 0x8f
)

// MaxData is the largest payload a frame carries.
const MaxData = 0x7f

// short payloads are encoded in the code byte.
const inlineLen = 7

// Frame is a unit of transfer on the link.
type Frame struct {
	Seq  Seq
	Code byte
	Data []byte
}

// IsEvent tells whether the frame was sent without a request.
func (f *Frame) IsEvent() bool {
	return f.Code&CodeEvent != 0
}

func (f *Frame) header() []byte {
	n := len(f.Data)
	if n < inlineLen {
		return []byte{byte(f.Seq), f.Code&codeMask | byte(n)<<4}
	}
	return []byte{byte(f.Seq), f.Code&codeMask | inlineLen<<4, byte(n)}
}

// Bytes encodes the frame.
func (f *Frame) Bytes() []byte {
	return append(f.header(), f.Data...)
}

// WriteTo implements io.WriterTo.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}
