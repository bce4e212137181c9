package hba

import (
	"fmt"

	"github.com/golang/glog"
)

// Core is the bus address of a peripheral and the transport reaching it.
type Core struct {
	ID     byte
	Parent int

	sender Sender
}

// NewCore resolves the sender of the parent slot once. The returned Core
// keeps it for its lifetime.
func NewCore(reg *Registry, parent int, id byte) (*Core, error) {
	if id > MaxCoreID {
		return nil, fmt.Errorf("core id %d out of range", id)
	}
	sender, err := reg.Sender(parent)
	if err != nil {
		return nil, err
	}
	return &Core{ID: id, Parent: parent, sender: sender}, nil
}

// Sender returns the transport of the core.
func (c *Core) Sender() Sender {
	return c.sender
}

// WriteReg writes vals into consecutive registers starting at reg.
func (c *Core) WriteReg(reg byte, vals ...byte) error {
	pkt := WritePacket(c.ID, reg, vals...)
	resp, err := c.sender.SendRecv(pkt)
	if err != nil {
		return err
	}
	if glog.V(4) {
		glog.Infof("core %d: write % x -> % x", c.ID, pkt, resp)
	}
	return CheckAck(resp)
}

// ReadRegs reads count consecutive registers starting at reg.
func (c *Core) ReadRegs(reg byte, count int) ([]byte, error) {
	pkt := ReadPacket(c.ID, reg, count)
	resp, err := c.sender.SendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if glog.V(4) {
		glog.Infof("core %d: read % x -> % x", c.ID, pkt, resp)
	}
	return ReadData(resp, count)
}

// ReplyFunc writes a failure message about rsc into buf.
type ReplyFunc func(buf []byte, rsc *Resource) int

// SetReg serves a set request on an 8-bit register backed by cache.
//
// The cache takes the new value before the write is sent and keeps it when
// the FPGA does not acknowledge, so a failed write leaves the cache ahead of
// the hardware. Whether callers rely on this is unverified; it is kept as is.
func (c *Core) SetReg(buf []byte, rsc *Resource, val string, cache *byte, reg byte, onFail ReplyFunc) int {
	v, err := ParseValue(val)
	if err != nil {
		return ReplyBadValue(buf, rsc)
	}
	*cache = v
	if err = c.WriteReg(reg, v); err != nil {
		glog.Errorf("core %d: write %s: %v", c.ID, rsc.Name, err)
		return onFail(buf, rsc)
	}
	return 0
}
