package hba

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAck indicates the FPGA answered a write with something other than ACK.
	ErrNoAck = errors.New("write not acknowledged")
	// ErrBadValue indicates a resource value is not hex or not in [0, 0xff].
	ErrBadValue = errors.New("bad value")
	// ErrNoSlot indicates the parent slot does not exist.
	ErrNoSlot = errors.New("no such slot")
	// ErrNoSender indicates the parent slot cannot send packets.
	ErrNoSender = errors.New("slot has no packet sender")
)

// LengthError reports a response whose byte count does not match the packet.
type LengthError struct {
	Want int
	Got  int
}

// Error implements error.
func (e *LengthError) Error() string {
	return fmt.Sprintf("expect %d bytes in response, got %d", e.Want, e.Got)
}
