package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the link is not synchronized.
	ErrNotReady = errors.New("link not ready")
	// ErrTooLarge indicates a payload exceeds MaxData.
	ErrTooLarge = errors.New("payload too large")
	// ErrNoReply indicates the peer answered a later request first, or did
	// not answer in time.
	ErrNoReply = errors.New("no reply")
)

// DeviceError is returned when the device rejects a request.
type DeviceError struct {
	Code byte
}

// Error implements error.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d", e.Code)
}
