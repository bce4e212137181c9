package link

import (
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the FPGA serial line speed.
const DefaultBaud = 115200

// OpenSerial opens the serial device towards the FPGA. Reads return after
// readTimeout without data, set IdleRead on the Link accordingly.
func OpenSerial(device string, baud int, readTimeout time.Duration) (*serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
}

// NewSerialTransport opens device and creates a Transport over it. The port
// is closed by closing the returned port.
func NewSerialTransport(device string, baud int, dispatch func(func())) (*Transport, *serial.Port, error) {
	port, err := OpenSerial(device, baud, DefaultSyncTimeout)
	if err != nil {
		return nil, nil, err
	}
	t := NewTransport(port, device, dispatch)
	t.link.IdleRead = true
	return t, port, nil
}
