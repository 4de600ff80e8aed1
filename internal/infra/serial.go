package infra

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// SerialOpener returns a function that opens the named port in 8N1 mode at
// baud. The result satisfies hardware.PortOpener.
func SerialOpener(port string, baud int) func() (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return func() (io.ReadCloser, error) {
		p, err := serial.Open(port, mode)
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", port, err)
		}
		return p, nil
	}
}
