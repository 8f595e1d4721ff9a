package feetech

import (
	"io"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"go.bug.st/serial"
)

// Porter is the minimal surface the bus needs from a serial port.
type Porter interface {
	io.ReadWriter
	io.Closer
	SetReadTimeout(t time.Duration) error
}

// DialFunc opens the transport for a bus. The default dials a real
// serial port; tests substitute an in-memory port.
type DialFunc func(path string) (Porter, error)

func dialSerial(path string) (Porter, error) {
	mode := &serial.Mode{
		BaudRate: defaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("failed to open serial port " + path).
			WithCause(err)
	}
	return port, nil
}
