//go:build baremetal

package transports

import (
	"errors"
	"fmt"
	"machine"
	"time"
)

// MCUTransport implements Transport directly on a tinygo machine.UART,
// for running the driver on the microcontroller itself rather than a
// host OS.
type MCUTransport struct {
	*machine.UART
}

// SerialConfig holds configuration for opening a UART port.
type SerialConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
}

var currentTransport MCUTransport

// OpenSerial gets a UART port with the given configuration.
func OpenSerial(cfg SerialConfig) (*MCUTransport, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port path is required")
	}

	if cfg.BaudRate == 0 {
		cfg.BaudRate = 1000000
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	switch cfg.Port {
	case "0":
		currentTransport = MCUTransport{machine.UART0}
	case "1":
		currentTransport = MCUTransport{machine.UART1}
	default:
		return nil, fmt.Errorf("unknown UART %s", cfg.Port)
	}

	currentTransport.SetBaudRate(uint32(cfg.BaudRate))

	return &currentTransport, nil
}

// SetReadTimeout is a no-op on the MCU UART, which has no configurable
// read deadline; callers rely on the bus transactor's own deadline loop.
func (t *MCUTransport) SetReadTimeout(timeout time.Duration) error {
	return nil
}

func (t *MCUTransport) Close() error {
	return nil
}

func (t *MCUTransport) Flush() error {
	return nil
}
