package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// TarmPort wraps the tarm/serial implementation
type TarmPort struct {
	port *serial.Port
	cfg  serial.Config
}

func tarmConfig(cfg *Config) serial.Config {
	c := serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	switch cfg.Parity {
	case ParityEven:
		c.Parity = serial.ParityEven
	case ParityOdd:
		c.Parity = serial.ParityOdd
	}
	if cfg.StopBits == TwoStopBits {
		c.StopBits = serial.Stop2
	}
	return c
}

func openTarm(cfg *Config) (Port, error) {
	c := tarmConfig(cfg)
	port, err := serial.OpenPort(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &TarmPort{
		port: port,
		cfg:  c,
	}, nil
}

// Read reads data from the serial port
func (p *TarmPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *TarmPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *TarmPort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards data written but not transmitted, and data received but not read
func (p *TarmPort) Flush() error {
	return p.port.Flush()
}

// SetBaud reopens the port at the new speed.
// tarm/serial has no way to change the mode of an open port.
func (p *TarmPort) SetBaud(baud int) error {
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", p.cfg.Name, err)
	}
	c := p.cfg
	c.Baud = baud
	port, err := serial.OpenPort(&c)
	if err != nil {
		p.port = nil
		return fmt.Errorf("failed to reopen %s at %d baud: %w", c.Name, baud, err)
	}
	p.port = port
	p.cfg = c
	return nil
}
