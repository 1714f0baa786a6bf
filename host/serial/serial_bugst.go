package serial

import (
	"fmt"
	"sort"
	"time"

	"go.bug.st/serial"
)

// BugstPort wraps the go.bug.st/serial implementation
type BugstPort struct {
	port serial.Port
	mode serial.Mode
	cfg  *Config
}

func bugstMode(cfg *Config) serial.Mode {
	mode := serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch cfg.Parity {
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	}
	if cfg.StopBits == TwoStopBits {
		mode.StopBits = serial.TwoStopBits
	}
	return mode
}

func openBugst(cfg *Config) (Port, error) {
	mode := bugstMode(cfg)
	port, err := serial.Open(cfg.Device, &mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(time.Duration(cfg.ReadTimeout) * time.Millisecond); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
	}

	return &BugstPort{
		port: port,
		mode: mode,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial port
func (p *BugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *BugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *BugstPort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush drops pending input
func (p *BugstPort) Flush() error {
	return p.port.ResetInputBuffer()
}

// SetBaud reprograms the line speed in place
func (p *BugstPort) SetBaud(baud int) error {
	// Let the last byte leave the UART before the clock changes
	if err := p.port.Drain(); err != nil {
		return fmt.Errorf("failed to drain %s: %w", p.cfg.Device, err)
	}
	mode := p.mode
	mode.BaudRate = baud
	if err := p.port.SetMode(&mode); err != nil {
		return fmt.Errorf("failed to set %d baud on %s: %w", baud, p.cfg.Device, err)
	}
	p.mode = mode
	return nil
}

// ListPorts returns the available serial ports, sorted by name
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// DefaultDevice returns the first available serial port
func DefaultDevice() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoPorts
	}
	return ports[0], nil
}
