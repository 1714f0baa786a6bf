package serial

import (
	"errors"
	"io"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported Config.Backend
	ErrUnknownBackend = errors.New("unknown serial backend")
	// ErrNoPorts is returned by DefaultDevice when no serial port exists
	ErrNoPorts = errors.New("no serial ports found")
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - go.bug.st/serial (default)
// - github.com/tarm/serial
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards any received but unread data
	Flush() error

	// SetBaud changes the line speed, keeping the other settings
	SetBaud(baud int) error
}

// Parity selects the parity bit
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// StopBits selects the number of stop bits
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

// Backend names a serial driver library
type Backend string

const (
	BackendBugst Backend = "bugst"
	BackendTarm  Backend = "tarm"
)

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate
	Baud int

	Parity   Parity
	StopBits StopBits

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int

	// Backend selects the driver library (default bugst)
	Backend Backend
}

// DefaultConfig returns an 8N1 configuration with a one second read timeout
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		Parity:      ParityNone,
		StopBits:    OneStopBit,
		ReadTimeout: 1000,
		Backend:     BackendBugst,
	}
}

// Open opens a serial port with the configured backend
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	switch cfg.Backend {
	case "", BackendBugst:
		return openBugst(cfg)
	case BackendTarm:
		return openTarm(cfg)
	}
	return nil, ErrUnknownBackend
}
