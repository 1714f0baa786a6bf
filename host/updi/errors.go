package updi

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEcho means the half-duplex line did not return what was sent.
	// Usually a wiring problem or the wrong port.
	ErrNoEcho = errors.New("no echo")
	// ErrShortRead means the target sent fewer bytes than expected
	ErrShortRead = errors.New("short read")
	// ErrNoAck means a store was not acknowledged
	ErrNoAck = errors.New("no ACK")
	// ErrKeyRejected means KEY_STATUS stayed zero after a KEY instruction
	ErrKeyRejected = errors.New("key not accepted")
	// ErrClosed is returned by a link after Close
	ErrClosed = errors.New("link closed")
)

// InstructionError records the failing UPDI instruction
type InstructionError struct {
	Op   string
	Addr uint16
	Err  error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("updi %s 0x%04x: %v", e.Op, e.Addr, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}
