//go:build tinygo

package core

import (
	"runtime/volatile"
	"unsafe"

	"upditerm/protocol"
)

// ioSpace maps data-space addresses onto volatile registers
type ioSpace struct{}

func (ioSpace) Register(addr uint16) protocol.Register {
	return (*volatile.Register8)(unsafe.Pointer(uintptr(addr)))
}

// HardwareRegisters returns the register file backing the virtual UART
func HardwareRegisters() protocol.RegisterFile {
	return ioSpace{}
}
