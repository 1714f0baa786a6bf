//go:build !tinygo

package core

import "upditerm/protocol"

// hardware is the simulated data space used off-target
var hardware = protocol.NewMemory()

// HardwareRegisters returns the register file backing the virtual UART
// (regular Go implementation: a process-wide simulated data space)
func HardwareRegisters() protocol.RegisterFile {
	return hardware
}

// SimulatedMemory exposes the simulated data space so a host-side probe
// can attach to it
func SimulatedMemory() *protocol.Memory {
	return hardware
}
