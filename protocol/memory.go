package protocol

import (
	"fmt"
	"sync/atomic"
)

// MemorySize is the size of the simulated data space (I/O, SYSCFG and SRAM)
const MemorySize = 0x4000

// Memory is a simulated data space shared by firmware and probe.
// It implements RegisterFile for the firmware and Bus for the probe.
// Each cell is accessed atomically, which models the single-instruction
// bit updates (SBI/CBI) the firmware relies on.
type Memory struct {
	cells [MemorySize]uint32 // atomic uint8 stored as uint32
}

// NewMemory creates a Memory in its power-on reset state
func NewMemory() *Memory {
	return &Memory{}
}

// Reset clears every cell (power-on or watchdog reset)
func (m *Memory) Reset() {
	for i := range m.cells {
		atomic.StoreUint32(&m.cells[i], 0)
	}
}

// Register implements RegisterFile.
// Addresses outside the data space panic, just like a wild pointer would
// fault on hardware with an MPU.
func (m *Memory) Register(addr uint16) Register {
	if int(addr) >= MemorySize {
		panic(fmt.Sprintf("register address 0x%04x out of range", addr))
	}
	cell := &cell{v: &m.cells[addr]}
	if addr == AddrOCDM {
		// Writing the message register raises the pending bit in OCDMSTATUS
		return &messageCell{cell: cell, status: &m.cells[AddrOCDMStatus]}
	}
	return cell
}

// Peek implements Bus
func (m *Memory) Peek(addr uint16) (uint8, error) {
	if int(addr) >= MemorySize {
		return 0, fmt.Errorf("%w: 0x%04x", ErrAddressRange, addr)
	}
	return uint8(atomic.LoadUint32(&m.cells[addr])), nil
}

// Poke implements Bus
func (m *Memory) Poke(addr uint16, value uint8) error {
	if int(addr) >= MemorySize {
		return fmt.Errorf("%w: 0x%04x", ErrAddressRange, addr)
	}
	atomic.StoreUint32(&m.cells[addr], uint32(value))
	return nil
}

type cell struct {
	v *uint32
}

func (c *cell) Get() uint8 {
	return uint8(atomic.LoadUint32(c.v))
}

func (c *cell) Set(value uint8) {
	atomic.StoreUint32(c.v, uint32(value))
}

func (c *cell) SetBits(value uint8) {
	for {
		old := atomic.LoadUint32(c.v)
		if atomic.CompareAndSwapUint32(c.v, old, old|uint32(value)) {
			return
		}
	}
}

func (c *cell) ClearBits(value uint8) {
	for {
		old := atomic.LoadUint32(c.v)
		if atomic.CompareAndSwapUint32(c.v, old, old&^uint32(value)) {
			return
		}
	}
}

func (c *cell) HasBits(value uint8) bool {
	return uint8(atomic.LoadUint32(c.v))&value != 0
}

// messageCell is SYSCFG.OCDM: a CPU write latches the byte and flags it
// as pending for the debugger.
type messageCell struct {
	*cell
	status *uint32
}

func (c *messageCell) Set(value uint8) {
	c.cell.Set(value)
	for {
		old := atomic.LoadUint32(c.status)
		if atomic.CompareAndSwapUint32(c.status, old, old|OCDMStatusPending) {
			return
		}
	}
}
