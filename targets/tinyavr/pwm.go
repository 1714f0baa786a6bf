//go:build tinygo && avr

package main

import (
	"runtime/volatile"
	"unsafe"

	"upditerm/core"
)

// tinyAVR 1-series peripheral addresses
const (
	vportbDIR = 0x0004

	tca0Base    = 0x0A00
	tca0CTRLA   = tca0Base + 0x00
	tca0CTRLB   = tca0Base + 0x01
	tca0PERL    = tca0Base + 0x26
	tca0CMP2L   = tca0Base + 0x2C
	tca0CMP2BUF = tca0Base + 0x3C

	tcaClkDiv256     = 0x06 << 1
	tcaEnable        = 0x01
	tcaCMP2EN        = 0x40
	tcaWGSingleSlope = 0x03

	ledPin = 2 // WO2 on PB2
)

func reg8(addr uintptr) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(addr))
}

// set16 writes a 16-bit register: low byte first, the high byte write
// commits through TEMP
func set16(addr uintptr, v uint16) {
	core.Atomic(func() {
		reg8(addr).Set(uint8(v))
		reg8(addr + 1).Set(uint8(v >> 8))
	})
}

// TCA0PWMDriver drives the LED on WO2 with TCA0 in single-slope mode.
// PER is 99 so the compare value is the duty cycle in percent.
type TCA0PWMDriver struct{}

// NewTCA0PWMDriver creates the LED PWM driver
func NewTCA0PWMDriver() *TCA0PWMDriver {
	return &TCA0PWMDriver{}
}

// Configure starts TCA0 with the LED off
func (d *TCA0PWMDriver) Configure() error {
	reg8(vportbDIR).SetBits(1 << ledPin)
	set16(tca0PERL, 99)
	set16(tca0CMP2L, 0)
	reg8(tca0CTRLA).Set(tcaClkDiv256 | tcaEnable)
	reg8(tca0CTRLB).Set(tcaCMP2EN | tcaWGSingleSlope)
	return nil
}

// SetDuty updates the buffered compare value, applied at the next period
func (d *TCA0PWMDriver) SetDuty(percent uint8) error {
	set16(tca0CMP2BUF, uint16(percent))
	return nil
}
