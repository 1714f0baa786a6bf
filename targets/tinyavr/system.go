//go:build tinygo && avr

package main

const (
	sigrowBase = 0x1100

	// ATtiny1614 internal SRAM
	ramStart = 0x3800
	ramSize  = 0x0800

	cpuCCP        = 0x0034
	ccpIOREG      = 0xD8
	wdtCTRLA      = 0x0100
	wdtPeriod256C = 0x06 // 0.256 s
)

// TinyAVRSystemDriver implements core.SystemDriver for tinyAVR 1-series parts
type TinyAVRSystemDriver struct{}

func (TinyAVRSystemDriver) Signature() [3]byte {
	return [3]byte{
		reg8(sigrowBase).Get(),
		reg8(sigrowBase + 1).Get(),
		reg8(sigrowBase + 2).Get(),
	}
}

func (TinyAVRSystemDriver) RAM() (start, size uint16) {
	return ramStart, ramSize
}

func (TinyAVRSystemDriver) ReadByte(addr uint16) byte {
	return reg8(uintptr(addr)).Get()
}

// WatchdogReset unlocks the protected register and arms the watchdog.
// The write to WDT.CTRLA must follow the CCP write within four cycles.
func (TinyAVRSystemDriver) WatchdogReset() {
	reg8(cpuCCP).Set(ccpIOREG)
	reg8(wdtCTRLA).Set(wdtPeriod256C)
}
