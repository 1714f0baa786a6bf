package core

// SystemDriver gives core code access to chip-level facilities
type SystemDriver interface {
	// Signature returns the three device signature bytes
	Signature() [3]byte

	// RAM returns the first address and the size of the internal SRAM
	RAM() (start, size uint16)

	// ReadByte reads one byte of the data space
	ReadByte(addr uint16) byte

	// WatchdogReset arms the watchdog so the chip resets shortly after
	WatchdogReset()
}

// Global singleton used by core code.
var systemDriver SystemDriver

// SetSystemDriver is called by target-specific code to register its driver.
func SetSystemDriver(d SystemDriver) {
	systemDriver = d
}

// MustSystem returns the configured driver or panics if missing.
func MustSystem() SystemDriver {
	if systemDriver == nil {
		panic("system driver not configured")
	}
	return systemDriver
}
