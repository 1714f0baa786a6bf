package protocol

// Register is a single 8-bit memory-mapped register.
// The method set matches runtime/volatile.Register8, so on TinyGo a
// *volatile.Register8 can be used directly.
type Register interface {
	Get() uint8
	Set(value uint8)
	SetBits(value uint8)
	ClearBits(value uint8)
	HasBits(value uint8) bool
}

// RegisterFile resolves an I/O address to its register (firmware view)
type RegisterFile interface {
	Register(addr uint16) Register
}

// Bus is the probe's view of the target's data space.
// Every access goes through the debug interface and may fail.
type Bus interface {
	Peek(addr uint16) (uint8, error)
	Poke(addr uint16, value uint8) error
}
