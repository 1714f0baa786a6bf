//go:build tinygo

package core

import "runtime/interrupt"

// Atomic runs fn with interrupts disabled. Multi-byte peripheral
// registers go through a shared TEMP latch and need this.
func Atomic(fn func()) {
	state := interrupt.Disable()
	defer interrupt.Restore(state)
	fn()
}
