package protocol

import (
	"context"
	"runtime"
)

// UART is the firmware side of the virtual UART.
//
// Nothing here allocates or locks. Receive and Transmit busy-wait, so a
// main loop that must not stall gates them with Poll and Enabled.
type UART struct {
	layout Layout
	rx     Channel
	tx     Channel
}

// NewUART binds a layout to a register file
func NewUART(layout Layout, regs RegisterFile) *UART {
	rx, tx := layout.Bind(regs)
	return &UART{layout: layout, rx: rx, tx: tx}
}

// Variant returns the register layout in use
func (u *UART) Variant() Variant {
	return u.layout.Variant()
}

// Enabled reports whether a probe is attached and listening.
// This is the TX enable: output goes nowhere while it is false.
func (u *UART) Enabled() bool {
	return u.tx.Enabled()
}

// RxEnabled reports whether the probe has activated the RX direction
func (u *UART) RxEnabled() bool {
	return u.rx.Enabled()
}

// TxEnabled reports whether the probe has activated the TX direction
func (u *UART) TxEnabled() bool {
	return u.tx.Enabled()
}

// Poll reports whether a byte can be received without waiting
func (u *UART) Poll() bool {
	return u.rx.Full()
}

// Receive waits for a byte from the probe, consumes it and returns it.
// There is no escape: with no probe attached it waits forever.
func (u *UART) Receive() byte {
	for {
		for !u.rx.Full() {
			spin()
		}
		if b, ok := u.take(); ok {
			return b
		}
	}
}

// TryReceive consumes a byte if one is waiting
func (u *UART) TryReceive() (byte, bool) {
	if !u.rx.Full() {
		return 0, false
	}
	return u.take()
}

// ReceiveContext is Receive with a way out: it gives up when ctx is done.
// The plain Receive keeps the original indefinite wait.
func (u *UART) ReceiveContext(ctx context.Context) (byte, error) {
	for {
		for !u.rx.Full() {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
			spin()
		}
		if b, ok := u.take(); ok {
			return b, nil
		}
	}
}

// take reads the payload and commits it only if the slot still reads
// full afterwards. A detach between the two reads discards the byte.
func (u *UART) take() (byte, bool) {
	b := u.rx.Load()
	if !u.rx.Full() {
		return 0, false
	}
	u.rx.MarkEmpty()
	return b, true
}

// Transmit hands a byte to the probe.
//
// The byte is dropped when TX is disabled. Otherwise Transmit waits until
// the previous byte has been consumed. Enable is re-read on every pass,
// so a probe that detaches mid-wait makes Transmit return without
// writing. The return value reports whether the byte was written.
func (u *UART) Transmit(b byte) bool {
	for u.tx.Enabled() {
		if u.txReady() {
			u.tx.Store(b)
			// FULL is never raised on a disabled channel
			if !u.tx.Enabled() {
				return false
			}
			u.tx.MarkFull()
			return true
		}
		spin()
	}
	return false
}

// txReady reports a free TX slot, re-validating enable after the full
// check: a detach can land between the two reads.
func (u *UART) txReady() bool {
	return !u.tx.Full() && u.tx.Enabled()
}

// spin is one busy-wait iteration. Gosched keeps a simulated probe
// running on the same thread; on a bare-metal target it returns at once.
func spin() {
	runtime.Gosched()
}
