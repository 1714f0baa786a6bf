// Package sim runs the demo firmware in-process on a simulated data
// space, so the terminal can be used without hardware.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"upditerm/core"
	"upditerm/protocol"
)

// WatchdogPeriod is the delay between arming the watchdog and the reset
const WatchdogPeriod = 256 * time.Millisecond

// idle keeps the attached firmware loop from spinning a host CPU
const idle = 200 * time.Microsecond

// Target is a simulated chip running the demo firmware, driven like a
// VirtualPort
type Target struct {
	mem    *protocol.Memory
	layout protocol.Layout
	peer   protocol.Peer
	pwm    *PWM
	sys    *System

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	resets int
	closed bool
}

// Open powers up a simulated target with the given register layout and
// attaches to its virtual UART
func Open(variant protocol.Variant) (*Target, error) {
	layout, err := protocol.NewLayout(variant)
	if err != nil {
		return nil, err
	}
	mem := protocol.NewMemory()
	t := &Target{
		mem:    mem,
		layout: layout,
		peer:   layout.Peer(mem),
		pwm:    &PWM{},
	}
	t.sys = &System{mem: mem, watchdog: t.armWatchdog}

	if err := t.peer.Attach(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.boot()
	t.mu.Unlock()
	return t, nil
}

// boot starts the firmware; t.mu must be held
func (t *Target) boot() {
	core.SetPWMDriver(t.pwm)
	core.SetSystemDriver(t.sys)

	app := core.NewApp(protocol.NewStream(protocol.NewUART(t.layout, t.mem)))
	app.Idle = idle

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go func() {
		defer close(done)
		app.Run(ctx)
	}()
	glog.V(1).Infof("sim: %s target running", t.layout.Variant())
}

// halt stops the firmware and clears the data space; t.mu must be held
func (t *Target) halt() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	// Clearing the flags releases a Transmit waiting on the probe
	t.mem.Reset()
	<-t.done
	t.mem.Reset()
	t.cancel = nil
}

func (t *Target) armWatchdog() {
	time.AfterFunc(WatchdogPeriod, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			return
		}
		glog.V(1).Info("sim: watchdog reset")
		t.halt()
		t.resets++
		t.boot()
	})
}

// TrySend hands b to the firmware if its receive slot is free
func (t *Target) TrySend(b byte) (bool, error) {
	return t.peer.TrySend(b)
}

// TryRecv takes a byte from the firmware if one is waiting
func (t *Target) TryRecv() (byte, bool, error) {
	return t.peer.TryRecv()
}

// Status reads the channel flags
func (t *Target) Status() (protocol.Status, error) {
	return t.peer.Status()
}

// Reset restarts the firmware and re-attaches
func (t *Target) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
	t.resets++
	if err := t.peer.Attach(); err != nil {
		return err
	}
	t.boot()
	return nil
}

// Resets returns how many times the target has been reset
func (t *Target) Resets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}

// Memory returns the simulated data space, the bus a register shell uses
func (t *Target) Memory() *protocol.Memory {
	return t.mem
}

// LED returns the LED duty cycle in percent
func (t *Target) LED() uint8 {
	return t.pwm.Duty()
}

// Close detaches and stops the firmware
func (t *Target) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.peer.Detach()
	t.halt()
	return err
}

// Peek reads the simulated data space, as a probe would
func (t *Target) Peek(addr uint16) (uint8, error) {
	return t.mem.Peek(addr)
}

// Poke writes the simulated data space, as a probe would
func (t *Target) Poke(addr uint16, value uint8) error {
	return t.mem.Poke(addr, value)
}
