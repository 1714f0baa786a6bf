package core

import (
	"context"
	"time"

	"upditerm/protocol"
)

const (
	// BrightnessMax is full LED brightness in percent
	BrightnessMax = 100
	// BrightnessStep is the change per '+' or '-' key
	BrightnessStep = 5
	// BreathInterval paces the breathing LED while no probe is attached
	BreathInterval = 20 * time.Millisecond
)

// App is the demo firmware: a breathing LED while detached, and a
// single-key console once a probe attaches.
type App struct {
	out  *protocol.Stream
	uart *protocol.UART
	keys *CommandRegistry

	brightness int
	dir        int

	// Idle is how long Run sleeps when attached with nothing to read.
	// Zero spins, as the firmware does.
	Idle time.Duration
}

// NewApp creates the demo application on top of a console stream
func NewApp(out *protocol.Stream) *App {
	a := &App{
		out:  out,
		uart: out.UART(),
		keys: NewCommandRegistry(),
		dir:  1,
	}
	a.keys.Register('+', "brighter", a.brighter)
	a.keys.Register('-', "dimmer", a.dimmer)
	a.keys.Register('s', "signature", a.signature)
	a.keys.Register('d', "dump SRAM", a.dumpRAM)
	a.keys.Register('r', "reset", a.reset)
	a.keys.Register('?', "help", a.help)
	return a
}

// Commands returns the key registry
func (a *App) Commands() *CommandRegistry {
	return a.keys
}

// Brightness returns the LED brightness in percent
func (a *App) Brightness() int {
	return a.brightness
}

// Start configures the LED and announces the reset
func (a *App) Start() {
	a.brightness = 0
	a.dir = 1
	pwm := MustPWM()
	if err := pwm.Configure(); err != nil {
		DebugPrintln("pwm: " + err.Error())
	}
	pwm.SetDuty(0)
	a.out.WriteString("\nRESET\n")
}

// Step runs one pass of the main loop and returns how long to wait
// before the next one
func (a *App) Step() time.Duration {
	if !a.uart.Enabled() {
		a.breathe()
		return BreathInterval
	}
	// Poll first so the loop never blocks waiting for a key
	if !a.uart.Poll() {
		return 0
	}
	key, ok := a.uart.TryReceive()
	if !ok {
		return 0
	}
	if err := a.keys.Dispatch(key); err != nil {
		a.out.WriteString("unrecognized key: " + hex2(key) + "\n")
	}
	a.out.WriteString(padLeft(itoa(a.brightness), 3) + "%\n")
	return 0
}

// Run calls Start and then Step until ctx is done
func (a *App) Run(ctx context.Context) error {
	a.Start()
	for {
		d := a.Step()
		if d == 0 {
			d = a.Idle
		}
		if d == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}

func (a *App) breathe() {
	if a.brightness <= 0 {
		a.dir = 1
	} else if a.brightness >= BrightnessMax {
		a.dir = -1
	}
	a.brightness += a.dir
	a.setDuty()
}

func (a *App) setDuty() {
	MustPWM().SetDuty(uint8(a.brightness))
}

func (a *App) brighter() error {
	a.brightness += BrightnessStep
	if a.brightness > BrightnessMax {
		a.brightness = BrightnessMax
	}
	a.setDuty()
	return nil
}

func (a *App) dimmer() error {
	a.brightness -= BrightnessStep
	if a.brightness < 0 {
		a.brightness = 0
	}
	a.setDuty()
	return nil
}

func (a *App) signature() error {
	sig := MustSystem().Signature()
	a.out.WriteString("signature: " + hex2(sig[0]) + " " + hex2(sig[1]) + " " + hex2(sig[2]) + "\n")
	return nil
}

func (a *App) dumpRAM() error {
	sys := MustSystem()
	start, size := sys.RAM()
	a.out.WriteString("SRAM size: " + utoa(uint32(size)) + "\n")
	end := start + size
	for addr := start; addr != end; addr++ {
		if addr&15 == 0 {
			a.out.WriteString(hex4(addr) + ":")
		}
		a.out.WriteString(" " + hex2(sys.ReadByte(addr)))
		if addr&15 == 15 {
			a.out.WriteByte('\n')
		}
	}
	if end&15 != 0 {
		a.out.WriteByte('\n')
	}
	return nil
}

func (a *App) reset() error {
	MustSystem().WatchdogReset()
	return nil
}

func (a *App) help() error {
	a.out.WriteString(a.keys.Help())
	return nil
}
