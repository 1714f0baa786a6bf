//go:build tinygo && avr

// Demo firmware: a breathing LED on WO2 that turns into a small
// interactive console when upditerm attaches.
package main

import (
	"time"

	"upditerm/core"
)

func main() {
	core.SetPWMDriver(NewTCA0PWMDriver())
	core.SetSystemDriver(TinyAVRSystemDriver{})

	// Redirect console I/O to the virtual UART
	app := core.NewApp(core.InitConsole(core.HardwareRegisters()))
	app.Start()

	// Main loop
	for {
		if d := app.Step(); d > 0 {
			time.Sleep(d)
		}
	}
}
