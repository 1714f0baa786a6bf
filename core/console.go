package core

import "upditerm/protocol"

var (
	consoleUART   *protocol.UART
	consoleStream *protocol.Stream
)

// InitConsole redirects console I/O to the virtual UART, using the layout
// selected at build time. Debug output follows the console.
func InitConsole(regs protocol.RegisterFile) *protocol.Stream {
	consoleUART = protocol.NewUART(protocol.MustLayout(BuildVariant), regs)
	consoleStream = protocol.NewStream(consoleUART)
	SetDebugWriter(func(s string) {
		consoleStream.WriteString(s)
		consoleStream.WriteByte('\n')
	})
	return consoleStream
}

// Console returns the stream set up by InitConsole (nil before)
func Console() *protocol.Stream {
	return consoleStream
}

// ConsoleUART returns the UART behind the console (nil before InitConsole)
func ConsoleUART() *protocol.UART {
	return consoleUART
}
