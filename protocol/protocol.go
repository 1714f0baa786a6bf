// Package protocol implements the virtual UART that firmware and a UPDI
// debug probe share through a handful of I/O registers.
//
// Each direction is a single-byte channel guarded by an enable flag (owned
// by the probe) and a full flag (set by the writer, cleared by the reader).
// There is no lock: every transition is a single flag update, and each side
// only ever writes its own half of the handshake. The register layout that
// carries these flags depends on the chip generation, see Layout.
package protocol

// Version of the virtual UART protocol implementation
const Version = "1.0"

// Flag bits shared by all layouts
const (
	FlagFull   = 0x01 // a byte is present and not yet consumed
	FlagEnable = 0x02 // the probe has activated the channel
)

// I/O addresses used by the layouts.
// GPIOR0-3 live in the low I/O space, where SBI/CBI update single bits
// atomically. OCDM/OCDMSTATUS are the SYSCFG on-chip-debug message pair.
const (
	AddrGPIOR0 uint16 = 0x001C
	AddrGPIOR1 uint16 = 0x001D
	AddrGPIOR2 uint16 = 0x001E
	AddrGPIOR3 uint16 = 0x001F

	AddrOCDM       uint16 = 0x0F18
	AddrOCDMStatus uint16 = 0x0F19

	// OCDMStatusPending is set by hardware when the CPU writes OCDM and
	// cleared once the debugger has taken the message
	OCDMStatusPending = 0x01
)
