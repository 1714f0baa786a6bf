//go:build vuart_ocd

package core

import "upditerm/protocol"

// BuildVariant is the register layout compiled into the firmware.
// Needs a chip with SYSCFG.OCDM (AVR Dx and newer).
const BuildVariant = protocol.VariantOCD
