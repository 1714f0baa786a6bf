//go:build !vuart_shared && !vuart_ocd

package core

import "upditerm/protocol"

// BuildVariant is the register layout compiled into the firmware
const BuildVariant = protocol.VariantIndependent
