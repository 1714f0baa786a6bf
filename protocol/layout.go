package protocol

import (
	"fmt"
	"strings"
)

// Variant selects one of the register layouts carrying the virtual UART
type Variant uint8

const (
	// VariantIndependent gives RX and TX their own flags+data register pair
	VariantIndependent Variant = iota
	// VariantShared uses the same pairs, but RX only reports data when its
	// flags register holds exactly ENABLE|FULL
	VariantShared
	// VariantOCD keeps one flags register for enable and RX full, and sends
	// TX through the OCD message register gated by the probe-owned status
	VariantOCD
)

var variantNames = [...]string{
	VariantIndependent: "independent",
	VariantShared:      "shared",
	VariantOCD:         "ocd",
}

func (v Variant) String() string {
	if int(v) < len(variantNames) {
		return variantNames[v]
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// ParseVariant accepts a layout name ("independent", "shared", "ocd") or
// its letter ("a", "b", "c")
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "independent":
		return VariantIndependent, nil
	case "b", "shared":
		return VariantShared, nil
	case "c", "ocd":
		return VariantOCD, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Channel is one direction of the virtual UART as seen by the firmware.
// Implementations read through to the registers on every call.
type Channel interface {
	// Enabled reports whether the probe has activated this direction
	Enabled() bool

	// Full reports whether a byte is in flight: for RX, a byte is waiting
	// to be read; for TX, the previous byte has not been consumed yet
	Full() bool

	// Load reads the payload; valid only while Full
	Load() byte

	// Store writes the payload
	Store(b byte)

	// MarkFull publishes a stored payload to the other side
	MarkFull()

	// MarkEmpty releases a consumed payload
	MarkEmpty()
}

// Status is a snapshot of the channel flags as seen by the probe
type Status struct {
	Variant   Variant
	RxEnabled bool
	RxFull    bool
	TxEnabled bool
	TxFull    bool
}

func (s Status) String() string {
	return fmt.Sprintf("%s rx[enable=%t full=%t] tx[enable=%t full=%t]",
		s.Variant, s.RxEnabled, s.RxFull, s.TxEnabled, s.TxFull)
}

// Peer is the probe's half of the handshake
type Peer interface {
	// Attach activates the channel(s)
	Attach() error

	// Detach deactivates the channel(s); any byte in flight is discarded
	Detach() error

	// TrySend hands one byte to the firmware if its RX slot is free
	TrySend(b byte) (bool, error)

	// TryRecv takes one byte from the firmware if one is waiting.
	// It returns false when the channel is not enabled.
	TryRecv() (byte, bool, error)

	// Status reads the current flags
	Status() (Status, error)
}

// Layout maps the abstract channels onto concrete registers
type Layout interface {
	Variant() Variant

	// Bind returns the firmware-side channels over the given registers
	Bind(regs RegisterFile) (rx, tx Channel)

	// Peer returns the probe-side endpoint over the given bus
	Peer(bus Bus) Peer
}

// NewLayout returns the layout for a variant
func NewLayout(v Variant) (Layout, error) {
	switch v {
	case VariantIndependent:
		return independentLayout{}, nil
	case VariantShared:
		return sharedLayout{}, nil
	case VariantOCD:
		return ocdLayout{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, v)
}

// MustLayout is NewLayout for build-time constant variants
func MustLayout(v Variant) Layout {
	l, err := NewLayout(v)
	if err != nil {
		panic(err)
	}
	return l
}
