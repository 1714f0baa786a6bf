package protocol

import "errors"

var (
	// ErrUnknownVariant indicates a layout name that matches no variant.
	ErrUnknownVariant = errors.New("unknown register layout")
	// ErrAddressRange indicates an access outside the data space.
	ErrAddressRange = errors.New("address out of range")
)
