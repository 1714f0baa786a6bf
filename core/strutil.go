package core

const hexDigits = "0123456789abcdef"

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	// Count digits
	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	// Build string from right to left
	buf := make([]byte, digits)
	pos := digits - 1

	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}

	return string(buf)
}

// hex2 formats a byte as two lowercase hex digits (%02x)
func hex2(b uint8) string {
	return string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]})
}

// hex4 formats a 16-bit value as four lowercase hex digits (%04x)
func hex4(v uint16) string {
	return hex2(uint8(v>>8)) + hex2(uint8(v))
}

// padLeft right-aligns s in a field of width characters (%3u and friends)
func padLeft(s string, width int) string {
	for len(s) < width {
		s = " " + s
	}
	return s
}
