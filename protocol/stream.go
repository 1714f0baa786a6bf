package protocol

import "io"

// Stream exposes a UART as a byte stream for formatted I/O
// (fmt.Fprintf, fmt.Fscan, bufio). It holds no buffer: every byte goes
// straight to Transmit or comes straight from Receive.
type Stream struct {
	uart *UART
}

var (
	_ io.ReadWriter   = (*Stream)(nil)
	_ io.ByteReader   = (*Stream)(nil)
	_ io.ByteWriter   = (*Stream)(nil)
	_ io.StringWriter = (*Stream)(nil)
)

// NewStream wraps a UART
func NewStream(u *UART) *Stream {
	return &Stream{uart: u}
}

// UART returns the underlying UART
func (s *Stream) UART() *UART {
	return s.uart
}

// ReadByte blocks until the probe sends a byte
func (s *Stream) ReadByte() (byte, error) {
	return s.uart.Receive(), nil
}

// Read blocks for exactly one byte
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = s.uart.Receive()
	return 1, nil
}

// Buffered returns 1 when a byte can be read without blocking
func (s *Stream) Buffered() int {
	if s.uart.Poll() {
		return 1
	}
	return 0
}

// WriteByte transmits one byte; it is dropped silently when no probe listens
func (s *Stream) WriteByte(c byte) error {
	s.uart.Transmit(c)
	return nil
}

// Write transmits p byte by byte. Like a UART with nothing on the line,
// it reports success even when the probe is not listening.
func (s *Stream) Write(p []byte) (int, error) {
	for _, c := range p {
		s.uart.Transmit(c)
	}
	return len(p), nil
}

// WriteString is Write for strings without the conversion
func (s *Stream) WriteString(str string) (int, error) {
	for i := 0; i < len(str); i++ {
		s.uart.Transmit(str[i])
	}
	return len(str), nil
}
