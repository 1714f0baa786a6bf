package term

import (
	"io"
	"os"
)

// Control characters
const (
	BS  = 0x08
	LF  = 0x0a
	CR  = 0x0d
	DEL = 0x7f
)

// Console is the keyboard and screen
type Console struct {
	in      io.Reader
	out     io.Writer
	mapKeys bool
	restore func() error
	keyBuf  [1]byte
	outBuf  [1]byte
}

// NewConsole wraps stdin and stdout. A terminal on in is switched to raw
// mode until Close.
func NewConsole(in *os.File, out io.Writer, mapKeys bool) (*Console, error) {
	c := NewConsoleReader(in, out, mapKeys)
	if IsTerminal(in) {
		restore, err := makeRaw(int(in.Fd()))
		if err != nil {
			return nil, err
		}
		c.restore = restore
	}
	return c, nil
}

// NewConsoleReader is a console over plain streams, no terminal handling
func NewConsoleReader(in io.Reader, out io.Writer, mapKeys bool) *Console {
	return &Console{in: in, out: out, mapKeys: mapKeys}
}

// Get reads one key. With key mapping on, DEL becomes BS and CR becomes LF.
// It returns io.EOF when input ends.
func (c *Console) Get() (byte, error) {
	for {
		n, err := c.in.Read(c.keyBuf[:])
		if n == 1 {
			return c.mapKey(c.keyBuf[0]), nil
		}
		if err != nil {
			return 0, err
		}
	}
}

func (c *Console) mapKey(key byte) byte {
	if !c.mapKeys {
		return key
	}
	switch key {
	case DEL:
		return BS
	case CR:
		return LF
	}
	return key
}

// Put writes one byte to the screen
func (c *Console) Put(b byte) error {
	c.outBuf[0] = b
	_, err := c.out.Write(c.outBuf[:])
	return err
}

// Close restores the terminal mode
func (c *Console) Close() error {
	if c.restore != nil {
		restore := c.restore
		c.restore = nil
		return restore()
	}
	return nil
}
