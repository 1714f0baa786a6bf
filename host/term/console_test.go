package term

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func TestConsoleKeyMapping(t *testing.T) {
	c := NewConsoleReader(strings.NewReader("\x7f\ra"), nil, true)

	for _, want := range []byte{BS, LF, 'a'} {
		got, err := c.Get()
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected 0x%02x, got 0x%02x", want, got)
		}
	}
	if _, err := c.Get(); err != io.EOF {
		t.Errorf("Expected io.EOF at end of input, got %v", err)
	}
}

func TestConsoleNoKeyMapping(t *testing.T) {
	c := NewConsoleReader(strings.NewReader("\x7f\r"), nil, false)

	for _, want := range []byte{DEL, CR} {
		if got, _ := c.Get(); got != want {
			t.Errorf("Expected 0x%02x unchanged, got 0x%02x", want, got)
		}
	}
}

func TestConsolePut(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleReader(nil, &out, true)

	c.Put('h')
	c.Put('i')
	if out.String() != "hi" {
		t.Errorf("Expected 'hi', got %q", out.String())
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close without raw mode failed: %v", err)
	}
}

func TestPipeIsNotTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	if IsTerminal(r) {
		t.Error("Expected a pipe not to be a terminal")
	}

	c, err := NewConsole(r, w, true)
	if err != nil {
		t.Fatalf("NewConsole on a pipe failed: %v", err)
	}
	w.Write([]byte{CR})
	if got, _ := c.Get(); got != LF {
		t.Errorf("Expected CR mapped to LF, got 0x%02x", got)
	}
}
