//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package term

import "os"

// IsTerminal reports whether f is a terminal. Raw mode is only
// supported on unix consoles, so this reports false elsewhere.
func IsTerminal(f *os.File) bool {
	return false
}

func makeRaw(fd int) (func() error, error) {
	return func() error { return nil }, nil
}
