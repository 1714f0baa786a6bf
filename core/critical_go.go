//go:build !tinygo

package core

import "sync"

// Host builds share registers between goroutines, not with interrupt handlers
var critical sync.Mutex

// Atomic runs fn with other critical sections held off
func Atomic(fn func()) {
	critical.Lock()
	defer critical.Unlock()
	fn()
}
