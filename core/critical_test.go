package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAtomicSerializes(t *testing.T) {
	var wg sync.WaitGroup
	n := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				Atomic(func() { n++ })
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 8000, n)
}

func TestAtomicReleasesOnPanic(t *testing.T) {
	require.Panics(t, func() {
		Atomic(func() { panic("boom") })
	})

	done := make(chan struct{})
	go func() {
		Atomic(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("critical section still held after a panic")
	}
}
