// Package remote mirrors the terminal session to MQTT and WebSocket clients.
package remote

import (
	"sync"

	"github.com/golang/glog"

	"upditerm/protocol"
)

// DefaultInputSize is the remote input FIFO size
const DefaultInputSize = 1024

// Hub fans target output out to every subscriber and queues input from
// all remote clients in one FIFO. It implements term.Mirror.
type Hub struct {
	mu      sync.Mutex
	in      *protocol.FifoBuffer
	subs    map[int]func([]byte)
	nextID  int
	dropped int
}

// NewHub creates a hub with an input FIFO of size bytes
func NewHub(size int) *Hub {
	if size <= 0 {
		size = DefaultInputSize
	}
	return &Hub{
		// the FIFO keeps one slot free
		in:   protocol.NewFifoBuffer(size + 1),
		subs: make(map[int]func([]byte)),
	}
}

// Subscribe registers fn for target output and returns a function that
// removes it. fn runs on the terminal reader and must not block.
func (h *Hub) Subscribe(fn func([]byte)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Subscribers returns the number of output subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Output passes one byte of target output to every subscriber
func (h *Hub) Output(b byte) {
	h.mu.Lock()
	subs := make([]func([]byte), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn([]byte{b})
	}
}

// Inject queues remote input; bytes that do not fit are dropped
func (h *Hub) Inject(p []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.in.Write(p)
	if n < len(p) {
		h.dropped += len(p) - n
		glog.Warningf("remote: input FIFO full, dropped %d bytes", len(p)-n)
	}
	return n
}

// Input takes the next queued input byte
func (h *Hub) Input() (byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.in.ReadByte()
}

// Dropped returns the number of input bytes lost to a full FIFO
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
