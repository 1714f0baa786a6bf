// Package term connects the local console to the virtual UART.
package term

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// Escape sequences: the escape key followed by one of these
const (
	DefaultEscape = 0x05 // ^E
	EscExit       = 'e'
	EscReset      = 'r'

	// NoEscape disables escape handling (piped input)
	NoEscape = -1
)

const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultIdleTimeout  = 250 * time.Millisecond
)

// Endpoint is the probe end of the virtual UART
type Endpoint interface {
	// TrySend offers one byte; false means the target has not read the previous one
	TrySend(b byte) (bool, error)
	// TryRecv takes one byte if the target sent one
	TryRecv() (byte, bool, error)
	// Reset restarts the target
	Reset() error
}

// KeySource is where keys come from
type KeySource interface {
	// Get blocks for the next key and returns io.EOF at end of input
	Get() (byte, error)
}

// Screen is where target output goes
type Screen interface {
	Put(b byte) error
}

// Mirror gets a copy of the target output and can inject input
type Mirror interface {
	Output(b byte)
	Input() (byte, bool)
}

// Config holds terminal settings
type Config struct {
	// Escape is the escape key (0..31), or NoEscape for piped input.
	// Without an escape key every byte is sent, retrying until the target
	// takes it, and input EOF ends the session once output goes quiet.
	Escape int

	// Log receives a copy of the target output
	Log io.Writer

	// Mirror receives a copy of the target output and supplies remote input
	Mirror Mirror

	PollInterval time.Duration
	IdleTimeout  time.Duration
}

// Terminal multiplexes data between the console and the target
type Terminal struct {
	keys   KeySource
	screen Screen
	ep     Endpoint
	cfg    Config

	epMu     sync.Mutex
	lastRecv atomic.Int64 // unix nanos of the last byte from the target
	lastByte int
}

// NewTerminal creates a terminal; Run starts it
func NewTerminal(keys KeySource, screen Screen, ep Endpoint, cfg Config) *Terminal {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Terminal{
		keys:     keys,
		screen:   screen,
		ep:       ep,
		cfg:      cfg,
		lastByte: -1,
	}
}

// HelpLine describes the escape sequences
func HelpLine(escape int) string {
	esc := fmt.Sprintf("^%c", 0x40+escape)
	return fmt.Sprintf(">>>  Exit: %s+e  Reset: %s+r  %s: %s+%s", esc, esc, esc, esc, esc)
}

type keyEvent struct {
	key byte
	err error
}

// Run copies keys to the target and target output to the screen until
// the exit sequence, end of input, an endpoint error or ctx is done.
// A newline is printed at the end unless the output already ended in one.
func (t *Terminal) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.lastRecv.Store(time.Now().UnixNano())

	// Console reads block and cannot be interrupted; the pump goroutine
	// is left behind when the session ends first
	keys := make(chan keyEvent)
	go func() {
		for {
			key, err := t.keys.Get()
			select {
			case keys <- keyEvent{key, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	spawn := func(fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errs <- err
				cancel()
			}
		}()
	}

	spawn(t.reader)
	if t.cfg.Mirror != nil {
		spawn(t.remoteWriter)
	}

	err := t.writer(ctx, keys)
	cancel()
	wg.Wait()
	close(errs)

	if t.lastByte != LF {
		t.screen.Put(LF)
	}

	// A failing endpoint cancels the writer, so its error comes first
	if e, ok := <-errs; ok {
		return e
	}
	return err
}

func (t *Terminal) interactive() bool {
	return t.cfg.Escape != NoEscape
}

// writer copies console keys to the target
func (t *Terminal) writer(ctx context.Context, keys <-chan keyEvent) error {
	next := func() (byte, error) {
		select {
		case ev := <-keys:
			return ev.key, ev.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	for {
		key, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return t.waitIdle(ctx)
			}
			return ignoreCanceled(err)
		}

		if t.interactive() && int(key) == t.cfg.Escape {
			key2, err := next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return t.waitIdle(ctx)
				}
				return ignoreCanceled(err)
			}
			switch key2 {
			case EscExit:
				return nil
			case EscReset:
				glog.V(1).Info("term: resetting target")
				t.epMu.Lock()
				err := t.ep.Reset()
				t.epMu.Unlock()
				if err != nil {
					return fmt.Errorf("reset: %w", err)
				}
			}
			if int(key2) != t.cfg.Escape {
				continue
			}
		}

		if err := t.send(ctx, key, t.interactive()); err != nil {
			return err
		}
	}
}

// send offers key to the target. An interactive session drops a key the
// target is not ready for; otherwise it retries every poll interval.
func (t *Terminal) send(ctx context.Context, key byte, dropIfBusy bool) error {
	for {
		t.epMu.Lock()
		ok, err := t.ep.TrySend(key)
		t.epMu.Unlock()
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		if ok || dropIfBusy {
			if !ok {
				glog.V(2).Infof("term: dropped key 0x%02x", key)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

// remoteWriter forwards input from the mirror, never dropping bytes
func (t *Terminal) remoteWriter(ctx context.Context) error {
	for {
		if b, ok := t.cfg.Mirror.Input(); ok {
			if err := t.send(ctx, b, false); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

// reader copies target output to the screen, log and mirror
func (t *Terminal) reader(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		t.epMu.Lock()
		b, ok, err := t.ep.TryRecv()
		t.epMu.Unlock()
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if ok {
			t.output(b)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

func (t *Terminal) output(b byte) {
	t.screen.Put(b)
	t.lastByte = int(b)
	if t.cfg.Log != nil {
		if _, err := t.cfg.Log.Write([]byte{b}); err != nil {
			glog.Warningf("term: log write failed: %v", err)
		}
	}
	if t.cfg.Mirror != nil {
		t.cfg.Mirror.Output(b)
	}
	t.lastRecv.Store(time.Now().UnixNano())
}

// waitIdle returns once the target has sent nothing for the idle timeout
func (t *Terminal) waitIdle(ctx context.Context) error {
	for {
		idle := time.Since(time.Unix(0, t.lastRecv.Load()))
		if idle > t.cfg.IdleTimeout {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
