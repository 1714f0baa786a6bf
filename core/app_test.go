package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"upditerm/protocol"
)

// MockPWMDriver records duty cycle changes
type MockPWMDriver struct {
	configured bool
	duty       []uint8
}

func (m *MockPWMDriver) Configure() error {
	m.configured = true
	return nil
}

func (m *MockPWMDriver) SetDuty(percent uint8) error {
	if percent > BrightnessMax {
		return errors.New("duty out of range")
	}
	m.duty = append(m.duty, percent)
	return nil
}

func (m *MockPWMDriver) last() uint8 {
	if len(m.duty) == 0 {
		return 0
	}
	return m.duty[len(m.duty)-1]
}

// MockSystemDriver serves a fixed signature and a small RAM window
type MockSystemDriver struct {
	mem    *protocol.Memory
	resets int
}

func (m *MockSystemDriver) Signature() [3]byte { return [3]byte{0x1e, 0x94, 0x22} }

func (m *MockSystemDriver) RAM() (uint16, uint16) { return 0x3800, 20 }

func (m *MockSystemDriver) ReadByte(addr uint16) byte {
	b, _ := m.mem.Peek(addr)
	return b
}

func (m *MockSystemDriver) WatchdogReset() { m.resets++ }

type appRig struct {
	mem  *protocol.Memory
	app  *App
	peer protocol.Peer
	pwm  *MockPWMDriver
	sys  *MockSystemDriver
}

func newAppRig(t *testing.T) *appRig {
	t.Helper()
	mem := protocol.NewMemory()
	layout := protocol.MustLayout(BuildVariant)
	r := &appRig{
		mem:  mem,
		app:  NewApp(protocol.NewStream(protocol.NewUART(layout, mem))),
		peer: layout.Peer(mem),
		pwm:  &MockPWMDriver{},
		sys:  &MockSystemDriver{mem: mem},
	}
	SetPWMDriver(r.pwm)
	SetSystemDriver(r.sys)
	return r
}

// key sends one key, runs a Step and returns everything the app printed
func (r *appRig) key(t *testing.T, k byte) string {
	t.Helper()
	ok, err := r.peer.TrySend(k)
	if err != nil || !ok {
		t.Fatalf("TrySend(%q) = %v, %v", k, ok, err)
	}
	return r.collect(t, func() { r.app.Step() })
}

// collect drains the TX channel while fn runs
func (r *appRig) collect(t *testing.T, fn func()) string {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()

	var out []byte
	finished := false
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !finished {
			select {
			case <-done:
				finished = true
			default:
			}
		}
		b, ok, err := r.peer.TryRecv()
		if err != nil {
			t.Fatalf("TryRecv: %v", err)
		}
		if ok {
			out = append(out, b)
			continue
		}
		if finished {
			return string(out)
		}
		time.Sleep(50 * time.Microsecond)
	}
	t.Fatalf("app did not finish, output so far %q", out)
	return ""
}

func TestAppBreathesWhileDetached(t *testing.T) {
	r := newAppRig(t)
	r.app.Start()

	if !r.pwm.configured {
		t.Fatal("Expected PWM to be configured on start")
	}

	for i := 1; i <= BrightnessMax; i++ {
		if d := r.app.Step(); d != BreathInterval {
			t.Fatalf("Expected breath interval, got %v", d)
		}
		if r.app.Brightness() != i {
			t.Fatalf("Expected brightness %d, got %d", i, r.app.Brightness())
		}
	}

	// turns around at the top
	r.app.Step()
	if r.app.Brightness() != BrightnessMax-1 {
		t.Errorf("Expected brightness to fall after the peak, got %d", r.app.Brightness())
	}
	if r.pwm.last() != BrightnessMax-1 {
		t.Errorf("Expected duty %d, got %d", BrightnessMax-1, r.pwm.last())
	}
}

func TestAppStartAnnouncesReset(t *testing.T) {
	r := newAppRig(t)
	if err := r.peer.Attach(); err != nil {
		t.Fatal(err)
	}

	out := r.collect(t, r.app.Start)
	if out != "\nRESET\n" {
		t.Errorf("Expected reset banner, got %q", out)
	}
}

func TestAppIdleWhenAttached(t *testing.T) {
	r := newAppRig(t)
	r.peer.Attach()
	r.collect(t, r.app.Start)

	if d := r.app.Step(); d != 0 {
		t.Errorf("Expected no delay while attached, got %v", d)
	}
	if r.app.Brightness() != 0 {
		t.Error("Expected LED to stop breathing while attached")
	}
}

func TestAppBrightnessKeys(t *testing.T) {
	r := newAppRig(t)
	r.peer.Attach()

	if out := r.key(t, '+'); out != "  5%\n" {
		t.Errorf("Expected '  5%%', got %q", out)
	}
	if r.pwm.last() != 5 {
		t.Errorf("Expected duty 5, got %d", r.pwm.last())
	}

	r.key(t, '-')
	if out := r.key(t, '-'); out != "  0%\n" {
		t.Errorf("Expected brightness to clamp at 0, got %q", out)
	}

	for i := 0; i < 25; i++ {
		r.key(t, '+')
	}
	if r.app.Brightness() != BrightnessMax {
		t.Errorf("Expected brightness to clamp at %d, got %d", BrightnessMax, r.app.Brightness())
	}
}

func TestAppSignature(t *testing.T) {
	r := newAppRig(t)
	r.peer.Attach()

	out := r.key(t, 's')
	expected := "signature: 1e 94 22\n  0%\n"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}

func TestAppDumpRAM(t *testing.T) {
	r := newAppRig(t)
	r.peer.Attach()
	for i := uint16(0); i < 20; i++ {
		r.mem.Poke(0x3800+i, uint8(i))
	}

	out := r.key(t, 'd')
	lines := strings.Split(out, "\n")
	if lines[0] != "SRAM size: 20" {
		t.Errorf("Expected size line, got %q", lines[0])
	}
	if lines[1] != "3800: 00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f" {
		t.Errorf("Unexpected first row %q", lines[1])
	}
	if lines[2] != "3810: 10 11 12 13" {
		t.Errorf("Unexpected partial row %q", lines[2])
	}
	if lines[3] != "  0%" {
		t.Errorf("Expected brightness after dump, got %q", lines[3])
	}
}

func TestAppReset(t *testing.T) {
	r := newAppRig(t)
	r.peer.Attach()

	r.key(t, 'r')
	if r.sys.resets != 1 {
		t.Errorf("Expected watchdog reset, got %d", r.sys.resets)
	}
}

func TestAppUnknownKey(t *testing.T) {
	r := newAppRig(t)
	r.peer.Attach()

	out := r.key(t, 'x')
	expected := "unrecognized key: 78\n  0%\n"
	if out != expected {
		t.Errorf("Expected %q, got %q", expected, out)
	}
}

func TestAppHelp(t *testing.T) {
	r := newAppRig(t)
	r.peer.Attach()

	out := r.key(t, '?')
	if !strings.Contains(out, "  s  signature\n") {
		t.Errorf("Expected help listing, got %q", out)
	}
}

func TestAppRunStopsOnCancel(t *testing.T) {
	r := newAppRig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.app.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
	if r.app.Brightness() == 0 {
		t.Error("Expected the LED to breathe while running detached")
	}
}
