package protocol

import (
	"errors"
	"testing"
)

func TestParseVariant(t *testing.T) {
	testCases := []struct {
		in       string
		expected Variant
	}{
		{"a", VariantIndependent},
		{"independent", VariantIndependent},
		{"B", VariantShared},
		{"shared", VariantShared},
		{" c ", VariantOCD},
		{"OCD", VariantOCD},
	}

	for _, tc := range testCases {
		v, err := ParseVariant(tc.in)
		if err != nil {
			t.Errorf("ParseVariant(%q) failed: %v", tc.in, err)
			continue
		}
		if v != tc.expected {
			t.Errorf("ParseVariant(%q): expected %s, got %s", tc.in, tc.expected, v)
		}
	}

	if _, err := ParseVariant("d"); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("Expected ErrUnknownVariant, got %v", err)
	}
}

func TestNewLayoutVariant(t *testing.T) {
	for _, v := range allVariants {
		layout, err := NewLayout(v)
		if err != nil {
			t.Fatalf("NewLayout(%s) failed: %v", v, err)
		}
		if layout.Variant() != v {
			t.Errorf("Expected layout variant %s, got %s", v, layout.Variant())
		}
	}

	if _, err := NewLayout(Variant(9)); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("Expected ErrUnknownVariant, got %v", err)
	}
	if s := Variant(9).String(); s != "variant(9)" {
		t.Errorf("Unexpected name for unknown variant: %s", s)
	}
}

func TestPairPeerRegisters(t *testing.T) {
	mem := NewMemory()
	peer := MustLayout(VariantIndependent).Peer(mem)

	if err := peer.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	for _, addr := range []uint16{AddrGPIOR0, AddrGPIOR2} {
		if v, _ := mem.Peek(addr); v != FlagEnable {
			t.Errorf("Expected ENABLE at 0x%02x, got 0x%02x", addr, v)
		}
	}

	if ok, err := peer.TrySend(0x2B); err != nil || !ok {
		t.Fatalf("TrySend failed: ok=%t err=%v", ok, err)
	}
	if v, _ := mem.Peek(AddrGPIOR1); v != 0x2B {
		t.Errorf("Expected RX=0x2B, got 0x%02x", v)
	}
	if v, _ := mem.Peek(AddrGPIOR0); v != FlagEnable|FlagFull {
		t.Errorf("Expected RX flags 0x03, got 0x%02x", v)
	}

	st, err := peer.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !st.RxEnabled || !st.RxFull || !st.TxEnabled || st.TxFull {
		t.Errorf("Unexpected status: %s", st)
	}

	if err := peer.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if _, ok, _ := peer.TryRecv(); ok {
		t.Error("TryRecv on detached channel returned a byte")
	}
	for _, addr := range []uint16{AddrGPIOR0, AddrGPIOR2} {
		if v, _ := mem.Peek(addr); v != 0 {
			t.Errorf("Expected 0 at 0x%02x after detach, got 0x%02x", addr, v)
		}
	}
}

func TestOCDPeerRegisters(t *testing.T) {
	mem := NewMemory()
	peer := MustLayout(VariantOCD).Peer(mem)

	if err := peer.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	mem.Register(AddrOCDM).Set('Q')
	st, _ := peer.Status()
	if !st.TxEnabled || !st.TxFull {
		t.Errorf("Expected pending TX, got %s", st)
	}

	b, ok, err := peer.TryRecv()
	if err != nil || !ok || b != 'Q' {
		t.Fatalf("TryRecv: b=%q ok=%t err=%v", b, ok, err)
	}
	if v, _ := mem.Peek(AddrOCDMStatus); v != 0 {
		t.Errorf("Probe should clear status, got 0x%02x", v)
	}
}

type failingBus struct{ err error }

func (b failingBus) Peek(uint16) (uint8, error) { return 0, b.err }
func (b failingBus) Poke(uint16, uint8) error   { return b.err }

func TestPeerPropagatesBusErrors(t *testing.T) {
	boom := errors.New("link down")
	for _, v := range allVariants {
		peer := MustLayout(v).Peer(failingBus{boom})
		if err := peer.Attach(); !errors.Is(err, boom) {
			t.Errorf("%s Attach: expected bus error, got %v", v, err)
		}
		if _, err := peer.TrySend(1); !errors.Is(err, boom) {
			t.Errorf("%s TrySend: expected bus error, got %v", v, err)
		}
		if _, _, err := peer.TryRecv(); !errors.Is(err, boom) {
			t.Errorf("%s TryRecv: expected bus error, got %v", v, err)
		}
		if _, err := peer.Status(); !errors.Is(err, boom) {
			t.Errorf("%s Status: expected bus error, got %v", v, err)
		}
	}
}
