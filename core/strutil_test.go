package core

import "testing"

func TestItoa(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{100, "100"},
		{-5, "-5"},
		{2048, "2048"},
	}

	for _, tt := range tests {
		if got := itoa(tt.in); got != tt.want {
			t.Errorf("itoa(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHexFormatting(t *testing.T) {
	if got := hex2(0x0a); got != "0a" {
		t.Errorf("hex2(0x0a) = %q", got)
	}
	if got := hex2(0xff); got != "ff" {
		t.Errorf("hex2(0xff) = %q", got)
	}
	if got := hex4(0x3800); got != "3800" {
		t.Errorf("hex4(0x3800) = %q", got)
	}
	if got := hex4(0x001f); got != "001f" {
		t.Errorf("hex4(0x001f) = %q", got)
	}
}

func TestPadLeft(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "  0"},
		{"45", " 45"},
		{"100", "100"},
		{"1000", "1000"},
	}

	for _, tt := range tests {
		if got := padLeft(tt.in, 3); got != tt.want {
			t.Errorf("padLeft(%q, 3) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
