package common

import (
	"encoding/hex"
	"errors"
	"testing"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestNewBatchID_IsValidAndDistinct(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id, err := NewBatchID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != BatchIDSize*2 {
			t.Fatalf("expected id length %d, got %d", BatchIDSize*2, len(id))
		}
		if !ValidBatchID(id) {
			t.Fatalf("generated id %q rejected by ValidBatchID", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidBatchID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"0123456789ab", true},
		{"0123456789abcdef", true},
		{"0123456789a", false},
		{"0123456789AB", false},
		{"../../etc/passwd", false},
		{"", false},
		{"0123456789ab ", false},
	}
	for _, tt := range tests {
		if got := ValidBatchID(tt.id); got != tt.want {
			t.Errorf("ValidBatchID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestParseBatchID(t *testing.T) {
	id, err := ParseBatchID("0123456789abcdef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "0123456789abcdef" {
		t.Fatalf("expected id unchanged, got %q", id)
	}

	for _, bad := range []string{"", "zz", "0123456789AB", "../../etc/passwd"} {
		if _, err := ParseBatchID(bad); !errors.Is(err, ErrInvalidBatchID) {
			t.Errorf("ParseBatchID(%q) error = %v, want ErrInvalidBatchID", bad, err)
		}
	}
}
