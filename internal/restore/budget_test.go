package restore

import (
	"errors"
	"testing"
)

func TestBudgeterUnlimited(t *testing.T) {
	b := NewBudgeter(Policy{})
	for i := 0; i < 1000; i++ {
		if err := b.Charge(1 << 20); err != nil {
			t.Fatalf("unlimited budget refused charge: %v", err)
		}
	}
	if b.Files() != 1000 {
		t.Errorf("files = %d", b.Files())
	}
}

func TestBudgeterFileCeiling(t *testing.T) {
	b := NewBudgeter(Policy{MaxFiles: 2})
	if err := b.Charge(10); err != nil {
		t.Fatal(err)
	}
	if err := b.Charge(10); err != nil {
		t.Fatal(err)
	}

	err := b.Charge(10)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	// A refused charge must leave the counters unchanged.
	if b.Files() != 2 || b.Bytes() != 20 {
		t.Errorf("counters changed on refusal: files=%d bytes=%d", b.Files(), b.Bytes())
	}
}

func TestBudgeterByteCeiling(t *testing.T) {
	b := NewBudgeter(Policy{MaxBytes: 1024})
	if err := b.Charge(1000); err != nil {
		t.Fatal(err)
	}

	if err := b.Charge(25); !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected ErrBudgetExceeded, got %v", err)
	}
	if b.Bytes() != 1000 {
		t.Errorf("bytes = %d after refusal", b.Bytes())
	}

	// An exact fit is allowed.
	if err := b.Charge(24); err != nil {
		t.Fatalf("exact-fit charge refused: %v", err)
	}
}
