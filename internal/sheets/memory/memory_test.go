package memory

import (
	"context"
	"errors"
	"testing"
)

func TestStoreReplaceLedger(t *testing.T) {
	s := New()
	rows := [][]any{{"Date", "Amount"}, {"2024-01-05", 10.5}}

	if err := s.ReplaceLedger(context.Background(), "alice Ledger", rows); err != nil {
		t.Fatalf("ReplaceLedger() error = %v", err)
	}
	rows[1][1] = 99.0 // caller mutation must not leak into the store

	got, ok := s.Rows("alice Ledger")
	if !ok || len(got) != 2 || got[1][1] != 10.5 {
		t.Fatalf("unexpected rows: %v", got)
	}

	if err := s.ReplaceLedger(context.Background(), "alice Ledger", rows[:1]); err != nil {
		t.Fatalf("ReplaceLedger() error = %v", err)
	}
	got, _ = s.Rows("alice Ledger")
	if len(got) != 1 {
		t.Fatalf("second write should replace the tab, got %v", got)
	}
	if s.Tabs() != 1 {
		t.Fatalf("Tabs() = %d, want 1", s.Tabs())
	}
}

func TestStoreErr(t *testing.T) {
	s := New()
	s.Err = errors.New("quota exceeded")
	if err := s.ReplaceLedger(context.Background(), "x", nil); err == nil {
		t.Fatal("expected injected error")
	}
	if _, ok := s.Rows("x"); ok {
		t.Fatal("failed write must not store rows")
	}
}
