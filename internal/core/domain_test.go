package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-15" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if _, err := ParseDate("15/02/2024"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("zero must be allowed, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Income "); err != nil || k != Income {
		t.Fatalf("expected income, got %q (%v)", k, err)
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if Expense.Title() != "Expense" {
		t.Fatalf("unexpected title %q", Expense.Title())
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 1, 1),
		Description: "Invoice #12",
		Type:        Income,
		Amount:      Money{Cents: 0},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := map[string]Transaction{
		"zero date":  {Description: "a", Type: Income, Amount: Money{Cents: 1}},
		"blank desc": {Date: NewDate(2025, 1, 1), Description: "  ", Type: Income},
		"long desc":  {Date: NewDate(2025, 1, 1), Description: strings.Repeat("x", 256), Type: Income},
		"bad type":   {Date: NewDate(2025, 1, 1), Description: "a", Type: "refund"},
		"negative":   {Date: NewDate(2025, 1, 1), Description: "a", Type: Expense, Amount: Money{Cents: -5}},
		"empty type": {Date: NewDate(2025, 1, 1), Description: "a"},
	}
	for name, tx := range bads {
		if err := tx.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Name: "Rent", Type: Expense}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Category{Name: "", Type: Expense}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (Category{Name: strings.Repeat("n", 101), Type: Income}).Validate(); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(ErrEmptyDescription); got != "empty description" {
		t.Fatalf("unexpected message %q", got)
	}
	wrapped := Upstream(errors.New("disk I/O error: /var/lib/finflow.db"))
	if !errors.Is(wrapped, ErrUpstream) {
		t.Fatalf("expected upstream error")
	}
	if got := PublicMessage(wrapped); strings.Contains(got, "/var/lib") {
		t.Fatalf("internal detail leaked: %q", got)
	}
}
