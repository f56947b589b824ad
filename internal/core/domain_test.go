package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePaymentType(t *testing.T) {
	cases := []struct {
		in   string
		want PaymentType
		ok   bool
	}{
		{"kassa", PaymentKassa, true},
		{" Click ", PaymentClick, true},
		{"UZCARD", PaymentUzcard, true},
		{"humo", PaymentHumo, true},
		{"xarajat", PaymentXarajat, true},
		{"cash", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePaymentType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPaymentType) {
			t.Fatalf("%q expected ErrInvalidPaymentType, got %v", tc.in, err)
		}
	}
}

func TestIsExpense(t *testing.T) {
	for _, p := range PaymentTypes {
		if p.IsExpense() != (p == PaymentXarajat) {
			t.Fatalf("%s: unexpected IsExpense %v", p, p.IsExpense())
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Amount: Money{Cents: 100}, Type: PaymentKassa, Description: "sale"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Amount: Money{Cents: 0}, Type: PaymentKassa},
		{Amount: Money{Cents: -1}, Type: PaymentKassa},
		{Amount: Money{Cents: 1}, Type: "visa"},
		{Amount: Money{Cents: 1}, Type: PaymentKassa, Description: strings.Repeat("x", MaxDescriptionLength+1)},
	}
	for i, tx := range bads {
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d expected ValidationError, got %T", i, err)
		}
	}
}

func TestSessionWritable(t *testing.T) {
	if err := (Session{AccountID: "a", ShiftID: "s"}).Writable(); err != nil {
		t.Fatalf("expected writable, got %v", err)
	}
	err := Session{AccountID: "a", ShiftID: "s", ReadOnly: true}.Writable()
	if !errors.Is(err, ErrReadOnlySession) || !IsValidation(err) {
		t.Fatalf("expected read-only validation error, got %v", err)
	}
	err = Session{AccountID: "a"}.Writable()
	if !errors.Is(err, ErrShiftNotOpen) {
		t.Fatalf("expected ErrShiftNotOpen, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := func(err error) error { return errors.Join(errors.New("context"), err) }

	if !IsConflict(wrapped(&ConflictError{Resource: "category", Key: "A"})) {
		t.Fatal("expected conflict")
	}
	if !IsNotFound(wrapped(&NotFoundError{Resource: "shift", ID: "x"})) {
		t.Fatal("expected not found")
	}
	if !IsSchemaFallback(wrapped(&SchemaFallbackError{Table: "transactions", Column: "category"})) {
		t.Fatal("expected schema fallback")
	}
	if IsConflict(errors.New("plain")) {
		t.Fatal("plain error is not a conflict")
	}

	if got := (&NotFoundError{Resource: "open shift"}).Error(); got != "open shift not found" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := (&ConflictError{Resource: "category", Key: "Tabaka"}).Error(); got != `category "Tabaka" already exists` {
		t.Fatalf("unexpected message %q", got)
	}
}
