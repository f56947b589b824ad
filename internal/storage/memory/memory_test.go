package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kassa/internal/core"
)

func TestShiftLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	opened := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	if err := s.CreateShift(ctx, core.Shift{ID: "s1", AccountID: "a", Status: core.ShiftOpen, OpenedAt: opened}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.CreateShift(ctx, core.Shift{ID: "s2", AccountID: "a", Status: core.ShiftOpen, OpenedAt: opened})
	if !core.IsConflict(err) {
		t.Fatalf("expected conflict for second open shift, got %v", err)
	}
	if err := s.CreateShift(ctx, core.Shift{ID: "s3", AccountID: "b", Status: core.ShiftOpen, OpenedAt: opened}); err != nil {
		t.Fatalf("other accounts are independent: %v", err)
	}

	open, err := s.GetOpenShift(ctx, "a")
	if err != nil || open == nil || open.ID != "s1" {
		t.Fatalf("open shift: %+v %v", open, err)
	}

	closed, err := s.CloseShift(ctx, "s1", opened.Add(8*time.Hour), core.Money{Cents: 500})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.IsOpen() || closed.ClosedAt == nil || closed.EndingBalance == nil || closed.EndingBalance.Cents != 500 {
		t.Fatalf("closed shift: %+v", closed)
	}
	if _, err := s.CloseShift(ctx, "s1", opened, core.Money{}); !core.IsNotFound(err) {
		t.Fatalf("closing twice should be not found, got %v", err)
	}
	if open, _ := s.GetOpenShift(ctx, "a"); open != nil {
		t.Fatalf("expected no open shift, got %+v", open)
	}
}

func TestStructuredCategoryFallsBackWithoutColumn(t *testing.T) {
	ctx := context.Background()
	tx := core.Transaction{ID: "t1", ShiftID: "s", Amount: core.Money{Cents: 1}, Type: core.PaymentXarajat, Category: core.StructuredCategory("Tabaka")}

	legacy := New(WithoutCategoryColumn())
	if err := legacy.InsertTransaction(ctx, tx); !core.IsSchemaFallback(err) {
		t.Fatalf("expected schema fallback, got %v", err)
	}

	embedded := tx
	embedded.Category = core.EmbeddedCategory("Tabaka")
	embedded.Description = core.EmbedCategory("Tabaka", "cigarettes")
	if err := legacy.InsertTransaction(ctx, embedded); err != nil {
		t.Fatalf("embedded insert: %v", err)
	}
	got, err := legacy.GetTransaction(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CategoryName() != "Tabaka" || got.Category.Source != core.CategoryEmbedded || got.DisplayDescription() != "cigarettes" {
		t.Fatalf("unexpected read back %+v", got)
	}
}

func TestDeletesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, typ := range []core.PaymentType{core.PaymentXarajat, core.PaymentXarajat, core.PaymentKassa} {
		id := string(rune('a' + i))
		if err := s.InsertTransaction(ctx, core.Transaction{ID: id, ShiftID: "s", Amount: core.Money{Cents: 1}, Type: typ}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := s.DeleteTransaction(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	n, err := s.DeleteTransactionsByType(ctx, "s", core.PaymentXarajat)
	if err != nil || n != 2 {
		t.Fatalf("bulk delete: n=%d err=%v", n, err)
	}
	n, err = s.DeleteTransactionsByType(ctx, "s", core.PaymentXarajat)
	if err != nil || n != 0 {
		t.Fatalf("second bulk delete: n=%d err=%v", n, err)
	}
	left, _ := s.ListTransactions(ctx, "s")
	if len(left) != 1 || left[0].Type != core.PaymentKassa {
		t.Fatalf("unexpected leftovers %+v", left)
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	s := New(WithCategories("a", "Tabaka", "tabaka", " ", "Rent"))

	names, _ := s.ListCategories(ctx, "a")
	if len(names) != 2 {
		t.Fatalf("expected dedupe, got %v", names)
	}
	if err := s.AddCategory(ctx, "a", "RENT"); !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.RenameCategory(ctx, "a", "Tabaka", "Rent"); !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.RenameCategory(ctx, "a", "Nope", "X"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.RenameCategory(ctx, "a", "tabaka", "Tobacco"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := s.DeleteCategory(ctx, "a", "Rent"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	names, _ = s.ListCategories(ctx, "a")
	if len(names) != 1 || names[0] != "Tobacco" {
		t.Fatalf("unexpected names %v", names)
	}

	legacy := New(WithoutCategoryTable())
	if _, err := legacy.ListCategories(ctx, "a"); !core.IsSchemaFallback(err) {
		t.Fatalf("expected schema fallback, got %v", err)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir, "a")
	cats, _ := s.ListCategories(context.Background(), "a")
	if len(cats) == 0 {
		t.Fatalf("expected defaults when files missing")
	}

	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# header\nA\nB\nA\n\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir, "a")
	cats, _ = s.ListCategories(context.Background(), "a")
	if len(cats) != 2 || cats[0] != "A" || cats[1] != "B" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}
