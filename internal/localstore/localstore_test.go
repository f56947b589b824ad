package localstore

import (
	"path/filepath"
	"testing"

	"kassa/internal/core"
)

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "local.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.AddCategory("acct", "Tabaka"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.SetSales("acct", "s1", "Tabaka", core.Money{Cents: 50000}); err != nil {
		t.Fatalf("set sales: %v", err)
	}
	if err := s.SetPreferences("acct", Preferences{Currency: "usd", Theme: "Dark"}); err != nil {
		t.Fatalf("set prefs: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Categories("acct"); len(got) != 1 || got[0] != "Tabaka" {
		t.Fatalf("categories = %v", got)
	}
	if got := reopened.Sales("acct", "s1")["Tabaka"]; got.Cents != 50000 {
		t.Fatalf("sales = %v", got)
	}
	if p := reopened.Preferences("acct"); p.Currency != "USD" || p.Theme != "dark" {
		t.Fatalf("preferences = %+v", p)
	}
}

func TestCategoryRules(t *testing.T) {
	s, _ := Open("")
	if err := s.SeedCategories("acct", []string{"Tabaka", "tabaka", " ", "Ijara"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := s.Categories("acct"); len(got) != 2 {
		t.Fatalf("seed should dedupe: %v", got)
	}
	if err := s.AddCategory("acct", "IJARA"); !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.RenameCategory("acct", "tabaka", "ijara"); !core.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.RenameCategory("acct", "nope", "x"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	// changing only the case of a name is allowed
	if err := s.RenameCategory("acct", "tabaka", "TABAKA"); err != nil {
		t.Fatalf("case rename: %v", err)
	}
	if err := s.DeleteCategory("acct", "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if err := s.DeleteCategory("acct", "ijara"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := s.Categories("acct"); len(got) != 1 || got[0] != "TABAKA" {
		t.Fatalf("categories = %v", got)
	}

	_ = s.DeleteCategory("acct", "tabaka")
	if err := s.SeedCategories("acct", []string{"Tabaka"}); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if got := s.Categories("acct"); len(got) != 0 {
		t.Fatalf("emptied list must not be reseeded: %v", got)
	}
}

func TestSalesRename(t *testing.T) {
	s, _ := Open("")
	_ = s.SetSales("acct", "s1", "Tabaka", core.Money{Cents: 100})
	_ = s.SetSales("acct", "s2", "tabaka", core.Money{Cents: 200})
	_ = s.SetSales("other", "s3", "Tabaka", core.Money{Cents: 300})

	if err := s.RenameSalesCategory("acct", "TABAKA", "Tobacco"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if s.Sales("acct", "s1")["Tobacco"].Cents != 100 || s.Sales("acct", "s2")["Tobacco"].Cents != 200 {
		t.Fatalf("sales not renamed: %v %v", s.Sales("acct", "s1"), s.Sales("acct", "s2"))
	}
	if s.Sales("other", "s3")["Tabaka"].Cents != 300 {
		t.Fatal("rename leaked into another account")
	}

	if err := s.SetSales("acct", "s1", "Tobacco", core.Money{}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(s.Sales("acct", "s1")) != 0 {
		t.Fatal("zero amount should remove the entry")
	}
	if err := s.SetSales("acct", "s1", "", core.Money{Cents: 1}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPreferencesValidation(t *testing.T) {
	s, _ := Open("")
	if p := s.Preferences("new"); p != DefaultPreferences() {
		t.Fatalf("defaults = %+v", p)
	}
	if err := s.SetPreferences("acct", Preferences{Currency: "dollars", Theme: "light"}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.SetPreferences("acct", Preferences{Currency: "UZS", Theme: "neon"}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
