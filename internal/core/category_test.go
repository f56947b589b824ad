package core

import "testing"

func TestResolveCategory(t *testing.T) {
	cases := []struct {
		name        string
		column      string
		description string
		want        Category
	}{
		{"column wins", "Tabaka", "[Other] fuel", Category{Name: "Tabaka", Source: CategoryStructured}},
		{"embedded tag", "", "[Marketing] fuel", Category{Name: "Marketing", Source: CategoryEmbedded}},
		{"tag mid text", "", "paid [Rent] today", Category{Name: "Rent", Source: CategoryEmbedded}},
		{"blank column falls through", "  ", "[Rent]", Category{Name: "Rent", Source: CategoryEmbedded}},
		{"empty tag ignored", "", "[ ] fuel", Category{}},
		{"nothing", "", "fuel", Category{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveCategory(tc.column, tc.description); got != tc.want {
				t.Fatalf("ResolveCategory(%q, %q) = %+v, want %+v", tc.column, tc.description, got, tc.want)
			}
		})
	}
}

func TestEmbedAndStrip(t *testing.T) {
	if got := EmbedCategory("Marketing", "fuel"); got != "[Marketing] fuel" {
		t.Fatalf("unexpected %q", got)
	}
	if got := EmbedCategory("Marketing", ""); got != "[Marketing]" {
		t.Fatalf("unexpected %q", got)
	}
	if got := EmbedCategory("New", "[Old] fuel"); got != "[New] fuel" {
		t.Fatalf("re-embed should replace the tag, got %q", got)
	}
	if got := StripCategoryTag("paid [Rent]  today"); got != "paid today" {
		t.Fatalf("unexpected %q", got)
	}

	tx := Transaction{Description: "[Marketing] fuel", Category: ResolveCategory("", "[Marketing] fuel")}
	if tx.DisplayDescription() != "fuel" {
		t.Fatalf("display description %q", tx.DisplayDescription())
	}
	structured := Transaction{Description: "[not a tag] fuel", Category: StructuredCategory("Marketing")}
	if structured.DisplayDescription() != "[not a tag] fuel" {
		t.Fatalf("structured descriptions are left alone, got %q", structured.DisplayDescription())
	}
}

func TestRetagDescription(t *testing.T) {
	got, ok := RetagDescription("[tabaka] cigarettes", "Tabaka", "Tobacco")
	if !ok || got != "[Tobacco] cigarettes" {
		t.Fatalf("got %q, %v", got, ok)
	}
	got, ok = RetagDescription("Tabaka cigarettes", "Tabaka", "Tobacco")
	if ok || got != "Tabaka cigarettes" {
		t.Fatalf("bare names are not retagged, got %q, %v", got, ok)
	}
	if !HasCategoryTag("x [MARKETING] y", "marketing") {
		t.Fatal("tag match should ignore case")
	}
}

func TestReplaceCategoryWord(t *testing.T) {
	cases := []struct {
		desc, want string
		ok         bool
	}{
		{"Tabaka olindi", "Tobacco olindi", true},
		{"olindi tabaka", "olindi Tobacco", true},
		{"bir tabaka ikki", "bir Tobacco ikki", true},
		{"tabaka", "Tobacco", true},
		{"Tabakalar", "Tabakalar", false},
		{"[Tabaka] olindi", "[Tabaka] olindi", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ReplaceCategoryWord(tc.desc, "Tabaka", "Tobacco")
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%q: got %q, %v", tc.desc, got, ok)
		}
	}
}
