package analytics

import (
	"math/rand"
	"testing"
	"time"

	"kassa/internal/core"
)

func tx(id string, t core.PaymentType, cents int64, desc string, date time.Time) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        t,
		Amount:      core.Money{Cents: cents},
		Description: desc,
		Category:    core.ResolveCategory("", desc),
		Date:        date,
	}
}

var day = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestPercentChange(t *testing.T) {
	cases := []struct {
		current, previous int64
		want              string
	}{
		{0, 0, "0%"},
		{50, 0, "+100%"},
		{-50, 0, "0%"},
		{90, 100, "-10.0%"},
		{150, 100, "+50.0%"},
		{100, 100, "+0.0%"},
		{1, 3, "-66.7%"},
		{2, 3, "-33.3%"},
	}
	for _, tc := range cases {
		got := PercentChange(core.Money{Cents: tc.current}, core.Money{Cents: tc.previous})
		if got != tc.want {
			t.Fatalf("PercentChange(%d, %d) = %q, want %q", tc.current, tc.previous, got, tc.want)
		}
	}
}

func TestProfitOrLoss(t *testing.T) {
	diff, outcome := ProfitOrLoss(core.Money{Cents: 100}, core.Money{Cents: 30})
	if diff.Cents != 70 || outcome != core.OutcomeProfit {
		t.Fatalf("got %d %s", diff.Cents, outcome)
	}
	diff, outcome = ProfitOrLoss(core.Money{Cents: 10}, core.Money{Cents: 30})
	if diff.Cents != -20 || outcome != core.OutcomeLoss {
		t.Fatalf("got %d %s", diff.Cents, outcome)
	}
	if _, outcome = ProfitOrLoss(core.Money{}, core.Money{}); outcome != core.OutcomeProfit {
		t.Fatalf("break-even should be profit, got %s", outcome)
	}
}

func TestNetProfitScenario(t *testing.T) {
	txs := []core.Transaction{
		tx("1", core.PaymentKassa, 100000, "", day),
		{ID: "2", Type: core.PaymentXarajat, Amount: core.Money{Cents: 30000}, Category: core.StructuredCategory("Tabaka"), Date: day},
	}
	if got := NetProfit(txs); got.Cents != 70000 {
		t.Fatalf("net profit = %d, want 70000", got.Cents)
	}
	if got := Expenses(txs); got.Cents != 30000 {
		t.Fatalf("expenses = %d", got.Cents)
	}
}

func TestTotalsMatchAmountsUnderAddDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var ledger []core.Transaction

	for step := 0; step < 500; step++ {
		if len(ledger) > 0 && rng.Intn(3) == 0 {
			i := rng.Intn(len(ledger))
			ledger = append(ledger[:i], ledger[i+1:]...)
		} else {
			p := core.PaymentTypes[rng.Intn(len(core.PaymentTypes))]
			ledger = append(ledger, tx("", p, int64(rng.Intn(1_000_000)+1), "", day))
		}

		totals := Totals(ledger)
		for _, p := range core.PaymentTypes {
			var want int64
			for _, l := range ledger {
				if l.Type == p {
					want += l.Amount.Cents
				}
			}
			if TotalByType(ledger, p).Cents != want || totals[p].Cents != want {
				t.Fatalf("step %d: total for %s = %d, want %d", step, p, TotalByType(ledger, p).Cents, want)
			}
		}
	}
}

func TestMonthlySeries(t *testing.T) {
	series := MonthlySeries(nil, 2024)
	if len(series) != 12 {
		t.Fatalf("expected 12 entries, got %d", len(series))
	}
	for i, p := range series {
		if p.Month != i+1 || !p.Net.IsZero() {
			t.Fatalf("entry %d: %+v", i, p)
		}
	}

	txs := []core.Transaction{
		tx("1", core.PaymentKassa, 1000, "", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
		tx("2", core.PaymentHumo, 500, "", time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)),
		tx("3", core.PaymentXarajat, 300, "", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		tx("4", core.PaymentClick, 700, "", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)),
		tx("5", core.PaymentKassa, 9999, "", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)),
	}
	series = MonthlySeries(txs, 2024)
	if series[0].Income.Cents != 1500 || series[0].Expenses.Cents != 300 || series[0].Net.Cents != 1200 {
		t.Fatalf("january: %+v", series[0])
	}
	if series[11].Net.Cents != 700 {
		t.Fatalf("december: %+v", series[11])
	}
	for _, m := range series[1:11] {
		if !m.Net.IsZero() {
			t.Fatalf("month %d should be empty: %+v", m.Month, m)
		}
	}
}

func TestMonthTrendCrossesYear(t *testing.T) {
	txs := []core.Transaction{
		tx("1", core.PaymentKassa, 10000, "", time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)),
		tx("2", core.PaymentKassa, 9000, "", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
	}
	trend := MonthTrend(txs, 2024, 1)
	if trend.Previous.Cents != 10000 || trend.Current.Cents != 9000 {
		t.Fatalf("unexpected trend %+v", trend)
	}
	if trend.Change != "-10.0%" {
		t.Fatalf("change = %q", trend.Change)
	}
}

func TestTransactionsForCategory(t *testing.T) {
	structured := core.Transaction{ID: "s", Type: core.PaymentXarajat, Amount: core.Money{Cents: 1}, Description: "fuel", Category: core.StructuredCategory("Marketing")}
	embedded := tx("e", core.PaymentXarajat, 1, "[Marketing] fuel", day)

	a := TransactionsForCategory([]core.Transaction{structured}, "Marketing")
	b := TransactionsForCategory([]core.Transaction{embedded}, "Marketing")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("both representations must match: structured=%d embedded=%d", len(a), len(b))
	}

	cases := []struct {
		desc string
		want bool
	}{
		{"[marketing] fuel", true},
		{"paid [MARKETING]", true},
		{"Marketing", true},
		{"marketing fuel", true},
		{"fuel for marketing", true},
		{"fuel marketing budget", true},
		{"marketingfuel", false},
		{"premarketing spend", false},
		{"fuel", false},
		{"", false},
	}
	for _, tc := range cases {
		got := MatchesCategory(core.Transaction{Description: tc.desc}, "Marketing")
		if got != tc.want {
			t.Fatalf("MatchesCategory(%q) = %v, want %v", tc.desc, got, tc.want)
		}
	}

	if MatchesCategory(structured, "  ") {
		t.Fatal("blank category never matches")
	}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []core.Transaction{
		tx("1", core.PaymentKassa, 100000, "Tabaka sale", day),
		{ID: "2", Type: core.PaymentXarajat, Amount: core.Money{Cents: 30000}, Category: core.StructuredCategory("Tabaka"), Date: day},
		tx("3", core.PaymentXarajat, 5000, "[Tabaka] lighter", day),
		tx("4", core.PaymentXarajat, 2000, "[Rent] office", day),
	}
	sales := map[string]core.Money{"Tabaka": {Cents: 50000}}

	got := CategoryBreakdown(txs, []string{"Tabaka", "Drinks"}, sales)
	if len(got) != 3 {
		t.Fatalf("expected 3 categories, got %+v", got)
	}
	if got[0].Name != "Tabaka" || got[0].Expenses.Cents != 35000 || got[0].Count != 2 {
		t.Fatalf("tabaka: %+v", got[0])
	}
	if got[0].ProfitOrLoss.Cents != 15000 || got[0].Outcome != core.OutcomeProfit {
		t.Fatalf("tabaka profit: %+v", got[0])
	}
	if got[1].Name != "Drinks" || got[1].Count != 0 {
		t.Fatalf("drinks: %+v", got[1])
	}
	if got[2].Name != "Rent" || got[2].Outcome != core.OutcomeLoss {
		t.Fatalf("rent: %+v", got[2])
	}
}

func TestBuildReceipt(t *testing.T) {
	shift := core.Shift{ID: "s1", Status: core.ShiftClosed}
	later := day.Add(time.Hour)
	txs := []core.Transaction{
		tx("2", core.PaymentXarajat, 300, "[Rent] office", later),
		tx("1", core.PaymentUzcard, 1000, "card sale", day),
	}
	r := BuildReceipt(shift, txs, later)
	if len(r.Lines) != 2 || r.Lines[0].TransactionID != "1" {
		t.Fatalf("lines not ordered by date: %+v", r.Lines)
	}
	if r.Lines[1].Category != "Rent" || r.Lines[1].Description != "office" {
		t.Fatalf("line not resolved: %+v", r.Lines[1])
	}
	if r.Totals[core.PaymentUzcard].Cents != 1000 || r.Net.Cents != 700 || r.Outcome != core.OutcomeProfit {
		t.Fatalf("unexpected totals %+v", r)
	}
	if _, ok := r.Totals[core.PaymentClick]; !ok {
		t.Fatal("totals should list every payment type")
	}
}
