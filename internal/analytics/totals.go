// Package analytics derives totals, profit figures and monthly series from
// in-memory transaction lists. Every function is pure.
package analytics

import (
	"github.com/shopspring/decimal"

	"kassa/internal/core"
)

var hundred = decimal.NewFromInt(100)

// TotalByType sums the amounts of transactions with the given type.
func TotalByType(txs []core.Transaction, t core.PaymentType) core.Money {
	var total core.Money
	for _, tx := range txs {
		if tx.Type == t {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Totals returns TotalByType for every payment type, zero-filled.
func Totals(txs []core.Transaction) core.TypeTotals {
	totals := make(core.TypeTotals, len(core.PaymentTypes))
	for _, p := range core.PaymentTypes {
		totals[p] = core.Money{}
	}
	for _, tx := range txs {
		totals[tx.Type] = totals[tx.Type].Add(tx.Amount)
	}
	return totals
}

// Income sums every non-expense transaction.
func Income(txs []core.Transaction) core.Money {
	var total core.Money
	for _, tx := range txs {
		if !tx.Type.IsExpense() {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Expenses sums every xarajat transaction.
func Expenses(txs []core.Transaction) core.Money {
	return TotalByType(txs, core.PaymentXarajat)
}

// NetProfit is income minus expenses.
func NetProfit(txs []core.Transaction) core.Money {
	return Income(txs).Sub(Expenses(txs))
}

// ProfitOrLoss returns sales minus expenses and its label. Zero counts as profit.
func ProfitOrLoss(sales, totalExpenses core.Money) (core.Money, core.Outcome) {
	diff := sales.Sub(totalExpenses)
	if diff.IsNegative() {
		return diff, core.OutcomeLoss
	}
	return diff, core.OutcomeProfit
}

// PercentChange formats the relative change from previous to current.
//
//	PercentChange(0, 0)    -> "0%"
//	PercentChange(50, 0)   -> "+100%"
//	PercentChange(90, 100) -> "-10.0%"
//
// A zero previous value with a negative current one also yields "0%".
func PercentChange(current, previous core.Money) string {
	if previous.IsZero() {
		if current.Cents > 0 {
			return "+100%"
		}
		return "0%"
	}
	change := decimal.NewFromInt(current.Cents - previous.Cents).
		Div(decimal.NewFromInt(previous.Cents)).
		Mul(hundred).
		Round(1)
	if change.Sign() >= 0 {
		return "+" + change.StringFixed(1) + "%"
	}
	return change.StringFixed(1) + "%"
}
