package analytics

import (
	"time"

	"kassa/internal/core"
)

// MonthlySeries buckets the transactions dated in year by calendar month.
// The result always has twelve entries, January first.
func MonthlySeries(txs []core.Transaction, year int) []core.MonthlyPoint {
	series := make([]core.MonthlyPoint, 12)
	for i := range series {
		series[i].Month = i + 1
	}
	for _, tx := range txs {
		if tx.Date.Year() != year {
			continue
		}
		p := &series[tx.Date.Month()-1]
		if tx.Type.IsExpense() {
			p.Expenses = p.Expenses.Add(tx.Amount)
		} else {
			p.Income = p.Income.Add(tx.Amount)
		}
	}
	for i := range series {
		series[i].Net = series[i].Income.Sub(series[i].Expenses)
	}
	return series
}

// MonthTrend compares the net of (year, month) with the preceding month,
// crossing into the previous year for January.
func MonthTrend(txs []core.Transaction, year, month int) core.MonthTrend {
	cur := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	prev := cur.AddDate(0, -1, 0)

	current := MonthlySeries(txs, cur.Year())[cur.Month()-1].Net
	previous := MonthlySeries(txs, prev.Year())[prev.Month()-1].Net

	return core.MonthTrend{
		Year:     year,
		Month:    month,
		Current:  current,
		Previous: previous,
		Change:   PercentChange(current, previous),
	}
}
