package analytics

import (
	"sort"
	"time"

	"kassa/internal/core"
)

// Summarize aggregates one shift's transactions.
func Summarize(shift core.Shift, txs []core.Transaction, categories []string, sales map[string]core.Money) core.ShiftSummary {
	return core.ShiftSummary{
		Shift:            shift,
		Totals:           Totals(txs),
		Income:           Income(txs),
		Expenses:         Expenses(txs),
		NetProfit:        NetProfit(txs),
		TransactionCount: len(txs),
		Categories:       CategoryBreakdown(txs, categories, sales),
	}
}

// BuildReceipt resolves each transaction into a receipt line, oldest first.
func BuildReceipt(shift core.Shift, txs []core.Transaction, printedAt time.Time) core.Receipt {
	lines := make([]core.ReceiptLine, 0, len(txs))
	for _, tx := range txs {
		lines = append(lines, core.ReceiptLine{
			TransactionID: tx.ID,
			Date:          tx.Date,
			Type:          tx.Type,
			Category:      tx.CategoryName(),
			Description:   tx.DisplayDescription(),
			Amount:        tx.Amount,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Date.Before(lines[j].Date) })

	income := Income(txs)
	expenses := Expenses(txs)
	net, outcome := ProfitOrLoss(income, expenses)

	return core.Receipt{
		Shift:     shift,
		Lines:     lines,
		Totals:    Totals(txs),
		Income:    income,
		Expenses:  expenses,
		Net:       net,
		Outcome:   outcome,
		PrintedAt: printedAt,
	}
}
