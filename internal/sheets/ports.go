// Package sheets declares the outbound port used to export closed shifts
// to a spreadsheet.
package sheets

import (
	"context"

	"kassa/internal/core"
)

// ShiftExporter writes one row per shift. Exporting the same shift again
// overwrites its row, so redelivered events are harmless.
type ShiftExporter interface {
	ExportShift(ctx context.Context, s core.ShiftSummary) (rowRef string, err error)
}

// Header is the column layout of an export sheet.
var Header = []string{
	"Shift ID", "Name", "Opened", "Closed",
	"Kassa", "Click", "Uzcard", "Humo", "Xarajat",
	"Income", "Net", "Starting balance", "Ending balance", "Transactions",
}

const timeLayout = "2006-01-02 15:04"

// Row renders a summary in Header order. Amounts are plain decimals so the
// spreadsheet parses them as numbers.
func Row(s core.ShiftSummary) []any {
	closed, ending := "", ""
	if s.Shift.ClosedAt != nil {
		closed = s.Shift.ClosedAt.Format(timeLayout)
	}
	if s.Shift.EndingBalance != nil {
		ending = s.Shift.EndingBalance.String()
	}
	row := []any{s.Shift.ID, s.Shift.Name, s.Shift.OpenedAt.Format(timeLayout), closed}
	for _, t := range core.PaymentTypes {
		row = append(row, s.Totals[t].String())
	}
	return append(row,
		s.Income.String(),
		s.NetProfit.String(),
		s.Shift.StartingBalance.String(),
		ending,
		s.TransactionCount,
	)
}

// SheetName returns "<year> <base>" for the year the shift closed in, or
// opened in when it is still open.
func SheetName(base string, s core.Shift) string {
	year := s.OpenedAt.Year()
	if s.ClosedAt != nil {
		year = s.ClosedAt.Year()
	}
	return YearPrefixedName(base, year)
}
