// Package memory is an in-process ShiftExporter for demos and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"kassa/internal/core"
	"kassa/internal/sheets"
)

var _ sheets.ShiftExporter = (*Exporter)(nil)

type Exporter struct {
	mu    sync.Mutex
	base  string
	rows  map[string][][]any // sheet -> rows
	index map[string]int     // shift id -> row index within its sheet
}

func New(base string) *Exporter {
	if base == "" {
		base = "Shifts"
	}
	return &Exporter{base: base, rows: map[string][][]any{}, index: map[string]int{}}
}

func (e *Exporter) ExportShift(_ context.Context, s core.ShiftSummary) (string, error) {
	if s.Shift.ID == "" {
		return "", fmt.Errorf("export shift: missing shift id")
	}
	sheet := sheets.SheetName(e.base, s.Shift)
	row := sheets.Row(s)

	e.mu.Lock()
	defer e.mu.Unlock()
	key := sheet + "/" + s.Shift.ID
	if i, ok := e.index[key]; ok {
		e.rows[sheet][i] = row
		return fmt.Sprintf("mem:%s:%d", sheet, i+1), nil
	}
	e.rows[sheet] = append(e.rows[sheet], row)
	e.index[key] = len(e.rows[sheet]) - 1
	return fmt.Sprintf("mem:%s:%d", sheet, len(e.rows[sheet])), nil
}

// Rows returns a copy of the rows exported to sheet.
func (e *Exporter) Rows(sheet string) [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.rows[sheet]...)
}
