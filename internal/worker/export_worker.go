// Package worker reacts to ledger events published by the kassa server.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kassa/internal/amqp"
	"kassa/internal/core"
	"kassa/internal/sheets"
)

// SummaryReader loads the summary of a shift.
type SummaryReader interface {
	ShiftSummary(ctx context.Context, accountID, shiftID string) (core.ShiftSummary, error)
}

// ExportWorker exports every closed shift to a spreadsheet.
type ExportWorker struct {
	summaries SummaryReader
	exporter  sheets.ShiftExporter
}

func NewExportWorker(summaries SummaryReader, exporter sheets.ShiftExporter) *ExportWorker {
	return &ExportWorker{summaries: summaries, exporter: exporter}
}

// HandleEvent is an amqp consumer handler. Events other than shift.closed
// are acknowledged without work. A shift that no longer exists is skipped
// rather than retried.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	if e.Type != amqp.EventShiftClosed {
		slog.DebugContext(ctx, "Ignoring ledger event", "event_type", e.Type, "event_id", e.ID)
		return nil
	}
	if e.ShiftID == "" {
		slog.WarnContext(ctx, "Shift closed event without shift id", "event_id", e.ID)
		return nil
	}

	summary, err := w.summaries.ShiftSummary(ctx, e.AccountID, e.ShiftID)
	if core.IsNotFound(err) {
		slog.WarnContext(ctx, "Closed shift not found, skipping export",
			"account_id", e.AccountID,
			"shift_id", e.ShiftID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load shift summary: %w", err)
	}

	ref, err := w.exporter.ExportShift(ctx, summary)
	if err != nil {
		return fmt.Errorf("export shift %s: %w", e.ShiftID, err)
	}

	slog.InfoContext(ctx, "Closed shift exported",
		"account_id", e.AccountID,
		"shift_id", e.ShiftID,
		"net_profit_cents", summary.NetProfit.Cents,
		"row_ref", ref)
	return nil
}
