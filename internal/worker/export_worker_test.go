package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"kassa/internal/amqp"
	"kassa/internal/core"
	"kassa/internal/sheets/memory"
)

type fakeSummaries struct {
	ShiftSummaryFunc func(ctx context.Context, accountID, shiftID string) (core.ShiftSummary, error)
	calls            int
}

func (f *fakeSummaries) ShiftSummary(ctx context.Context, accountID, shiftID string) (core.ShiftSummary, error) {
	f.calls++
	return f.ShiftSummaryFunc(ctx, accountID, shiftID)
}

type fakeExporter struct {
	ExportShiftFunc func(ctx context.Context, s core.ShiftSummary) (string, error)
}

func (f *fakeExporter) ExportShift(ctx context.Context, s core.ShiftSummary) (string, error) {
	return f.ExportShiftFunc(ctx, s)
}

func closedEvent(shiftID string) *amqp.LedgerEvent {
	e := amqp.NewLedgerEvent(amqp.EventShiftClosed, "acct")
	e.ShiftID = shiftID
	return e
}

func TestHandleEventExportsClosedShift(t *testing.T) {
	closed := time.Date(2024, 7, 1, 22, 0, 0, 0, time.UTC)
	summaries := &fakeSummaries{ShiftSummaryFunc: func(_ context.Context, accountID, shiftID string) (core.ShiftSummary, error) {
		if accountID != "acct" || shiftID != "s1" {
			t.Fatalf("unexpected lookup %s/%s", accountID, shiftID)
		}
		return core.ShiftSummary{
			Shift:     core.Shift{ID: "s1", OpenedAt: closed.Add(-12 * time.Hour), ClosedAt: &closed},
			Totals:    core.TypeTotals{},
			NetProfit: core.Money{Cents: 70000},
		}, nil
	}}
	exporter := memory.New("Shifts")
	w := NewExportWorker(summaries, exporter)

	if err := w.HandleEvent(context.Background(), closedEvent("s1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// redelivery overwrites the same row
	if err := w.HandleEvent(context.Background(), closedEvent("s1")); err != nil {
		t.Fatalf("handle again: %v", err)
	}
	if rows := exporter.Rows("2024 Shifts"); len(rows) != 1 || rows[0][0] != "s1" {
		t.Fatalf("rows %v", rows)
	}
}

func TestHandleEventSkips(t *testing.T) {
	summaries := &fakeSummaries{ShiftSummaryFunc: func(context.Context, string, string) (core.ShiftSummary, error) {
		return core.ShiftSummary{}, &core.NotFoundError{Resource: "shift", ID: "gone"}
	}}
	exporter := &fakeExporter{ExportShiftFunc: func(context.Context, core.ShiftSummary) (string, error) {
		t.Fatal("exporter must not be called")
		return "", nil
	}}
	w := NewExportWorker(summaries, exporter)

	events := []*amqp.LedgerEvent{
		amqp.NewLedgerEvent(amqp.EventTransactionCreated, "acct"),
		closedEvent(""),
		closedEvent("gone"),
	}
	for _, e := range events {
		if err := w.HandleEvent(context.Background(), e); err != nil {
			t.Fatalf("%s: %v", e.Type, err)
		}
	}
	if summaries.calls != 1 {
		t.Fatalf("summary lookups = %d, want 1", summaries.calls)
	}
}

func TestHandleEventPropagatesFailures(t *testing.T) {
	boom := errors.New("quota exceeded")
	summaries := &fakeSummaries{ShiftSummaryFunc: func(context.Context, string, string) (core.ShiftSummary, error) {
		return core.ShiftSummary{Shift: core.Shift{ID: "s1"}}, nil
	}}
	exporter := &fakeExporter{ExportShiftFunc: func(context.Context, core.ShiftSummary) (string, error) {
		return "", boom
	}}

	err := NewExportWorker(summaries, exporter).HandleEvent(context.Background(), closedEvent("s1"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected export error, got %v", err)
	}
}
