package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"kassa/internal/analytics"
	"kassa/internal/cache"
	"kassa/internal/core"
	"kassa/internal/localstore"
	"kassa/internal/storage"
)

var errInvalidMonth = errors.New("month must be between 1 and 12")

// DashboardService derives summaries, series and receipts from the ledger.
// Yearly series are cached per account until the account's ledger changes.
type DashboardService struct {
	store      storage.Store
	categories *CategoryService
	local      *localstore.Store
	series     cache.Cache[[]core.MonthlyPoint]
	settings
}

// NewDashboardService uses an uncached series lookup when series is nil.
func NewDashboardService(store storage.Store, categories *CategoryService, local *localstore.Store, series cache.Cache[[]core.MonthlyPoint], opts ...Option) *DashboardService {
	if local == nil {
		local, _ = localstore.Open("")
	}
	if categories == nil {
		categories = NewCategoryService(store, local)
	}
	return &DashboardService{
		store:      store,
		categories: categories,
		local:      local,
		series:     series,
		settings:   newSettings(opts),
	}
}

func seriesPrefix(accountID string) string {
	return "series:" + accountID + ":"
}

// Invalidate drops the account's cached series. Wire it as the change hook
// of the shift manager and the ledger.
func (d *DashboardService) Invalidate(accountID string) {
	if d.series != nil {
		d.series.DeletePrefix(seriesPrefix(accountID))
	}
}

func (d *DashboardService) shift(ctx context.Context, accountID, shiftID string) (core.Shift, error) {
	shift, err := d.store.GetShift(ctx, shiftID)
	if err != nil {
		return core.Shift{}, err
	}
	if shift.AccountID != accountID {
		return core.Shift{}, &core.NotFoundError{Resource: "shift", ID: shiftID}
	}
	return shift, nil
}

// ShiftSummary aggregates one shift, including the per-category breakdown
// against locally recorded sales.
func (d *DashboardService) ShiftSummary(ctx context.Context, accountID, shiftID string) (core.ShiftSummary, error) {
	var (
		shift core.Shift
		txs   []core.Transaction
		names []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		shift, err = d.shift(gctx, accountID, shiftID)
		return err
	})
	g.Go(func() (err error) {
		txs, err = d.store.ListTransactions(gctx, shiftID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		names, err = d.categories.List(gctx, accountID)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.ShiftSummary{}, err
	}

	return analytics.Summarize(shift, txs, names, d.local.Sales(accountID, shiftID)), nil
}

// Receipt returns formatter-agnostic receipt data for the shift.
func (d *DashboardService) Receipt(ctx context.Context, accountID, shiftID string) (core.Receipt, error) {
	shift, err := d.shift(ctx, accountID, shiftID)
	if err != nil {
		return core.Receipt{}, err
	}
	txs, err := d.store.ListTransactions(ctx, shiftID)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("list transactions: %w", err)
	}
	return analytics.BuildReceipt(shift, txs, d.clock()), nil
}

// YearSeries returns twelve monthly points for the account, January first.
func (d *DashboardService) YearSeries(ctx context.Context, accountID string, year int) ([]core.MonthlyPoint, error) {
	key := seriesPrefix(accountID) + strconv.Itoa(year)
	if d.series != nil {
		if points, ok := d.series.Get(key); ok {
			return slices.Clone(points), nil
		}
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	txs, err := d.store.ListAccountTransactions(ctx, accountID, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	points := analytics.MonthlySeries(txs, year)
	if d.series != nil {
		d.series.Set(key, slices.Clone(points))
	}
	return points, nil
}

// MonthTrend compares a month's net with the month before.
func (d *DashboardService) MonthTrend(ctx context.Context, accountID string, year, month int) (core.MonthTrend, error) {
	if month < 1 || month > 12 {
		return core.MonthTrend{}, &core.ValidationError{Field: "month", Err: errInvalidMonth}
	}
	cur := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	txs, err := d.store.ListAccountTransactions(ctx, accountID, cur.AddDate(0, -1, 0), cur.AddDate(0, 1, 0))
	if err != nil {
		return core.MonthTrend{}, fmt.Errorf("list account transactions: %w", err)
	}
	return analytics.MonthTrend(txs, year, month), nil
}

// SetSales records the local sales figure of a category in a shift.
func (d *DashboardService) SetSales(ctx context.Context, accountID, shiftID, category string, amount core.Money) error {
	if _, err := d.shift(ctx, accountID, shiftID); err != nil {
		return err
	}
	return d.local.SetSales(accountID, shiftID, category, amount)
}
