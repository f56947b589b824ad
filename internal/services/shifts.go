package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"kassa/internal/amqp"
	"kassa/internal/analytics"
	"kassa/internal/core"
	"kassa/internal/storage"
)

// ShiftStore is what the shift manager needs from the store.
type ShiftStore interface {
	storage.ShiftStore
	ListTransactions(ctx context.Context, shiftID string) ([]core.Transaction, error)
}

// ShiftManager enforces the one-open-shift rule and hands out sessions.
type ShiftManager struct {
	store ShiftStore
	settings
}

func NewShiftManager(store ShiftStore, opts ...Option) *ShiftManager {
	return &ShiftManager{store: store, settings: newSettings(opts)}
}

// OpenShift starts a shift for the account. It fails with a conflict when
// one is already open.
func (m *ShiftManager) OpenShift(ctx context.Context, accountID string, starting core.Money, name string) (core.Shift, error) {
	if accountID == "" {
		return core.Shift{}, &core.ValidationError{Field: "account_id", Err: core.ErrEmptyAccount}
	}
	if starting.IsNegative() {
		return core.Shift{}, &core.ValidationError{Field: "starting_balance", Err: core.ErrInvalidAmount}
	}

	open, err := m.store.GetOpenShift(ctx, accountID)
	if err != nil {
		return core.Shift{}, fmt.Errorf("check open shift: %w", err)
	}
	if open != nil {
		return core.Shift{}, &core.ConflictError{Resource: "account", Key: accountID, Reason: "a shift is already open"}
	}

	shift := core.Shift{
		ID:              uuid.NewString(),
		AccountID:       accountID,
		Name:            strings.TrimSpace(name),
		Status:          core.ShiftOpen,
		OpenedAt:        m.clock(),
		StartingBalance: starting,
	}
	// the store enforces the rule too, for racing openers
	if err := m.store.CreateShift(ctx, shift); err != nil {
		return core.Shift{}, err
	}

	slog.InfoContext(ctx, "Shift opened",
		"account_id", accountID,
		"shift_id", shift.ID,
		"starting_balance_cents", starting.Cents)

	e := amqp.NewLedgerEvent(amqp.EventShiftOpened, accountID)
	e.ShiftID = shift.ID
	m.publish(ctx, e)
	m.changed(accountID)
	return shift, nil
}

// resolveShift returns shiftID's shift, or the open shift when shiftID is
// empty. Shifts of other accounts are reported as not found.
func (m *ShiftManager) resolveShift(ctx context.Context, accountID, shiftID string) (core.Shift, error) {
	if shiftID == "" {
		open, err := m.store.GetOpenShift(ctx, accountID)
		if err != nil {
			return core.Shift{}, fmt.Errorf("get open shift: %w", err)
		}
		if open == nil {
			return core.Shift{}, &core.NotFoundError{Resource: "open shift"}
		}
		return *open, nil
	}
	return m.GetShift(ctx, accountID, shiftID)
}

// CloseShift records ending as the closing balance. An empty shiftID means
// the account's open shift. It fails with not found unless that shift is open.
func (m *ShiftManager) CloseShift(ctx context.Context, accountID, shiftID string, ending core.Money) (core.Shift, error) {
	shift, err := m.resolveShift(ctx, accountID, shiftID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Shift{}, &core.NotFoundError{Resource: "open shift", ID: shiftID}
		}
		return core.Shift{}, err
	}
	if !shift.IsOpen() {
		return core.Shift{}, &core.NotFoundError{Resource: "open shift", ID: shift.ID}
	}

	closed, err := m.store.CloseShift(ctx, shift.ID, m.clock(), ending)
	if err != nil {
		return core.Shift{}, err
	}

	slog.InfoContext(ctx, "Shift closed",
		"account_id", accountID,
		"shift_id", closed.ID,
		"ending_balance_cents", ending.Cents)

	e := amqp.NewLedgerEvent(amqp.EventShiftClosed, accountID)
	e.ShiftID = closed.ID
	m.publish(ctx, e)
	m.changed(accountID)
	return closed, nil
}

// CloseShiftComputed closes the shift with the net profit of its
// transactions as the ending balance.
func (m *ShiftManager) CloseShiftComputed(ctx context.Context, accountID, shiftID string) (core.Shift, error) {
	shift, err := m.resolveShift(ctx, accountID, shiftID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Shift{}, &core.NotFoundError{Resource: "open shift", ID: shiftID}
		}
		return core.Shift{}, err
	}
	txs, err := m.store.ListTransactions(ctx, shift.ID)
	if err != nil {
		return core.Shift{}, fmt.Errorf("list transactions: %w", err)
	}
	return m.CloseShift(ctx, accountID, shift.ID, analytics.NetProfit(txs))
}

// GetOpenShift returns nil when the account has no open shift.
func (m *ShiftManager) GetOpenShift(ctx context.Context, accountID string) (*core.Shift, error) {
	return m.store.GetOpenShift(ctx, accountID)
}

func (m *ShiftManager) GetShift(ctx context.Context, accountID, shiftID string) (core.Shift, error) {
	shift, err := m.store.GetShift(ctx, shiftID)
	if err != nil {
		return core.Shift{}, err
	}
	if shift.AccountID != accountID {
		return core.Shift{}, &core.NotFoundError{Resource: "shift", ID: shiftID}
	}
	return shift, nil
}

func (m *ShiftManager) ListShifts(ctx context.Context, accountID string) ([]core.Shift, error) {
	return m.store.ListShifts(ctx, accountID)
}

// RenameShift changes the display name. It is the only change allowed on a
// closed shift.
func (m *ShiftManager) RenameShift(ctx context.Context, accountID, shiftID, name string) (core.Shift, error) {
	shift, err := m.GetShift(ctx, accountID, shiftID)
	if err != nil {
		return core.Shift{}, err
	}
	shift.Name = strings.TrimSpace(name)
	if err := m.store.RenameShift(ctx, shiftID, shift.Name); err != nil {
		return core.Shift{}, err
	}
	return shift, nil
}

// Session returns a writable session bound to the account's open shift.
func (m *ShiftManager) Session(ctx context.Context, accountID string) (core.Session, error) {
	open, err := m.store.GetOpenShift(ctx, accountID)
	if err != nil {
		return core.Session{}, fmt.Errorf("get open shift: %w", err)
	}
	if open == nil {
		return core.Session{}, &core.NotFoundError{Resource: "open shift"}
	}
	return core.Session{AccountID: accountID, ShiftID: open.ID}, nil
}

// SessionFor returns a session over a specific shift. Closed shifts give a
// read-only session.
func (m *ShiftManager) SessionFor(ctx context.Context, accountID, shiftID string) (core.Session, error) {
	if shiftID == "" {
		return m.Session(ctx, accountID)
	}
	shift, err := m.GetShift(ctx, accountID, shiftID)
	if err != nil {
		return core.Session{}, err
	}
	return core.Session{AccountID: accountID, ShiftID: shift.ID, ReadOnly: !shift.IsOpen()}, nil
}
