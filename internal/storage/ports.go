// Package storage declares the persistent store ports used by the services
// layer. Implementations live in the sqlite, postgres and memory subpackages.
//
// Stores resolve each transaction row into its logical category with
// core.ResolveCategory before returning it, so readers above this layer
// never see the storage representation.
package storage

import (
	"context"
	"time"

	"kassa/internal/core"
)

// Ports for the persistent store.
type (
	ShiftStore interface {
		// CreateShift inserts an open shift. It fails with *core.ConflictError
		// when the account already has an open shift.
		CreateShift(ctx context.Context, s core.Shift) error
		// GetShift fails with *core.NotFoundError for unknown ids.
		GetShift(ctx context.Context, id string) (core.Shift, error)
		// GetOpenShift returns nil when the account has no open shift.
		GetOpenShift(ctx context.Context, accountID string) (*core.Shift, error)
		// ListShifts returns the account's shifts, most recently opened first.
		ListShifts(ctx context.Context, accountID string) ([]core.Shift, error)
		// CloseShift sets status, closed_at and ending_balance in one write.
		// It fails with *core.NotFoundError unless the shift exists and is open.
		CloseShift(ctx context.Context, id string, closedAt time.Time, ending core.Money) (core.Shift, error)
		RenameShift(ctx context.Context, id, name string) error
	}

	TransactionStore interface {
		// InsertTransaction stores t. A structured category on a store without
		// the category column fails with *core.SchemaFallbackError.
		InsertTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// UpdateTransaction rewrites amount, description and category.
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		// DeleteTransaction succeeds when the id is already gone.
		DeleteTransaction(ctx context.Context, id string) error
		// DeleteTransactionsByType removes every row of one type in a shift in
		// a single statement and returns how many went.
		DeleteTransactionsByType(ctx context.Context, shiftID string, t core.PaymentType) (int64, error)
		// ListTransactions returns a shift's transactions ordered by date.
		ListTransactions(ctx context.Context, shiftID string) ([]core.Transaction, error)
		// ListAccountTransactions returns every transaction of the account's
		// shifts dated in [from, to).
		ListAccountTransactions(ctx context.Context, accountID string, from, to time.Time) ([]core.Transaction, error)
	}

	// CategoryStore keeps the list of expense category names per account.
	// Stores without the categories table fail every call with
	// *core.SchemaFallbackError.
	CategoryStore interface {
		ListCategories(ctx context.Context, accountID string) ([]string, error)
		AddCategory(ctx context.Context, accountID, name string) error
		RenameCategory(ctx context.Context, accountID, oldName, newName string) error
		DeleteCategory(ctx context.Context, accountID, name string) error
	}

	// Store is a complete persistent store.
	Store interface {
		ShiftStore
		TransactionStore
		CategoryStore
		Ping(ctx context.Context) error
		Close() error
	}
)
