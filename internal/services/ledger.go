package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kassa/internal/amqp"
	"kassa/internal/analytics"
	"kassa/internal/core"
	"kassa/internal/storage"
)

// allTime bounds account-wide transaction scans.
var (
	allTimeFrom = time.Unix(0, 0).UTC()
	allTimeTo   = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
)

// NewTransaction is the caller-controlled part of a transaction.
type NewTransaction struct {
	Amount      core.Money
	Type        core.PaymentType
	Description string
	// Category is only kept for expenses.
	Category string
}

// RenameReport lists the transactions a category rename could not re-tag.
type RenameReport struct {
	OldName  string   `json:"old_name"`
	NewName  string   `json:"new_name"`
	Retagged int      `json:"retagged"`
	Failed   []string `json:"failed,omitempty"`
	// Incomplete is set when the transactions could not be listed, so none
	// were re-tagged although the category itself was renamed.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Ledger mutates transactions inside a session.
type Ledger struct {
	store      storage.Store
	categories *CategoryService
	settings
}

func NewLedger(store storage.Store, categories *CategoryService, opts ...Option) *Ledger {
	if categories == nil {
		categories = NewCategoryService(store, nil)
	}
	return &Ledger{store: store, categories: categories, settings: newSettings(opts)}
}

// requireOpen checks that the session may write and that its shift is open
// in the store, whatever the session claims.
func (l *Ledger) requireOpen(ctx context.Context, s core.Session) error {
	if err := s.Writable(); err != nil {
		return err
	}
	shift, err := l.store.GetShift(ctx, s.ShiftID)
	if core.IsNotFound(err) || (err == nil && (shift.AccountID != s.AccountID || !shift.IsOpen())) {
		return &core.ValidationError{Field: "shift_id", Err: core.ErrShiftNotOpen}
	}
	if err != nil {
		return fmt.Errorf("get shift: %w", err)
	}
	return nil
}

// AddTransaction records a transaction on the session's shift. Expense
// categories go to the category column, or into a "[Name]" description tag
// when the store has no such column.
func (l *Ledger) AddTransaction(ctx context.Context, s core.Session, in NewTransaction) (core.Transaction, error) {
	if err := l.requireOpen(ctx, s); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:          uuid.NewString(),
		ShiftID:     s.ShiftID,
		Amount:      in.Amount,
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Date:        l.clock(),
	}
	if in.Type.IsExpense() && strings.TrimSpace(in.Category) != "" {
		name, err := cleanCategory(in.Category)
		if err != nil {
			return core.Transaction{}, err
		}
		tx.Category = core.StructuredCategory(name)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx, err := l.write(ctx, tx, l.store.InsertTransaction)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction added",
		"account_id", s.AccountID,
		"shift_id", tx.ShiftID,
		"transaction_id", tx.ID,
		"payment_type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"category", tx.CategoryName(),
		"category_source", tx.Category.Source)

	l.emit(ctx, amqp.EventTransactionCreated, s, tx.ID)
	return l.reload(ctx, tx)
}

// write stores tx through fn, falling back to an embedded tag when the store
// rejects the structured category.
func (l *Ledger) write(ctx context.Context, tx core.Transaction, fn func(context.Context, core.Transaction) error) (core.Transaction, error) {
	err := fn(ctx, tx)
	if !core.IsSchemaFallback(err) || tx.Category.Source != core.CategoryStructured {
		return tx, err
	}

	name := tx.Category.Name
	tx.Category = core.EmbeddedCategory(name)
	tx.Description = core.EmbedCategory(name, tx.Description)
	if err := tx.Validate(); err != nil {
		return tx, err
	}
	slog.DebugContext(ctx, "Store lacks category column, embedding tag in description",
		"transaction_id", tx.ID, "category", name)
	return tx, fn(ctx, tx)
}

// reload returns the row as readers will see it. Failing that, tx is
// returned as written.
func (l *Ledger) reload(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	stored, err := l.store.GetTransaction(ctx, tx.ID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to reload transaction", "transaction_id", tx.ID, "error", err)
		return tx, nil
	}
	return stored, nil
}

// EditTransaction changes amount and description. Type, shift and category
// stay as they are.
func (l *Ledger) EditTransaction(ctx context.Context, s core.Session, id string, amount core.Money, description string) (core.Transaction, error) {
	if err := s.Writable(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.ShiftID != s.ShiftID {
		return core.Transaction{}, &core.ValidationError{Field: "shift_id", Err: core.ErrShiftNotOpen}
	}
	if err := l.requireOpen(ctx, s); err != nil {
		return core.Transaction{}, err
	}

	tx.Amount = amount
	tx.Description = strings.TrimSpace(description)
	if tx.Category.Source == core.CategoryEmbedded {
		tx.Description = core.EmbedCategory(tx.Category.Name, tx.Description)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := l.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		"shift_id", tx.ShiftID,
		"transaction_id", tx.ID,
		"amount_cents", tx.Amount.Cents)

	l.emit(ctx, amqp.EventTransactionUpdated, s, tx.ID)
	return l.reload(ctx, tx)
}

// TransactionGone reports whether id no longer exists, so a delete retried
// after its shift closed can still succeed.
func (l *Ledger) TransactionGone(ctx context.Context, id string) (bool, error) {
	_, err := l.store.GetTransaction(ctx, id)
	if core.IsNotFound(err) {
		return true, nil
	}
	return false, err
}

// DeleteTransaction succeeds when id is already gone.
func (l *Ledger) DeleteTransaction(ctx context.Context, s core.Session, id string) error {
	if err := s.Writable(); err != nil {
		return err
	}
	tx, err := l.store.GetTransaction(ctx, id)
	if core.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if tx.ShiftID != s.ShiftID {
		return &core.ValidationError{Field: "shift_id", Err: core.ErrShiftNotOpen}
	}
	if err := l.requireOpen(ctx, s); err != nil {
		return err
	}
	if err := l.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "shift_id", s.ShiftID, "transaction_id", id)
	l.emit(ctx, amqp.EventTransactionDeleted, s, id)
	return nil
}

// DeleteAllExpenses removes every expense of the session's shift in one
// store statement and returns how many went.
func (l *Ledger) DeleteAllExpenses(ctx context.Context, s core.Session) (int64, error) {
	if err := l.requireOpen(ctx, s); err != nil {
		return 0, err
	}
	n, err := l.store.DeleteTransactionsByType(ctx, s.ShiftID, core.PaymentXarajat)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}

	slog.InfoContext(ctx, "Expenses cleared", "shift_id", s.ShiftID, "count", n)
	if n > 0 {
		e := amqp.NewLedgerEvent(amqp.EventExpensesCleared, s.AccountID)
		e.ShiftID = s.ShiftID
		e.Count = n
		l.publish(ctx, e)
		l.changed(s.AccountID)
	}
	return n, nil
}

// ListTransactions reads a shift of the account, oldest first.
func (l *Ledger) ListTransactions(ctx context.Context, accountID, shiftID string) ([]core.Transaction, error) {
	shift, err := l.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.AccountID != accountID {
		return nil, &core.NotFoundError{Resource: "shift", ID: shiftID}
	}
	return l.store.ListTransactions(ctx, shiftID)
}

// TransactionsForCategory lists the category's transactions in one shift,
// or across the account when shiftID is empty.
func (l *Ledger) TransactionsForCategory(ctx context.Context, accountID, shiftID, name string) ([]core.Transaction, error) {
	var (
		txs []core.Transaction
		err error
	)
	if shiftID == "" {
		txs, err = l.store.ListAccountTransactions(ctx, accountID, allTimeFrom, allTimeTo)
	} else {
		txs, err = l.ListTransactions(ctx, accountID, shiftID)
	}
	if err != nil {
		return nil, err
	}
	return analytics.TransactionsForCategory(txs, name), nil
}

// RenameCategory renames the category entry, then re-tags every expense of
// the account that belongs to oldName. Transactions that fail to update are
// listed in the report; they do not undo the rename.
func (l *Ledger) RenameCategory(ctx context.Context, accountID, oldName, newName string) (RenameReport, error) {
	oldName = strings.TrimSpace(oldName)
	newName, err := cleanCategory(newName)
	if err != nil {
		return RenameReport{}, err
	}
	report := RenameReport{OldName: oldName, NewName: newName}

	// conflicts surface here, before any transaction is touched
	if err := l.categories.Rename(ctx, accountID, oldName, newName); err != nil {
		return RenameReport{}, err
	}

	txs, err := l.store.ListAccountTransactions(ctx, accountID, allTimeFrom, allTimeTo)
	if err != nil {
		slog.ErrorContext(ctx, "Category renamed but transactions could not be listed",
			"account_id", accountID,
			"old_name", oldName,
			"new_name", newName,
			"error", err)
		report.Incomplete = true
		l.changed(accountID)
		return report, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(l.retagLimit)
	for _, tx := range analytics.ExpenseOnly(txs) {
		if !analytics.MatchesCategory(tx, oldName) && !strings.EqualFold(tx.Category.Name, oldName) {
			continue
		}
		updated, ok := retag(tx, oldName, newName)
		if !ok {
			continue
		}
		g.Go(func() error {
			_, err := l.write(ctx, updated, l.store.UpdateTransaction)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.WarnContext(ctx, "Failed to re-tag transaction",
					"transaction_id", updated.ID,
					"category", newName,
					"error", err)
				report.Failed = append(report.Failed, updated.ID)
				return nil
			}
			report.Retagged++
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Category renamed",
		"account_id", accountID,
		"old_name", oldName,
		"new_name", newName,
		"retagged", report.Retagged,
		"failed", len(report.Failed))

	e := amqp.NewLedgerEvent(amqp.EventCategoryRenamed, accountID)
	e.Category = newName
	e.OldCategory = oldName
	e.Count = int64(report.Retagged)
	l.publish(ctx, e)
	l.changed(accountID)
	return report, nil
}

// retag moves tx from oldName to newName, rewriting tags and bare-word
// mentions so tx no longer matches oldName. The second result is false when
// tx belongs to another category and only matched by its wording.
func retag(tx core.Transaction, oldName, newName string) (core.Transaction, bool) {
	desc, tagged := core.RetagDescription(tx.Description, oldName, newName)
	desc, _ = core.ReplaceCategoryWord(desc, oldName, newName)
	switch {
	case strings.EqualFold(tx.Category.Name, oldName):
		tx.Category.Name = newName
	case tagged:
	case !tx.Category.IsSet():
		tx.Category = core.StructuredCategory(newName)
	default:
		return tx, false
	}
	tx.Description = desc
	return tx, true
}

func (l *Ledger) emit(ctx context.Context, t amqp.EventType, s core.Session, txID string) {
	e := amqp.NewLedgerEvent(t, s.AccountID)
	e.ShiftID = s.ShiftID
	e.TransactionID = txID
	l.publish(ctx, e)
	l.changed(s.AccountID)
}
