// Package postgres implements storage.Store on PostgreSQL through lib/pq,
// with an OpenTelemetry span around every statement.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"kassa/internal/core"
)

// Postgres error codes mapped onto domain errors.
const (
	codeUniqueViolation = "23505"
	codeUndefinedColumn = "42703"
	codeUndefinedTable  = "42P01"
	codeInvalidTextRepr = "22P02"
)

type Repository struct {
	db *DB

	hasCategoryColumn bool
	hasCategoryTable  bool
}

// NewRepository connects, migrates to schemaVersion (0 = latest) and detects
// the optional schema parts.
func NewRepository(ctx context.Context, connStr string, schemaVersion uint) (*Repository, error) {
	db, err := Open(connStr)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db.DB, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.detectSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("detect schema: %w", err)
	}

	slog.InfoContext(ctx, "Postgres store ready",
		"category_column", repo.hasCategoryColumn,
		"categories_table", repo.hasCategoryTable)
	return repo, nil
}

func (r *Repository) detectSchema(ctx context.Context) error {
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = 'transactions' AND column_name = 'category'
		)`).Scan(&r.hasCategoryColumn)
	if err != nil {
		return fmt.Errorf("lookup category column: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `SELECT to_regclass('categories') IS NOT NULL`).Scan(&r.hasCategoryTable)
	if err != nil {
		return fmt.Errorf("lookup categories table: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// translate maps driver errors onto domain errors. notFound is used for
// malformed ids, which can never match a row.
func (r *Repository) translate(err error, notFound *core.NotFoundError) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return &core.ConflictError{Resource: pqErr.Table, Key: pqErr.Constraint, Reason: pqErr.Message}
	case codeUndefinedColumn:
		return &core.SchemaFallbackError{Table: "transactions", Column: "category", Err: err}
	case codeUndefinedTable:
		return &core.SchemaFallbackError{Table: "categories", Err: err}
	case codeInvalidTextRepr:
		if notFound != nil {
			return notFound
		}
	}
	return err
}

// Shifts

const shiftColumns = `id, account_id, name, status, opened_at, closed_at, starting_balance, ending_balance`

func (r *Repository) CreateShift(ctx context.Context, s core.Shift) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shifts (id, account_id, name, status, opened_at, starting_balance)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.AccountID, s.Name, string(s.Status), s.OpenedAt, s.StartingBalance.Decimal())
	if isCode(err, codeUniqueViolation) {
		return &core.ConflictError{Resource: "account", Key: s.AccountID, Reason: "a shift is already open"}
	}
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}
	return nil
}

func (r *Repository) GetShift(ctx context.Context, id string) (core.Shift, error) {
	notFound := &core.NotFoundError{Resource: "shift", ID: id}
	s, err := scanShift(r.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Shift{}, notFound
	}
	if err != nil {
		return core.Shift{}, fmt.Errorf("get shift %s: %w", id, r.translate(err, notFound))
	}
	return s, nil
}

func (r *Repository) GetOpenShift(ctx context.Context, accountID string) (*core.Shift, error) {
	s, err := scanShift(r.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE account_id = $1 AND status = 'open'`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open shift: %w", err)
	}
	return &s, nil
}

func (r *Repository) ListShifts(ctx context.Context, accountID string) ([]core.Shift, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE account_id = $1 ORDER BY opened_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var out []core.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) CloseShift(ctx context.Context, id string, closedAt time.Time, ending core.Money) (core.Shift, error) {
	notFound := &core.NotFoundError{Resource: "open shift", ID: id}
	s, err := scanShift(r.db.QueryRowContext(ctx,
		`UPDATE shifts SET status = 'closed', closed_at = $2, ending_balance = $3
		 WHERE id = $1 AND status = 'open'
		 RETURNING `+shiftColumns,
		id, closedAt, ending.Decimal()))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Shift{}, notFound
	}
	if err != nil {
		return core.Shift{}, fmt.Errorf("close shift: %w", r.translate(err, notFound))
	}
	return s, nil
}

func (r *Repository) RenameShift(ctx context.Context, id, name string) error {
	notFound := &core.NotFoundError{Resource: "shift", ID: id}
	res, err := r.db.ExecContext(ctx, `UPDATE shifts SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("rename shift: %w", r.translate(err, notFound))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShift(row scanner) (core.Shift, error) {
	var (
		s        core.Shift
		status   string
		closedAt sql.NullTime
		starting decimal.Decimal
		ending   decimal.NullDecimal
	)
	if err := row.Scan(&s.ID, &s.AccountID, &s.Name, &status, &s.OpenedAt, &closedAt, &starting, &ending); err != nil {
		return core.Shift{}, err
	}
	s.Status = core.ShiftStatus(status)
	s.OpenedAt = s.OpenedAt.UTC()
	s.StartingBalance = core.MoneyFromDecimal(starting)
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		s.ClosedAt = &t
	}
	if ending.Valid {
		m := core.MoneyFromDecimal(ending.Decimal)
		s.EndingBalance = &m
	}
	return s, nil
}

// Transactions

func (r *Repository) txColumns() string {
	if r.hasCategoryColumn {
		return `id, shift_id, amount, type, description, date, category`
	}
	return `id, shift_id, amount, type, description, date`
}

func (r *Repository) categoryValue(t core.Transaction) (sql.NullString, error) {
	if t.Category.Source != core.CategoryStructured {
		return sql.NullString{}, nil
	}
	if !r.hasCategoryColumn {
		return sql.NullString{}, &core.SchemaFallbackError{Table: "transactions", Column: "category"}
	}
	return sql.NullString{String: t.Category.Name, Valid: true}, nil
}

func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	category, err := r.categoryValue(t)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions (id, shift_id, amount, type, description, date) VALUES ($1, $2, $3, $4, $5, $6)`
	args := []any{t.ID, t.ShiftID, t.Amount.Decimal(), string(t.Type), t.Description, t.Date}
	if r.hasCategoryColumn {
		query = `INSERT INTO transactions (id, shift_id, amount, type, description, date, category) VALUES ($1, $2, $3, $4, $5, $6, $7)`
		args = append(args, category)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert transaction: %w", r.translate(err, nil))
	}
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	notFound := &core.NotFoundError{Resource: "transaction", ID: id}
	t, err := r.scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+r.txColumns()+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, notFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, r.translate(err, notFound))
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	category, err := r.categoryValue(t)
	if err != nil {
		return err
	}

	query := `UPDATE transactions SET amount = $2, description = $3 WHERE id = $1`
	args := []any{t.ID, t.Amount.Decimal(), t.Description}
	if r.hasCategoryColumn {
		query = `UPDATE transactions SET amount = $2, description = $3, category = $4 WHERE id = $1`
		args = append(args, category)
	}

	notFound := &core.NotFoundError{Resource: "transaction", ID: t.ID}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", r.translate(err, notFound))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		if core.IsNotFound(r.translate(err, &core.NotFoundError{})) {
			return nil
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *Repository) DeleteTransactionsByType(ctx context.Context, shiftID string, t core.PaymentType) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE shift_id = $1 AND type = $2`, shiftID, string(t))
	if err != nil {
		if core.IsNotFound(r.translate(err, &core.NotFoundError{})) {
			return 0, nil
		}
		return 0, fmt.Errorf("delete %s transactions: %w", t, err)
	}
	return res.RowsAffected()
}

func (r *Repository) ListTransactions(ctx context.Context, shiftID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+r.txColumns()+` FROM transactions WHERE shift_id = $1 ORDER BY date, id`, shiftID)
}

func (r *Repository) ListAccountTransactions(ctx context.Context, accountID string, from, to time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+r.txColumns()+` FROM transactions
		 WHERE shift_id IN (SELECT id FROM shifts WHERE account_id = $1)
		   AND date >= $2 AND date < $3
		 ORDER BY date, id`,
		accountID, from, to)
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if core.IsNotFound(r.translate(err, &core.NotFoundError{})) {
			return nil, nil
		}
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		amount   decimal.Decimal
		typ      string
		category sql.NullString
	)
	dest := []any{&t.ID, &t.ShiftID, &amount, &typ, &t.Description, &t.Date}
	if r.hasCategoryColumn {
		dest = append(dest, &category)
	}
	if err := row.Scan(dest...); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.MoneyFromDecimal(amount)
	t.Type = core.PaymentType(typ)
	t.Date = t.Date.UTC()
	t.Category = core.ResolveCategory(category.String, t.Description)
	return t, nil
}

// Categories

func (r *Repository) requireCategoryTable() error {
	if !r.hasCategoryTable {
		return &core.SchemaFallbackError{Table: "categories"}
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, accountID string) ([]string, error) {
	if err := r.requireCategoryTable(); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM categories WHERE account_id = $1 ORDER BY created_at, name`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", r.translate(err, nil))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (r *Repository) AddCategory(ctx context.Context, accountID, name string) error {
	if err := r.requireCategoryTable(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO categories (account_id, name) VALUES ($1, $2)`, accountID, name)
	if isCode(err, codeUniqueViolation) {
		return &core.ConflictError{Resource: "category", Key: name}
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", r.translate(err, nil))
	}
	return nil
}

func (r *Repository) RenameCategory(ctx context.Context, accountID, oldName, newName string) error {
	if err := r.requireCategoryTable(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $3 WHERE account_id = $1 AND lower(name) = lower($2)`,
		accountID, oldName, newName)
	if isCode(err, codeUniqueViolation) {
		return &core.ConflictError{Resource: "category", Key: newName}
	}
	if err != nil {
		return fmt.Errorf("rename category: %w", r.translate(err, nil))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Resource: "category", ID: oldName}
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, accountID, name string) error {
	if err := r.requireCategoryTable(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE account_id = $1 AND lower(name) = lower($2)`, accountID, name)
	if err != nil {
		return fmt.Errorf("delete category: %w", r.translate(err, nil))
	}
	return nil
}

func isCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
