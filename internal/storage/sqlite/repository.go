// Package sqlite implements storage.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"kassa/internal/core"
)

type Repository struct {
	db *sql.DB

	// Detected at startup; older databases lack one or both.
	hasCategoryColumn bool
	hasCategoryTable  bool
}

// NewRepository opens dbPath, migrates it to schemaVersion (0 = latest) and
// detects which optional schema parts exist.
func NewRepository(dbPath string, schemaVersion uint) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath, schemaVersion); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.detectSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("detect schema: %w", err)
	}

	slog.Info("SQLite store ready",
		"path", dbPath,
		"category_column", repo.hasCategoryColumn,
		"categories_table", repo.hasCategoryTable)

	return repo, nil
}

func (r *Repository) detectSchema(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(transactions)`)
	if err != nil {
		return fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if name == "category" {
			r.hasCategoryColumn = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var n int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'categories'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("lookup categories table: %w", err)
	}
	r.hasCategoryTable = n > 0
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Shifts

const shiftColumns = `id, account_id, name, status, opened_at, closed_at, starting_balance_cents, ending_balance_cents`

func (r *Repository) CreateShift(ctx context.Context, s core.Shift) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shifts (`+shiftColumns+`) VALUES (?, ?, ?, ?, ?, NULL, ?, NULL)`,
		s.ID, s.AccountID, s.Name, string(s.Status), s.OpenedAt.UnixMilli(), s.StartingBalance.Cents)
	if isUniqueViolation(err) {
		return &core.ConflictError{Resource: "account", Key: s.AccountID, Reason: "a shift is already open"}
	}
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}
	return nil
}

func (r *Repository) GetShift(ctx context.Context, id string) (core.Shift, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Shift{}, &core.NotFoundError{Resource: "shift", ID: id}
	}
	if err != nil {
		return core.Shift{}, fmt.Errorf("get shift %s: %w", id, err)
	}
	return s, nil
}

func (r *Repository) GetOpenShift(ctx context.Context, accountID string) (*core.Shift, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE account_id = ? AND status = 'open'`, accountID)
	s, err := scanShift(row)
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
		`SELECT `+shiftColumns+` FROM shifts WHERE account_id = ? ORDER BY opened_at DESC`, accountID)
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
	res, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET status = 'closed', closed_at = ?, ending_balance_cents = ?
		 WHERE id = ? AND status = 'open'`,
		closedAt.UnixMilli(), ending.Cents, id)
	if err != nil {
		return core.Shift{}, fmt.Errorf("close shift: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Shift{}, &core.NotFoundError{Resource: "open shift", ID: id}
	}
	return r.GetShift(ctx, id)
}

func (r *Repository) RenameShift(ctx context.Context, id, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE shifts SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename shift: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Resource: "shift", ID: id}
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
		openedAt int64
		closedAt sql.NullInt64
		starting int64
		ending   sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.AccountID, &s.Name, &status, &openedAt, &closedAt, &starting, &ending); err != nil {
		return core.Shift{}, err
	}
	s.Status = core.ShiftStatus(status)
	s.OpenedAt = time.UnixMilli(openedAt).UTC()
	s.StartingBalance = core.Money{Cents: starting}
	if closedAt.Valid {
		t := time.UnixMilli(closedAt.Int64).UTC()
		s.ClosedAt = &t
	}
	if ending.Valid {
		m := core.Money{Cents: ending.Int64}
		s.EndingBalance = &m
	}
	return s, nil
}

// Transactions

func (r *Repository) txColumns() string {
	cols := `id, shift_id, amount_cents, type, description, date`
	if r.hasCategoryColumn {
		cols += `, category`
	}
	return cols
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

	args := []any{t.ID, t.ShiftID, t.Amount.Cents, string(t.Type), t.Description, t.Date.UnixMilli()}
	placeholders := `?, ?, ?, ?, ?, ?`
	if r.hasCategoryColumn {
		args = append(args, category)
		placeholders += `, ?`
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+r.txColumns()+`) VALUES (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"shift_id", t.ShiftID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents)
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+r.txColumns()+` FROM transactions WHERE id = ?`, id)
	t, err := r.scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, &core.NotFoundError{Resource: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	category, err := r.categoryValue(t)
	if err != nil {
		return err
	}

	query := `UPDATE transactions SET amount_cents = ?, description = ?`
	args := []any{t.Amount.Cents, t.Description}
	if r.hasCategoryColumn {
		query += `, category = ?`
		args = append(args, category)
	}
	query += ` WHERE id = ?`
	args = append(args, t.ID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Resource: "transaction", ID: t.ID}
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *Repository) DeleteTransactionsByType(ctx context.Context, shiftID string, t core.PaymentType) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE shift_id = ? AND type = ?`, shiftID, string(t))
	if err != nil {
		return 0, fmt.Errorf("delete %s transactions: %w", t, err)
	}
	return res.RowsAffected()
}

func (r *Repository) ListTransactions(ctx context.Context, shiftID string) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+r.txColumns()+` FROM transactions WHERE shift_id = ? ORDER BY date, id`, shiftID)
}

func (r *Repository) ListAccountTransactions(ctx context.Context, accountID string, from, to time.Time) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+r.txColumns()+` FROM transactions
		 WHERE shift_id IN (SELECT id FROM shifts WHERE account_id = ?)
		   AND date >= ? AND date < ?
		 ORDER BY date, id`,
		accountID, from.UnixMilli(), to.UnixMilli())
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
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
		cents    int64
		typ      string
		date     int64
		category sql.NullString
	)
	dest := []any{&t.ID, &t.ShiftID, &cents, &typ, &t.Description, &date}
	if r.hasCategoryColumn {
		dest = append(dest, &category)
	}
	if err := row.Scan(dest...); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.Money{Cents: cents}
	t.Type = core.PaymentType(typ)
	t.Date = time.UnixMilli(date).UTC()
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
		`SELECT name FROM categories WHERE account_id = ? ORDER BY created_at, rowid`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
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
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (account_id, name, created_at) VALUES (?, ?, ?)`,
		accountID, name, time.Now().UnixMilli())
	if isUniqueViolation(err) {
		return &core.ConflictError{Resource: "category", Key: name}
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) RenameCategory(ctx context.Context, accountID, oldName, newName string) error {
	if err := r.requireCategoryTable(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE account_id = ? AND name = ?`, newName, accountID, oldName)
	if isUniqueViolation(err) {
		return &core.ConflictError{Resource: "category", Key: newName}
	}
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
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
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE account_id = ? AND name = ?`, accountID, name); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
