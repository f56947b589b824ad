// Package memory is an in-process Store used for demos and tests. It can
// mimic the older store schemas that lack the transaction category column or
// the categories table.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"kassa/internal/core"
)

type txRow struct {
	id          string
	shiftID     string
	amount      core.Money
	typ         core.PaymentType
	category    string
	description string
	date        time.Time
}

type Store struct {
	mu         sync.Mutex
	shifts     map[string]core.Shift
	txs        map[string]txRow
	categories map[string][]string // account -> names

	noCategoryColumn bool
	noCategoryTable  bool
}

// Option tweaks the schema the store pretends to have.
type Option func(*Store)

// WithoutCategoryColumn makes structured category writes fail with a schema
// fallback error, like a store created before the column existed.
func WithoutCategoryColumn() Option {
	return func(s *Store) { s.noCategoryColumn = true }
}

// WithoutCategoryTable makes every category list call fail with a schema
// fallback error.
func WithoutCategoryTable() Option {
	return func(s *Store) { s.noCategoryTable = true }
}

// WithCategories seeds the category list of an account.
func WithCategories(accountID string, names ...string) Option {
	return func(s *Store) { s.categories[accountID] = dedupe(names) }
}

func New(opts ...Option) *Store {
	s := &Store{
		shifts:     make(map[string]core.Shift),
		txs:        make(map[string]txRow),
		categories: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFiles seeds the default account's categories from
// base/seed_categories.txt, one name per line.
func NewFromFiles(base, accountID string, opts ...Option) *Store {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"Tabaka", "Ichimliklar", "Ijara"}
	}
	return New(append([]Option{WithCategories(accountID, cats...)}, opts...)...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Shifts

func (s *Store) CreateShift(_ context.Context, shift core.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shifts[shift.ID]; ok {
		return &core.ConflictError{Resource: "shift", Key: shift.ID}
	}
	if shift.IsOpen() {
		for _, existing := range s.shifts {
			if existing.AccountID == shift.AccountID && existing.IsOpen() {
				return &core.ConflictError{Resource: "account", Key: shift.AccountID, Reason: "a shift is already open"}
			}
		}
	}
	s.shifts[shift.ID] = shift
	return nil
}

func (s *Store) GetShift(_ context.Context, id string) (core.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[id]
	if !ok {
		return core.Shift{}, &core.NotFoundError{Resource: "shift", ID: id}
	}
	return shift, nil
}

func (s *Store) GetOpenShift(_ context.Context, accountID string) (*core.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, shift := range s.shifts {
		if shift.AccountID == accountID && shift.IsOpen() {
			out := shift
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListShifts(_ context.Context, accountID string) ([]core.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Shift
	for _, shift := range s.shifts {
		if shift.AccountID == accountID {
			out = append(out, shift)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

func (s *Store) CloseShift(_ context.Context, id string, closedAt time.Time, ending core.Money) (core.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[id]
	if !ok || !shift.IsOpen() {
		return core.Shift{}, &core.NotFoundError{Resource: "open shift", ID: id}
	}
	shift.Status = core.ShiftClosed
	shift.ClosedAt = &closedAt
	shift.EndingBalance = &ending
	s.shifts[id] = shift
	return shift, nil
}

func (s *Store) RenameShift(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	shift, ok := s.shifts[id]
	if !ok {
		return &core.NotFoundError{Resource: "shift", ID: id}
	}
	shift.Name = name
	s.shifts[id] = shift
	return nil
}

// Transactions

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) error {
	row, err := s.toRow(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[t.ID]; ok {
		return &core.ConflictError{Resource: "transaction", Key: t.ID}
	}
	s.txs[t.ID] = row
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Resource: "transaction", ID: id}
	}
	return row.toTransaction(), nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	row, err := s.toRow(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.txs[t.ID]
	if !ok {
		return &core.NotFoundError{Resource: "transaction", ID: t.ID}
	}
	existing.amount = row.amount
	existing.description = row.description
	existing.category = row.category
	s.txs[t.ID] = existing
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txs, id)
	return nil
}

func (s *Store) DeleteTransactionsByType(_ context.Context, shiftID string, t core.PaymentType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.txs {
		if row.shiftID == shiftID && row.typ == t {
			delete(s.txs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTransactions(_ context.Context, shiftID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, row := range s.txs {
		if row.shiftID == shiftID {
			out = append(out, row.toTransaction())
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) ListAccountTransactions(_ context.Context, accountID string, from, to time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, row := range s.txs {
		shift, ok := s.shifts[row.shiftID]
		if !ok || shift.AccountID != accountID {
			continue
		}
		if row.date.Before(from) || !row.date.Before(to) {
			continue
		}
		out = append(out, row.toTransaction())
	}
	sortByDate(out)
	return out, nil
}

// Categories

func (s *Store) ListCategories(_ context.Context, accountID string) ([]string, error) {
	if s.noCategoryTable {
		return nil, &core.SchemaFallbackError{Table: "categories"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.categories[accountID]...), nil
}

func (s *Store) AddCategory(_ context.Context, accountID, name string) error {
	if s.noCategoryTable {
		return &core.SchemaFallbackError{Table: "categories"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexFold(s.categories[accountID], name) >= 0 {
		return &core.ConflictError{Resource: "category", Key: name}
	}
	s.categories[accountID] = append(s.categories[accountID], name)
	return nil
}

func (s *Store) RenameCategory(_ context.Context, accountID, oldName, newName string) error {
	if s.noCategoryTable {
		return &core.SchemaFallbackError{Table: "categories"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.categories[accountID]
	i := indexFold(names, oldName)
	if i < 0 {
		return &core.NotFoundError{Resource: "category", ID: oldName}
	}
	if j := indexFold(names, newName); j >= 0 && j != i {
		return &core.ConflictError{Resource: "category", Key: newName}
	}
	names[i] = newName
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, accountID, name string) error {
	if s.noCategoryTable {
		return &core.SchemaFallbackError{Table: "categories"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := s.categories[accountID]
	if i := indexFold(names, name); i >= 0 {
		s.categories[accountID] = append(names[:i], names[i+1:]...)
	}
	return nil
}

func (s *Store) toRow(t core.Transaction) (txRow, error) {
	row := txRow{
		id:          t.ID,
		shiftID:     t.ShiftID,
		amount:      t.Amount,
		typ:         t.Type,
		description: t.Description,
		date:        t.Date,
	}
	if t.Category.Source == core.CategoryStructured {
		if s.noCategoryColumn {
			return txRow{}, &core.SchemaFallbackError{Table: "transactions", Column: "category"}
		}
		row.category = t.Category.Name
	}
	return row, nil
}

func (r txRow) toTransaction() core.Transaction {
	return core.Transaction{
		ID:          r.id,
		ShiftID:     r.shiftID,
		Amount:      r.amount,
		Type:        r.typ,
		Category:    core.ResolveCategory(r.category, r.description),
		Description: r.description,
		Date:        r.date,
	}
}

func sortByDate(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].Date.Before(txs[j].Date)
	})
}

func indexFold(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and case-insensitive repeats, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
