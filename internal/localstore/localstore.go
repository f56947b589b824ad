// Package localstore is the non-authoritative device cache: category names
// for stores without a categories table, per-category sales figures and user
// preferences. Everything lives in a single JSON file.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"kassa/internal/core"
)

var (
	ErrInvalidCurrency = errors.New("currency must be a three letter code")
	ErrInvalidTheme    = errors.New("theme must be light, dark or system")
)

// Preferences are per-account display settings.
type Preferences struct {
	Currency string `json:"currency"`
	Theme    string `json:"theme"`
}

func DefaultPreferences() Preferences {
	return Preferences{Currency: "UZS", Theme: "light"}
}

func (p Preferences) Validate() error {
	if len(p.Currency) != 3 {
		return &core.ValidationError{Field: "currency", Err: ErrInvalidCurrency}
	}
	switch p.Theme {
	case "light", "dark", "system":
	default:
		return &core.ValidationError{Field: "theme", Err: ErrInvalidTheme}
	}
	return nil
}

type document struct {
	Categories  map[string][]string                    `json:"categories"`
	Sales       map[string]map[string]map[string]int64 `json:"sales"` // account -> shift -> category -> cents
	Preferences map[string]Preferences                 `json:"preferences"`
}

// Store is safe for concurrent use. Every mutation rewrites the file.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open loads path, creating it on first write. An empty path keeps the
// store in memory only.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: document{
		Categories:  map[string][]string{},
		Sales:       map[string]map[string]map[string]int64{},
		Preferences: map[string]Preferences{},
	}}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("decode local store %s: %w", path, err)
		}
	}
	if s.doc.Categories == nil {
		s.doc.Categories = map[string][]string{}
	}
	if s.doc.Sales == nil {
		s.doc.Sales = map[string]map[string]map[string]int64{}
	}
	if s.doc.Preferences == nil {
		s.doc.Preferences = map[string]Preferences{}
	}
	return s, nil
}

// flush writes the document through a temp file so a crash never leaves a
// truncated file behind. Callers hold mu.
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create local store directory: %w", err)
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}

func indexFold(names []string, name string) int {
	return slices.IndexFunc(names, func(n string) bool { return strings.EqualFold(n, name) })
}

// Categories

func (s *Store) Categories(accountID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.doc.Categories[accountID])
}

// SeedCategories sets the account's list the first time the account is
// seen. A list emptied later stays empty.
func (s *Store) SeedCategories(accountID string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Categories[accountID]; ok {
		return nil
	}
	list := []string{}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && indexFold(list, n) < 0 {
			list = append(list, n)
		}
	}
	s.doc.Categories[accountID] = list
	return s.flush()
}

func (s *Store) AddCategory(accountID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexFold(s.doc.Categories[accountID], name) >= 0 {
		return &core.ConflictError{Resource: "category", Key: name}
	}
	s.doc.Categories[accountID] = append(s.doc.Categories[accountID], name)
	return s.flush()
}

func (s *Store) RenameCategory(accountID, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.doc.Categories[accountID]
	i := indexFold(list, oldName)
	if i < 0 {
		return &core.NotFoundError{Resource: "category", ID: oldName}
	}
	if j := indexFold(list, newName); j >= 0 && j != i {
		return &core.ConflictError{Resource: "category", Key: newName}
	}
	list[i] = newName
	return s.flush()
}

func (s *Store) DeleteCategory(accountID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.doc.Categories[accountID]
	i := indexFold(list, name)
	if i < 0 {
		return nil
	}
	s.doc.Categories[accountID] = slices.Delete(list, i, i+1)
	return s.flush()
}

// Sales

// Sales returns the shift's sales figures keyed by category name.
func (s *Store) Sales(accountID, shiftID string) map[string]core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]core.Money)
	for name, cents := range s.doc.Sales[accountID][shiftID] {
		out[name] = core.Money{Cents: cents}
	}
	return out
}

// SetSales records the sales figure for one category of a shift. A zero
// amount removes the entry.
func (s *Store) SetSales(accountID, shiftID, category string, amount core.Money) error {
	if strings.TrimSpace(category) == "" {
		return &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	if amount.IsNegative() {
		return &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	shifts := s.doc.Sales[accountID]
	if shifts == nil {
		shifts = map[string]map[string]int64{}
		s.doc.Sales[accountID] = shifts
	}
	byCategory := shifts[shiftID]
	if byCategory == nil {
		byCategory = map[string]int64{}
		shifts[shiftID] = byCategory
	}
	for name := range byCategory {
		if strings.EqualFold(name, category) {
			delete(byCategory, name)
		}
	}
	if !amount.IsZero() {
		byCategory[category] = amount.Cents
	}
	return s.flush()
}

// RenameSalesCategory moves every sales entry of oldName to newName across
// the account's shifts.
func (s *Store) RenameSalesCategory(accountID, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, byCategory := range s.doc.Sales[accountID] {
		for name, cents := range byCategory {
			if strings.EqualFold(name, oldName) {
				delete(byCategory, name)
				byCategory[newName] += cents
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	return s.flush()
}

// Preferences

func (s *Store) Preferences(accountID string) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.doc.Preferences[accountID]; ok {
		return p
	}
	return DefaultPreferences()
}

func (s *Store) SetPreferences(accountID string, p Preferences) error {
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.Theme = strings.ToLower(strings.TrimSpace(p.Theme))
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Preferences[accountID] = p
	return s.flush()
}
