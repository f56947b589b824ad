package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"kassa/internal/core"
	"kassa/internal/localstore"
	"kassa/internal/storage"
)

var errBracketInCategory = errors.New("category name cannot contain brackets")

// CategoryService keeps the per-account category list in the store, or in
// the local store when the store predates the categories table.
type CategoryService struct {
	store    storage.CategoryStore
	local    *localstore.Store
	defaults []string
}

// NewCategoryService falls back to an in-memory local store when local is nil.
// defaults seed the local list the first time an account falls back.
func NewCategoryService(store storage.CategoryStore, local *localstore.Store, defaults ...string) *CategoryService {
	if local == nil {
		local, _ = localstore.Open("")
	}
	return &CategoryService{store: store, local: local, defaults: defaults}
}

func (c *CategoryService) degraded(ctx context.Context, op string, err error) bool {
	if !core.IsSchemaFallback(err) {
		return false
	}
	slog.DebugContext(ctx, "Category store unavailable, using local store", "operation", op, "error", err)
	return true
}

// localFallback seeds the defaults before the local list is first read or
// changed.
func (c *CategoryService) localFallback(accountID string) error {
	return c.local.SeedCategories(accountID, c.defaults)
}

func (c *CategoryService) List(ctx context.Context, accountID string) ([]string, error) {
	names, err := c.store.ListCategories(ctx, accountID)
	if c.degraded(ctx, "list", err) {
		if err := c.localFallback(accountID); err != nil {
			return nil, err
		}
		return c.local.Categories(accountID), nil
	}
	return names, err
}

func (c *CategoryService) Add(ctx context.Context, accountID, name string) error {
	name, err := cleanCategory(name)
	if err != nil {
		return err
	}
	err = c.store.AddCategory(ctx, accountID, name)
	if c.degraded(ctx, "add", err) {
		if err := c.localFallback(accountID); err != nil {
			return err
		}
		return c.local.AddCategory(accountID, name)
	}
	return err
}

// Rename changes the list entry only; transactions are re-tagged by the
// ledger.
func (c *CategoryService) Rename(ctx context.Context, accountID, oldName, newName string) error {
	err := c.store.RenameCategory(ctx, accountID, oldName, newName)
	if c.degraded(ctx, "rename", err) {
		if err = c.localFallback(accountID); err == nil {
			err = c.local.RenameCategory(accountID, oldName, newName)
		}
	}
	if err != nil {
		return err
	}
	return c.local.RenameSalesCategory(accountID, oldName, newName)
}

// Delete removes the name from the list. Transactions keep their category.
func (c *CategoryService) Delete(ctx context.Context, accountID, name string) error {
	err := c.store.DeleteCategory(ctx, accountID, name)
	if c.degraded(ctx, "delete", err) {
		if err := c.localFallback(accountID); err != nil {
			return err
		}
		return c.local.DeleteCategory(accountID, name)
	}
	return err
}

func (c *CategoryService) Exists(ctx context.Context, accountID, name string) (bool, error) {
	names, err := c.List(ctx, accountID)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true, nil
		}
	}
	return false, nil
}

func cleanCategory(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	if strings.ContainsAny(name, "[]") {
		return "", &core.ValidationError{Field: "category", Err: errBracketInCategory}
	}
	return name, nil
}
