package services

import (
	"context"
	"strings"

	"finflow/internal/amqp"
	"finflow/internal/core"
	flog "finflow/internal/log"
)

// CategoryService manages a user's income and expense categories.
type CategoryService struct {
	ledger
}

func NewCategoryService(store LedgerStore, events EventPublisher, cache Invalidator) *CategoryService {
	return &CategoryService{ledger: newLedger(store, events, cache)}
}

// List returns categories ordered by type then name. An empty kind lists both.
func (s *CategoryService) List(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, userID, kind)
	return cats, classify("list categories", err)
}

func (s *CategoryService) Get(ctx context.Context, userID, id int64) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, userID, id)
	return c, classify("get category", err)
}

func (s *CategoryService) Create(ctx context.Context, userID int64, name string, kind core.Kind) (core.Category, error) {
	c := core.Category{UserID: userID, Name: strings.TrimSpace(name), Type: kind}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, classify("create category", err)
	}
	s.committed(ctx, amqp.CategoryCreated, flog.OpCreate, "category", userID, created.ID)
	return created, nil
}

// Update renames or retypes category id. Existing transactions keep their own type.
func (s *CategoryService) Update(ctx context.Context, userID, id int64, name string, kind core.Kind) (core.Category, error) {
	current, err := s.store.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, classify("get category", err)
	}
	current.Name = strings.TrimSpace(name)
	current.Type = kind
	if err := current.Validate(); err != nil {
		return core.Category{}, err
	}

	updated, err := s.store.UpdateCategory(ctx, current)
	if err != nil {
		return core.Category{}, classify("update category", err)
	}
	s.committed(ctx, amqp.CategoryUpdated, flog.OpUpdate, "category", userID, id)
	return updated, nil
}

// Delete removes category id and returns it as it was, so callers can
// report its name. Its transactions become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) (core.Category, error) {
	current, err := s.store.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, classify("get category", err)
	}
	if _, err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return core.Category{}, classify("delete category", err)
	}
	s.committed(ctx, amqp.CategoryDeleted, flog.OpDelete, "category", userID, id)
	return current, nil
}
