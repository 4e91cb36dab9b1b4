package services

import (
	"context"
	"errors"
	"fmt"

	"finflow/internal/amqp"
	"finflow/internal/core"
	"finflow/internal/storage"
)

// LedgerStore is the slice of the repository the ledger services need.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	SumTransactions(ctx context.Context, f storage.TransactionFilter) (storage.TypeSums, error)

	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, userID, id int64) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) (int64, error)
	ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error)
}

// UserStore persists accounts and profiles.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByID(ctx context.Context, id int64) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	UserTaken(ctx context.Context, username, email string) (bool, bool, error)
	GetProfile(ctx context.Context, userID int64) (core.Profile, error)
	SaveSettings(ctx context.Context, u core.User, p core.Profile) error
}

// EventPublisher announces committed ledger changes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev amqp.LedgerEvent) error
}

// Invalidator drops derived data for a user after a mutation.
type Invalidator interface {
	InvalidateUser(userID int64)
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishLedgerEvent(context.Context, amqp.LedgerEvent) error { return nil }

var _ EventPublisher = (*amqp.Client)(nil)

// classify passes domain sentinels through and marks everything else upstream.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrValidation) ||
		errors.Is(err, core.ErrNotFoundOrForbidden) ||
		errors.Is(err, core.ErrDuplicateCategory) {
		return err
	}
	return core.Upstream(fmt.Errorf("%s: %w", op, err))
}
