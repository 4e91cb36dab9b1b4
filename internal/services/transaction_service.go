package services

import (
	"context"
	"errors"
	"strings"

	"finflow/internal/amqp"
	"finflow/internal/core"
	flog "finflow/internal/log"
	"finflow/internal/storage"
)

// TransactionService owns create/update/delete of a user's transactions.
type TransactionService struct {
	ledger
}

func NewTransactionService(store LedgerStore, events EventPublisher, cache Invalidator) *TransactionService {
	return &TransactionService{ledger: newLedger(store, events, cache)}
}

// TransactionQuery narrows a listing. Zero values mean "any".
type TransactionQuery struct {
	Search     string
	Type       core.Kind
	CategoryID int64
	Limit      int
}

func (q TransactionQuery) filter(userID int64) storage.TransactionFilter {
	return storage.TransactionFilter{
		UserID:     userID,
		Type:       q.Type,
		CategoryID: q.CategoryID,
		Search:     strings.TrimSpace(q.Search),
		Limit:      q.Limit,
	}
}

func (s *TransactionService) List(ctx context.Context, userID int64, q TransactionQuery) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, q.filter(userID))
	return txs, classify("list transactions", err)
}

// Totals sums the transactions matching q, ignoring its limit.
func (s *TransactionService) Totals(ctx context.Context, userID int64, q TransactionQuery) (storage.TypeSums, error) {
	f := q.filter(userID)
	f.Limit = 0
	sums, err := s.store.SumTransactions(ctx, f)
	return sums, classify("sum transactions", err)
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	return t, classify("get transaction", err)
}

// Create validates draft and stores it for userID. Draft.ID and UserID are ignored.
func (s *TransactionService) Create(ctx context.Context, userID int64, draft core.Transaction) (core.Transaction, error) {
	draft.ID = 0
	draft.UserID = userID
	if err := s.validate(ctx, &draft); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.CreateTransaction(ctx, draft)
	if err != nil {
		return core.Transaction{}, classify("create transaction", err)
	}
	s.committed(ctx, amqp.TransactionCreated, flog.OpCreate, "transaction", userID, t.ID)
	return t, nil
}

// Update replaces the editable fields of transaction id.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, draft core.Transaction) (core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, classify("get transaction", err)
	}

	current.Date = draft.Date
	current.Description = draft.Description
	current.CategoryID = draft.CategoryID
	current.Type = draft.Type
	current.Amount = draft.Amount
	if err := s.validate(ctx, &current); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.UpdateTransaction(ctx, current)
	if err != nil {
		return core.Transaction{}, classify("update transaction", err)
	}
	s.committed(ctx, amqp.TransactionUpdated, flog.OpUpdate, "transaction", userID, id)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return classify("delete transaction", err)
	}
	s.committed(ctx, amqp.TransactionDeleted, flog.OpDelete, "transaction", userID, id)
	return nil
}

// validate trims text fields, checks the draft and that its category belongs to the owner.
func (s *TransactionService) validate(ctx context.Context, t *core.Transaction) error {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CategoryID == nil {
		return nil
	}
	if _, err := s.store.GetCategory(ctx, t.UserID, *t.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFoundOrForbidden) {
			return core.ErrInvalidCategory
		}
		return classify("get category", err)
	}
	return nil
}
