package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"finflow/internal/amqp"
	"finflow/internal/core"
	flog "finflow/internal/log"
	"finflow/internal/sheets"
	"finflow/internal/storage"
)

type (
	// LedgerReader loads what the mirror writes.
	LedgerReader interface {
		GetUserByID(ctx context.Context, id int64) (core.User, error)
		ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	}

	// EventSource delivers ledger events until ctx is cancelled.
	EventSource interface {
		ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, amqp.LedgerEvent) error) error
	}
)

var _ EventSource = (*amqp.Client)(nil)

// MirrorWorker rewrites a user's ledger tab whenever their ledger changes.
type MirrorWorker struct {
	store     LedgerReader
	mirror    sheets.LedgerMirror
	sheetName string

	// Observe, when set, is told the outcome of every mirror run.
	Observe func(ok bool)

	mu      sync.Mutex
	synced  int
	skipped int
}

func NewMirrorWorker(store LedgerReader, mirror sheets.LedgerMirror, sheetName string) *MirrorWorker {
	return &MirrorWorker{store: store, mirror: mirror, sheetName: sheetName}
}

// Run consumes events from src until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, src EventSource) error {
	err := src.ConsumeLedgerEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent mirrors the ledger of the event's user. Events for users that no
// longer exist are acknowledged and dropped.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		flog.FieldComponent, flog.ComponentWorker,
		flog.FieldOperation, flog.OpMirror,
		"event_id", ev.ID,
		flog.FieldKind, ev.Kind,
		flog.FieldUserID, ev.UserID)

	err := w.SyncUser(ctx, ev.UserID)
	if w.Observe != nil {
		w.Observe(err == nil)
	}
	if errors.Is(err, core.ErrNotFoundOrForbidden) {
		slog.WarnContext(ctx, "Dropping event for unknown user", flog.FieldComponent, flog.ComponentWorker, "event_id", ev.ID, flog.FieldUserID, ev.UserID)
		w.count(false)
		return nil
	}
	return err
}

// SyncUser rewrites userID's ledger tab from the database.
func (w *MirrorWorker) SyncUser(ctx context.Context, userID int64) error {
	user, err := w.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user %d: %w", userID, err)
	}

	txs, err := w.store.ListTransactions(ctx, storage.TransactionFilter{UserID: userID})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	tab := sheets.TabName(user.Username, w.sheetName)
	if err := w.mirror.ReplaceLedger(ctx, tab, sheets.LedgerRows(txs)); err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}

	w.count(true)
	slog.InfoContext(ctx, "Successfully mirrored ledger",
		flog.FieldComponent, flog.ComponentWorker,
		flog.FieldOperation, flog.OpMirror,
		flog.FieldUserID, userID,
		"tab", tab,
		"transactions", len(txs))
	return nil
}

// Stats returns how many events were mirrored and how many were dropped.
func (w *MirrorWorker) Stats() (synced, skipped int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.synced, w.skipped
}

func (w *MirrorWorker) count(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ok {
		w.synced++
	} else {
		w.skipped++
	}
}
