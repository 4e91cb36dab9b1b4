package services

import (
	"context"
	"log/slog"

	"finflow/internal/amqp"
	flog "finflow/internal/log"
)

// ledger bundles what every mutation does after it commits.
type ledger struct {
	store  LedgerStore
	events EventPublisher
	cache  Invalidator
}

func newLedger(store LedgerStore, events EventPublisher, cache Invalidator) ledger {
	if events == nil {
		events = NopPublisher{}
	}
	return ledger{store: store, events: events, cache: cache}
}

// committed invalidates cached reports, logs the change and publishes an event.
// The row is already stored, so a publish failure is only logged.
func (l ledger) committed(ctx context.Context, kind amqp.EventKind, op, entity string, userID, id int64) {
	if l.cache != nil {
		l.cache.InvalidateUser(userID)
	}
	flog.NewStructuredLogger(flog.FromContext(ctx)).LogMutation(ctx, op, userID, entity, id)

	ev := amqp.NewLedgerEvent(kind, userID, id)
	if err := l.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			flog.FieldComponent, flog.ComponentLedger,
			"event_id", ev.ID,
			flog.FieldKind, kind,
			flog.FieldUserID, userID,
			flog.FieldEntityID, id,
			flog.FieldError, err)
	}
}
