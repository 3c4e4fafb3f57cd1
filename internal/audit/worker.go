package audit

import (
	"context"
	"log/slog"
)

// Sink is an optional secondary destination for events (Kafka in production).
type Sink interface {
	Produce(ctx context.Context, event Event) error
}

// Worker consumes audit events from the publisher channel and persists them.
// A sink failure is logged but does not lose the store write; the store is the
// source of truth, the sink a feed.
type Worker struct {
	store  Store
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is cancelled, then flushes whatever
// is still buffered.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit append failed",
			"error", err,
			"action", event.Action,
			"entity_id", event.EntityID,
		)
	}
	if w.sink == nil {
		return
	}
	if err := w.sink.Produce(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit sink produce failed",
			"error", err,
			"action", event.Action,
		)
	}
}

// flush drains remaining buffered events with a detached context so shutdown
// does not silently discard them.
func (w *Worker) flush() {
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.handle(ctx, event)
		default:
			return
		}
	}
}
