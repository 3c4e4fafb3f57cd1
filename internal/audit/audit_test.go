package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDropped struct {
	n int
}

func (c *countingDropped) Inc() { c.n++ }

type failingSink struct {
	calls int
}

func (s *failingSink) Produce(context.Context, Event) error {
	s.calls++
	return errors.New("broker unavailable")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherStampsTimestamp(t *testing.T) {
	inbox := make(chan Event, 1)
	p := NewPublisher(inbox, discardLogger(), &countingDropped{})

	p.Emit(Event{Action: ActionBookingCreated, Entity: "booking", EntityID: "1"})

	got := <-inbox
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, ActionBookingCreated, got.Action)
}

func TestPublisherDropsWhenBufferFull(t *testing.T) {
	inbox := make(chan Event, 1)
	dropped := &countingDropped{}
	p := NewPublisher(inbox, discardLogger(), dropped)

	p.Emit(Event{Action: ActionPaymentRecorded})
	p.Emit(Event{Action: ActionPaymentRecorded})

	assert.Equal(t, 1, dropped.n)
	assert.Len(t, inbox, 1)
}

func TestWorkerPersistsAndFlushesOnShutdown(t *testing.T) {
	inbox := make(chan Event, 8)
	store := NewInMemoryStore()
	worker := NewWorker(store, nil, inbox, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	p := NewPublisher(inbox, discardLogger(), nil)
	p.Emit(Event{Action: ActionUserRegistered, Entity: "user", EntityID: "u1"})
	p.Emit(Event{Action: ActionCreditReload, Entity: "user", EntityID: "u1"})

	require.Eventually(t, func() bool {
		events, err := store.List(context.Background(), 10)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	// Events still buffered at cancel time must not be lost.
	p.Emit(Event{Action: ActionUserDeleted, Entity: "user", EntityID: "u1"})
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	events, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestWorkerSinkFailureDoesNotLoseStoreWrite(t *testing.T) {
	inbox := make(chan Event, 1)
	store := NewInMemoryStore()
	sink := &failingSink{}
	worker := NewWorker(store, sink, inbox, discardLogger())

	inbox <- Event{Action: ActionExpenseRecorded, Entity: "expense", EntityID: "7"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = worker.Run(ctx)

	events, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, sink.calls)
}
