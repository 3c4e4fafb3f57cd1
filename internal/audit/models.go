// Package audit records an append-only trail of the mutations that move money
// or seats: bookings, credit reloads, payments, deletions.
package audit

import (
	"context"
	"time"
)

// Actions recorded in the trail.
const (
	ActionBookingCreated   = "booking.created"
	ActionBookingCancelled = "booking.cancelled"
	ActionCreditReload     = "credit.reload"
	ActionPaymentRecorded  = "payment.recorded"
	ActionPaymentDeleted   = "payment.deleted"
	ActionExpenseRecorded  = "expense.recorded"
	ActionExpenseDeleted   = "expense.deleted"
	ActionUserRegistered   = "user.registered"
	ActionUserDeleted      = "user.deleted"
)

// Event is one audit trail entry. Actor is the user ID that caused the
// mutation (or "system").
type Event struct {
	ID        int64          `json:"id,omitempty"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"ts"`
}

// Store is the persistence contract for the trail.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, limit int) ([]Event, error)
}
