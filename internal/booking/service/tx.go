package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/booking"
)

// TxStores is the view of persistence the ledger mutates inside one
// transaction. Implementations return sentinel errors for infrastructure
// facts; the service translates them into domain errors.
type TxStores interface {
	// CreditBalance reads the student's current balance.
	CreditBalance(ctx context.Context, userID uuid.UUID) (int, error)

	// AdjustCredits moves the balance by delta (negative to debit).
	AdjustCredits(ctx context.Context, userID uuid.UUID, delta int) error

	// CourseCapacity reads the course capacity. The Postgres implementation
	// locks the course row (SELECT ... FOR UPDATE) so the capacity check and
	// insert serialize per course; without the lock two transactions could
	// both pass the seat count for the last open seat.
	CourseCapacity(ctx context.Context, courseID uuid.UUID) (int, error)

	// ConfirmedCount counts CONFIRMED bookings for the course occurrence.
	ConfirmedCount(ctx context.Context, courseID uuid.UUID, classDate time.Time) (int, error)

	// InsertBooking writes the reservation. A duplicate
	// (user, course, class_date) surfaces as sentinel.ErrConflict.
	InsertBooking(ctx context.Context, b *booking.Booking) error

	FindBooking(ctx context.Context, id int64) (*booking.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

// Tx provides the transactional boundary for ledger mutations. Implementations
// wrap a database transaction or, in-memory, a coarse lock.
type Tx interface {
	RunInTx(ctx context.Context, fn func(stores TxStores) error) error
}
