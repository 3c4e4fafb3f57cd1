// Package service implements the booking ledger: capacity-checked seat
// reservation with atomic credit debit, and cancellation with refund.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/audit"
	"arabesque/internal/booking"
	"arabesque/internal/platform/metrics"
	dErrors "arabesque/pkg/domainerrors"
	"arabesque/pkg/platform/sentinel"
)

// ListStore is the read side used outside the transaction boundary.
type ListStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*booking.Booking, error)
}

// AuditTrail records ledger mutations after they commit.
type AuditTrail interface {
	Emit(event audit.Event)
}

type Service struct {
	tx      Tx
	reads   ListStore
	trail   AuditTrail
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(tx Tx, reads ListStore, trail AuditTrail, m *metrics.Metrics) *Service {
	return &Service{
		tx:      tx,
		reads:   reads,
		trail:   trail,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Tests use this to pin "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create reserves one seat for the student and debits one credit, or fails
// leaving all state unchanged. Checks run in a fixed order inside one
// transaction: balance, course existence, capacity, uniqueness.
func (s *Service) Create(ctx context.Context, studentID, courseID uuid.UUID, classDate time.Time) (*booking.Booking, error) {
	classDate = booking.DateOnly(classDate)

	var created *booking.Booking
	err := s.tx.RunInTx(ctx, func(stores TxStores) error {
		credits, err := stores.CreditBalance(ctx, studentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "student not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credit balance")
		}
		if credits < 1 {
			return dErrors.New(dErrors.CodeInsufficientCredit, "insufficient credit: buy more credits to book")
		}

		capacity, err := stores.CourseCapacity(ctx, courseID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "course not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read course")
		}

		taken, err := stores.ConfirmedCount(ctx, courseID, classDate)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count bookings")
		}
		if taken >= capacity {
			return dErrors.New(dErrors.CodeCapacityExceeded, "class is full for that date")
		}

		b := &booking.Booking{
			UserID:    studentID,
			CourseID:  courseID,
			ClassDate: classDate,
			Status:    booking.StatusConfirmed,
			CreatedAt: s.now(),
		}
		if err := stores.InsertBooking(ctx, b); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "you already booked this class for that date")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert booking")
		}

		if err := stores.AdjustCredits(ctx, studentID, -1); err != nil {
			// A parallel booking can drain the balance between the read
			// above and this debit; the store's guard catches it.
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeInsufficientCredit, "insufficient credit: buy more credits to book")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit credit")
		}

		created = b
		return nil
	})
	if err != nil {
		s.metrics.BookingFailures.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		return nil, err
	}

	s.metrics.BookingsCreated.Inc()
	s.trail.Emit(audit.Event{
		Actor:    studentID.String(),
		Action:   audit.ActionBookingCreated,
		Entity:   "booking",
		EntityID: created.CourseID.String(),
		Detail: map[string]any{
			"booking_id": created.ID,
			"class_date": created.ClassDate.Format(time.DateOnly),
		},
	})
	return created, nil
}

// Cancel deletes the booking and refunds one credit, atomically, only when the
// booking belongs to the caller and its class date has not passed. A booking
// that exists but belongs to someone else reads as not found so callers cannot
// probe other students' reservations.
func (s *Service) Cancel(ctx context.Context, studentID uuid.UUID, bookingID int64) error {
	today := booking.DateOnly(s.now())

	var cancelled *booking.Booking
	err := s.tx.RunInTx(ctx, func(stores TxStores) error {
		b, err := stores.FindBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "booking not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read booking")
		}
		if b.UserID != studentID {
			return dErrors.New(dErrors.CodeNotFound, "booking not found")
		}
		if b.ClassDate.Before(today) {
			return dErrors.New(dErrors.CodeInvalidState, "class date has passed; booking can no longer be cancelled")
		}

		if err := stores.DeleteBooking(ctx, bookingID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete booking")
		}
		if err := stores.AdjustCredits(ctx, studentID, 1); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refund credit")
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.BookingsCancelled.Inc()
	s.trail.Emit(audit.Event{
		Actor:    studentID.String(),
		Action:   audit.ActionBookingCancelled,
		Entity:   "booking",
		EntityID: cancelled.CourseID.String(),
		Detail: map[string]any{
			"booking_id": bookingID,
			"class_date": cancelled.ClassDate.Format(time.DateOnly),
		},
	})
	return nil
}

// ListForUser returns the caller's bookings, soonest class first.
func (s *Service) ListForUser(ctx context.Context, studentID uuid.UUID) ([]*booking.Booking, error) {
	bookings, err := s.reads.ListForUser(ctx, studentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bookings")
	}
	return bookings, nil
}
