package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arabesque/internal/booking"
	"arabesque/internal/booking/service"
	"arabesque/pkg/platform/sentinel"
)

type fakeLedger struct {
	balances map[uuid.UUID]int
}

func (l *fakeLedger) Balance(id uuid.UUID) (int, bool) {
	balance, ok := l.balances[id]
	return balance, ok
}

func (l *fakeLedger) Adjust(id uuid.UUID, delta int) {
	l.balances[id] += delta
}

func TestAdjustCreditsRefusesOverdraw(t *testing.T) {
	ctx := context.Background()
	student := uuid.New()
	ledger := &fakeLedger{balances: map[uuid.UUID]int{student: 1}}
	st := NewInMemory(ledger)

	require.NoError(t, st.AdjustCredits(ctx, student, -1))
	assert.Equal(t, 0, ledger.balances[student])

	err := st.AdjustCredits(ctx, student, -1)
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
	assert.Equal(t, 0, ledger.balances[student])
}

func TestAdjustCreditsUnknownUser(t *testing.T) {
	st := NewInMemory(&fakeLedger{balances: map[uuid.UUID]int{}})
	err := st.AdjustCredits(context.Background(), uuid.New(), 1)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryTxRestoresBookingsOnFailure(t *testing.T) {
	ctx := context.Background()
	student := uuid.New()
	courseID := uuid.New()
	ledger := &fakeLedger{balances: map[uuid.UUID]int{student: 3}}
	st := NewInMemory(ledger)
	st.SeedCourse(courseID, 10, "Ballet II")
	tx := NewMemoryTx(st)

	classDate := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	err := tx.RunInTx(ctx, func(stores service.TxStores) error {
		b := &booking.Booking{
			UserID:    student,
			CourseID:  courseID,
			ClassDate: classDate,
			Status:    booking.StatusConfirmed,
		}
		if err := stores.InsertBooking(ctx, b); err != nil {
			return err
		}
		// The user vanishing mid-transaction makes the debit fail after the
		// insert already landed.
		return stores.AdjustCredits(ctx, uuid.New(), -1)
	})
	require.Error(t, err)

	count, err := st.ConfirmedCount(ctx, courseID, classDate)
	require.NoError(t, err)
	assert.Zero(t, count)

	bookings, err := st.ListForUser(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.Equal(t, 3, ledger.balances[student])
}

func TestMemoryTxKeepsCommittedBookings(t *testing.T) {
	ctx := context.Background()
	student := uuid.New()
	courseID := uuid.New()
	st := NewInMemory(&fakeLedger{balances: map[uuid.UUID]int{student: 3}})
	st.SeedCourse(courseID, 10, "Ballet II")
	tx := NewMemoryTx(st)

	classDate := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, tx.RunInTx(ctx, func(stores service.TxStores) error {
		return stores.InsertBooking(ctx, &booking.Booking{
			UserID:    student,
			CourseID:  courseID,
			ClassDate: classDate,
			Status:    booking.StatusConfirmed,
		})
	}))

	failed := tx.RunInTx(ctx, func(stores service.TxStores) error {
		return errors.New("late failure")
	})
	require.Error(t, failed)

	count, err := st.ConfirmedCount(ctx, courseID, classDate)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
