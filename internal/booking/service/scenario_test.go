package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	bookingservice "arabesque/internal/booking/service"
	bookingstore "arabesque/internal/booking/store"
	"arabesque/internal/identity"
	identityservice "arabesque/internal/identity/service"
	identitystore "arabesque/internal/identity/store"
	"arabesque/internal/platform/metrics"
	dErrors "arabesque/pkg/domainerrors"
)

// The full student journey over one shared credit balance: first login of the
// month funds the account, a capacity-1 course is booked, a rival is turned
// away, cancellation frees the seat and refunds the credit, and the rival
// then gets the seat.
func TestSeasonOfABooking(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 8, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	reg := metrics.New(prometheus.NewRegistry())

	users := identitystore.NewInMemory()
	seats := bookingstore.NewInMemory(users)

	identitySvc := identityservice.NewService(users, seats, &recordingTrail{}, reg).WithClock(clock)
	bookingSvc := bookingservice.NewService(
		bookingstore.NewMemoryTx(seats), seats, &recordingTrail{}, reg,
	).WithClock(clock)

	courseID := uuid.New()
	seats.SeedCourse(courseID, 1, "Pointe")
	classDate := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	register := func(email string) uuid.UUID {
		user, err := identitySvc.Register(ctx, identityservice.RegisterInput{
			Name:        "Student",
			Email:       email,
			Password:    "s3cret-pass",
			Role:        identity.RoleStudent,
			WeeklyLimit: 2,
		})
		require.NoError(t, err)
		return user.ID
	}
	ana := register("ana@example.com")
	bea := register("bea@example.com")

	// First login of March funds the balance: 2 per week times 4.
	anaUser, err := identitySvc.Authenticate(ctx, "ana@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, 8, anaUser.Credits)
	require.Equal(t, "March-2026", anaUser.LastCreditReload)

	_, err = identitySvc.Authenticate(ctx, "bea@example.com", "s3cret-pass")
	require.NoError(t, err)

	created, err := bookingSvc.Create(ctx, ana, courseID, classDate)
	require.NoError(t, err)
	balance, _ := users.Balance(ana)
	require.Equal(t, 7, balance)

	_, err = bookingSvc.Create(ctx, bea, courseID, classDate)
	require.Error(t, err)
	require.Equal(t, dErrors.CodeCapacityExceeded, dErrors.CodeOf(err))

	require.NoError(t, bookingSvc.Cancel(ctx, ana, created.ID))
	balance, _ = users.Balance(ana)
	require.Equal(t, 8, balance)

	_, err = bookingSvc.Create(ctx, bea, courseID, classDate)
	require.NoError(t, err)
}
