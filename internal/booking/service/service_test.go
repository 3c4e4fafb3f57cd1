package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"arabesque/internal/audit"
	"arabesque/internal/booking"
	"arabesque/internal/booking/service"
	bookingstore "arabesque/internal/booking/store"
	"arabesque/internal/identity"
	identitystore "arabesque/internal/identity/store"
	"arabesque/internal/platform/metrics"
	dErrors "arabesque/pkg/domainerrors"
)

type recordingTrail struct {
	events []audit.Event
}

func (r *recordingTrail) Emit(event audit.Event) {
	r.events = append(r.events, event)
}

type BookingSuite struct {
	suite.Suite
	users    *identitystore.InMemoryStore
	store    *bookingstore.InMemoryStore
	trail    *recordingTrail
	svc      *service.Service
	now      time.Time
	courseID uuid.UUID
	ana      uuid.UUID
	bea      uuid.UUID
}

func TestBookingSuite(t *testing.T) {
	suite.Run(t, new(BookingSuite))
}

func (s *BookingSuite) SetupTest() {
	s.users = identitystore.NewInMemory()
	s.store = bookingstore.NewInMemory(s.users)
	s.trail = &recordingTrail{}
	s.now = time.Date(2026, time.March, 8, 10, 0, 0, 0, time.UTC)
	s.svc = service.NewService(
		bookingstore.NewMemoryTx(s.store),
		s.store,
		s.trail,
		metrics.New(prometheus.NewRegistry()),
	).WithClock(func() time.Time { return s.now })

	s.courseID = uuid.New()
	s.store.SeedCourse(s.courseID, 10, "Ballet II")

	s.ana = s.seedStudent("ana@example.com", 5)
	s.bea = s.seedStudent("bea@example.com", 5)
}

func (s *BookingSuite) seedStudent(email string, credits int) uuid.UUID {
	user := &identity.User{
		ID:      uuid.New(),
		Name:    "Student",
		Email:   email,
		Role:    identity.RoleStudent,
		Active:  true,
		Credits: credits,
	}
	s.Require().NoError(s.users.Save(context.Background(), user))
	return user.ID
}

func (s *BookingSuite) balance(id uuid.UUID) int {
	balance, ok := s.users.Balance(id)
	s.Require().True(ok)
	return balance
}

func (s *BookingSuite) classDate() time.Time {
	return time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
}

func (s *BookingSuite) TestCreateDebitsOneCredit() {
	created, err := s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().NoError(err)

	s.Equal(booking.StatusConfirmed, created.Status)
	s.Equal(4, s.balance(s.ana))
	s.Require().Len(s.trail.events, 1)
	s.Equal(audit.ActionBookingCreated, s.trail.events[0].Action)
}

func (s *BookingSuite) TestCreateWithZeroCredits() {
	broke := s.seedStudent("cat@example.com", 0)

	_, err := s.svc.Create(context.Background(), broke, s.courseID, s.classDate())
	s.Require().Error(err)
	s.Equal(dErrors.CodeInsufficientCredit, dErrors.CodeOf(err))

	bookings, err := s.svc.ListForUser(context.Background(), broke)
	s.Require().NoError(err)
	s.Empty(bookings)
}

func (s *BookingSuite) TestCreateUnknownCourse() {
	_, err := s.svc.Create(context.Background(), s.ana, uuid.New(), s.classDate())
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	s.Equal(5, s.balance(s.ana))
}

func (s *BookingSuite) TestCreditCheckRunsBeforeCourseCheck() {
	broke := s.seedStudent("cat@example.com", 0)

	// Both preconditions fail; the balance check is ordered first.
	_, err := s.svc.Create(context.Background(), broke, uuid.New(), s.classDate())
	s.Require().Error(err)
	s.Equal(dErrors.CodeInsufficientCredit, dErrors.CodeOf(err))
}

func (s *BookingSuite) TestDuplicateBookingConflicts() {
	_, err := s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().NoError(err)

	_, err = s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().Error(err)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))

	// The failed attempt must not burn a credit.
	s.Equal(4, s.balance(s.ana))
}

func (s *BookingSuite) TestCapacityExceeded() {
	tiny := uuid.New()
	s.store.SeedCourse(tiny, 1, "Pointe")

	_, err := s.svc.Create(context.Background(), s.ana, tiny, s.classDate())
	s.Require().NoError(err)

	_, err = s.svc.Create(context.Background(), s.bea, tiny, s.classDate())
	s.Require().Error(err)
	s.Equal(dErrors.CodeCapacityExceeded, dErrors.CodeOf(err))
	s.Equal(5, s.balance(s.bea))
}

func (s *BookingSuite) TestSameCourseDifferentDateDoesNotCountAgainstCapacity() {
	tiny := uuid.New()
	s.store.SeedCourse(tiny, 1, "Pointe")

	_, err := s.svc.Create(context.Background(), s.ana, tiny, s.classDate())
	s.Require().NoError(err)

	_, err = s.svc.Create(context.Background(), s.bea, tiny, s.classDate().AddDate(0, 0, 2))
	s.NoError(err)
}

func (s *BookingSuite) TestCreateThenCancelConservesCredits() {
	created, err := s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().NoError(err)
	s.Equal(4, s.balance(s.ana))

	s.Require().NoError(s.svc.Cancel(context.Background(), s.ana, created.ID))
	s.Equal(5, s.balance(s.ana))

	bookings, err := s.svc.ListForUser(context.Background(), s.ana)
	s.Require().NoError(err)
	s.Empty(bookings)
}

func (s *BookingSuite) TestCancelSomeoneElsesBookingReadsAsNotFound() {
	created, err := s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().NoError(err)

	err = s.svc.Cancel(context.Background(), s.bea, created.ID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	s.Equal(4, s.balance(s.ana))
}

func (s *BookingSuite) TestCancelAfterClassDateRejected() {
	created, err := s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().NoError(err)

	s.now = time.Date(2026, time.March, 11, 8, 0, 0, 0, time.UTC)
	err = s.svc.Cancel(context.Background(), s.ana, created.ID)
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidState, dErrors.CodeOf(err))
	s.Equal(4, s.balance(s.ana))
}

func (s *BookingSuite) TestCancelOnClassDateStillAllowed() {
	created, err := s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().NoError(err)

	s.now = time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
	s.NoError(s.svc.Cancel(context.Background(), s.ana, created.ID))
}

func (s *BookingSuite) TestListForUserIncludesCourseName() {
	_, err := s.svc.Create(context.Background(), s.ana, s.courseID, s.classDate())
	s.Require().NoError(err)

	bookings, err := s.svc.ListForUser(context.Background(), s.ana)
	s.Require().NoError(err)
	s.Require().Len(bookings, 1)
	s.Equal("Ballet II", bookings[0].CourseName)
}
