package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"arabesque/internal/scheduling"
	"arabesque/internal/scheduling/store"
	dErrors "arabesque/pkg/domainerrors"
)

type SchedulingSuite struct {
	suite.Suite
	store *store.InMemoryStore
	svc   *Service
	date  time.Time
}

func TestSchedulingSuite(t *testing.T) {
	suite.Run(t, new(SchedulingSuite))
}

func (s *SchedulingSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.svc = NewService(s.store)
	s.date = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
}

func (s *SchedulingSuite) createCourse() *scheduling.Course {
	course, err := s.svc.CreateCourse(context.Background(), CourseInput{
		Name:     "Ballet II",
		Schedule: scheduling.Schedule{Days: []string{"Tuesday", "Thursday"}, Time: "18:00-19:30"},
		Capacity: 12,
		Cost:     45,
	})
	s.Require().NoError(err)
	return course
}

func (s *SchedulingSuite) TestCreateRejectsNonPositiveCapacity() {
	_, err := s.svc.CreateCourse(context.Background(), CourseInput{Name: "Ballet", Capacity: 0})
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func (s *SchedulingSuite) TestUpdateMissingCourse() {
	_, err := s.svc.UpdateCourse(context.Background(), uuid.New(), CourseInput{Name: "Ballet", Capacity: 10})
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *SchedulingSuite) TestUpdateReplacesFields() {
	course := s.createCourse()

	updated, err := s.svc.UpdateCourse(context.Background(), course.ID, CourseInput{
		Name:     "Ballet III",
		Schedule: course.Schedule,
		Capacity: 8,
		Cost:     50,
	})
	s.Require().NoError(err)
	s.Equal("Ballet III", updated.Name)
	s.Equal(8, updated.Capacity)
}

func (s *SchedulingSuite) TestDeleteThenGet() {
	course := s.createCourse()

	s.Require().NoError(s.svc.DeleteCourse(context.Background(), course.ID))

	_, err := s.svc.GetCourse(context.Background(), course.ID)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *SchedulingSuite) TestToggleAttendanceFlips() {
	ctx := context.Background()
	course := s.createCourse()
	student := uuid.New()

	present, err := s.svc.ToggleAttendance(ctx, course.ID, student, s.date)
	s.Require().NoError(err)
	s.True(present)

	present, err = s.svc.ToggleAttendance(ctx, course.ID, student, s.date)
	s.Require().NoError(err)
	s.False(present)
}

func (s *SchedulingSuite) TestToggleAttendanceUnknownCourse() {
	_, err := s.svc.ToggleAttendance(context.Background(), uuid.New(), uuid.New(), s.date)
	s.Require().Error(err)
	s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func (s *SchedulingSuite) TestRosterReflectsMarks() {
	ctx := context.Background()
	course := s.createCourse()
	ana, bea := uuid.New(), uuid.New()
	s.store.SeedBooking(course.ID, ana, "Ana", s.date)
	s.store.SeedBooking(course.ID, bea, "Bea", s.date)

	_, err := s.svc.ToggleAttendance(ctx, course.ID, ana, s.date)
	s.Require().NoError(err)

	roster, err := s.svc.Roster(ctx, course.ID, s.date)
	s.Require().NoError(err)
	s.Require().Len(roster, 2)
	s.True(roster[0].Attended)
	s.Equal("Ana", roster[0].Name)
	s.False(roster[1].Attended)
}

func (s *SchedulingSuite) TestFinalizeOverwritesExistingMarks() {
	ctx := context.Background()
	course := s.createCourse()
	ana, bea := uuid.New(), uuid.New()

	// Ana was toggled present during class; the close-out then says only Bea
	// attended. Finalize wins.
	_, err := s.svc.ToggleAttendance(ctx, course.ID, ana, s.date)
	s.Require().NoError(err)

	err = s.svc.FinalizeAttendance(ctx, course.ID, s.date, []scheduling.FinalizeEntry{
		{StudentID: ana, Attended: false},
		{StudentID: bea, Attended: true},
	})
	s.Require().NoError(err)

	marks, err := s.svc.AttendanceReport(ctx, s.date, s.date)
	s.Require().NoError(err)
	s.Require().Len(marks, 1)
	s.Equal(bea, marks[0].StudentID)
}

func (s *SchedulingSuite) TestAttendanceReportRejectsInvertedRange() {
	_, err := s.svc.AttendanceReport(context.Background(), s.date, s.date.AddDate(0, 0, -1))
	s.Require().Error(err)
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}
