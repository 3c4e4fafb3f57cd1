// Package service implements course catalog management and the attendance
// register.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/scheduling"
	"arabesque/internal/scheduling/store"
	dErrors "arabesque/pkg/domainerrors"
	"arabesque/pkg/platform/sentinel"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CourseInput is the validated payload for creating or replacing a course.
type CourseInput struct {
	Name        string
	Description string
	Schedule    scheduling.Schedule
	Capacity    int
	TeacherID   *uuid.UUID
	Cost        float64
}

func (s *Service) CreateCourse(ctx context.Context, input CourseInput) (*scheduling.Course, error) {
	if input.Capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "capacity must be positive")
	}

	course := &scheduling.Course{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Schedule:    input.Schedule,
		Capacity:    input.Capacity,
		TeacherID:   input.TeacherID,
		Cost:        input.Cost,
		CreatedAt:   s.now(),
	}
	if err := s.store.SaveCourse(ctx, course); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save course")
	}
	return course, nil
}

func (s *Service) GetCourse(ctx context.Context, id uuid.UUID) (*scheduling.Course, error) {
	course, err := s.store.FindCourse(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "course not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read course")
	}
	return course, nil
}

func (s *Service) ListCourses(ctx context.Context) ([]*scheduling.Course, error) {
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list courses")
	}
	return courses, nil
}

func (s *Service) UpdateCourse(ctx context.Context, id uuid.UUID, input CourseInput) (*scheduling.Course, error) {
	if input.Capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "capacity must be positive")
	}

	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	course.Name = input.Name
	course.Description = input.Description
	course.Schedule = input.Schedule
	course.Capacity = input.Capacity
	course.TeacherID = input.TeacherID
	course.Cost = input.Cost

	if err := s.store.UpdateCourse(ctx, course); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "course not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update course")
	}
	return course, nil
}

// DeleteCourse removes a course and, through the schema, its bookings and
// attendance marks.
func (s *Service) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteCourse(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "course not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete course")
	}
	return nil
}

// Roster returns the booked students for a course occurrence with their
// attendance state.
func (s *Service) Roster(ctx context.Context, courseID uuid.UUID, date time.Time) ([]*scheduling.RosterEntry, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	roster, err := s.store.ListRoster(ctx, courseID, date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list roster")
	}
	return roster, nil
}

// ToggleAttendance flips the presence mark for a student and reports the new
// state.
func (s *Service) ToggleAttendance(ctx context.Context, courseID, studentID uuid.UUID, date time.Time) (bool, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return false, err
	}
	present, err := s.store.ToggleAttendance(ctx, courseID, studentID, date)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to toggle attendance")
	}
	return present, nil
}

// FinalizeAttendance overwrites the marks for a course occurrence with the
// client's roster verdict. Marks toggled by someone else between the read and
// this call are discarded, which is the documented close-out semantics.
func (s *Service) FinalizeAttendance(ctx context.Context, courseID uuid.UUID, date time.Time, roster []scheduling.FinalizeEntry) error {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return err
	}
	if err := s.store.ReplaceAttendance(ctx, courseID, date, roster); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize attendance")
	}
	return nil
}

// AttendanceReport lists marks in a date range, both bounds inclusive.
func (s *Service) AttendanceReport(ctx context.Context, from, to time.Time) ([]*scheduling.AttendanceMark, error) {
	if to.Before(from) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "date range is inverted")
	}
	marks, err := s.store.ListAttendance(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	return marks, nil
}
