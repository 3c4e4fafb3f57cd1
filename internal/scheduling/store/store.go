// Package store persists courses and attendance marks.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/scheduling"
)

// Store is the persistence contract for the course catalog and attendance.
// Implementations return sentinel errors; the service translates them into
// coded domain errors.
type Store interface {
	SaveCourse(ctx context.Context, course *scheduling.Course) error
	FindCourse(ctx context.Context, id uuid.UUID) (*scheduling.Course, error)
	ListCourses(ctx context.Context) ([]*scheduling.Course, error)
	UpdateCourse(ctx context.Context, course *scheduling.Course) error
	// DeleteCourse removes the course; bookings and attendance cascade.
	DeleteCourse(ctx context.Context, id uuid.UUID) error

	// ListRoster returns the booked students for a course occurrence with
	// their current attendance state.
	ListRoster(ctx context.Context, courseID uuid.UUID, date time.Time) ([]*scheduling.RosterEntry, error)
	// ToggleAttendance flips a mark and reports the new state: true when the
	// mark now exists, false when it was removed.
	ToggleAttendance(ctx context.Context, courseID, studentID uuid.UUID, date time.Time) (bool, error)
	// ReplaceAttendance atomically overwrites the marks for a course
	// occurrence with the attended entries of the roster.
	ReplaceAttendance(ctx context.Context, courseID uuid.UUID, date time.Time, roster []scheduling.FinalizeEntry) error
	ListAttendance(ctx context.Context, from, to time.Time) ([]*scheduling.AttendanceMark, error)
}
