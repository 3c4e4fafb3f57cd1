// Package booking is the credit-backed seat reservation ledger. Reserving a
// seat debits one credit and cancelling refunds it, atomically, with the
// course capacity enforced per class occurrence (course + calendar date).
package booking

import (
	"time"

	"github.com/google/uuid"
)

// StatusConfirmed is the only status ever written; the column exists for
// schema compatibility and future states.
const StatusConfirmed = "CONFIRMED"

// Booking reserves one seat for a student in a course occurrence.
type Booking struct {
	ID         int64     `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	CourseID   uuid.UUID `json:"course_id"`
	ClassDate  time.Time `json:"class_date"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	CourseName string    `json:"course_name,omitempty"`
}

// DateOnly truncates t to its calendar date in UTC. Bookings key on dates,
// never times.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
