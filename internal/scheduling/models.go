// Package scheduling holds the course catalog and the attendance register.
package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Schedule describes when a course recurs: weekday names plus a free-text
// time range such as "18:00-19:30".
type Schedule struct {
	Days []string `json:"days"`
	Time string   `json:"time"`
}

// Course is a recurring offering. TeacherID is nil once the teacher account
// is deleted; the course itself stays on the timetable.
type Course struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Schedule    Schedule   `json:"schedule"`
	Capacity    int        `json:"capacity"`
	TeacherID   *uuid.UUID `json:"teacher_id,omitempty"`
	TeacherName string     `json:"teacher_name,omitempty"`
	Cost        float64    `json:"cost"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AttendanceMark records that a student was present in a course on a date.
type AttendanceMark struct {
	ID        int64     `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	StudentID uuid.UUID `json:"student_id"`
	Date      time.Time `json:"date"`
}

// RosterEntry is one student on a course occurrence's roster, with their
// current attendance state.
type RosterEntry struct {
	StudentID uuid.UUID `json:"student_id"`
	Name      string    `json:"name"`
	Attended  bool      `json:"attended"`
}

// FinalizeEntry is the client's verdict for one student when closing out an
// occurrence.
type FinalizeEntry struct {
	StudentID uuid.UUID `json:"student_id"`
	Attended  bool      `json:"attended"`
}
