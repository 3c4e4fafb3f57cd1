package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/scheduling"
	"arabesque/pkg/platform/sentinel"
)

type attendanceKey struct {
	courseID  uuid.UUID
	studentID uuid.UUID
	date      string
}

type rosterSeat struct {
	courseID  uuid.UUID
	studentID uuid.UUID
	name      string
	date      string
}

// CourseMirror receives catalog changes. The booking ledger's in-memory store
// implements it, so databaseless runs keep the capacity view and delete
// cascade the schema otherwise provides through foreign keys.
type CourseMirror interface {
	SeedCourse(id uuid.UUID, capacity int, name string)
	RemoveCourse(id uuid.UUID)
}

// InMemoryStore backs the scheduling service in tests and databaseless runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	mirror  CourseMirror
	courses map[uuid.UUID]*scheduling.Course
	marks   map[attendanceKey]int64
	seats   []rosterSeat
	nextID  int64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		courses: make(map[uuid.UUID]*scheduling.Course),
		marks:   make(map[attendanceKey]int64),
		nextID:  1,
	}
}

// MirrorCourses forwards every course save and delete to m.
func (s *InMemoryStore) MirrorCourses(m CourseMirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = m
}

// SeedBooking registers a student on a course occurrence so roster reads have
// something to return. The Postgres store derives this from the bookings
// table instead.
func (s *InMemoryStore) SeedBooking(courseID, studentID uuid.UUID, name string, date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats = append(s.seats, rosterSeat{
		courseID:  courseID,
		studentID: studentID,
		name:      name,
		date:      dayKey(date),
	})
}

func (s *InMemoryStore) SaveCourse(_ context.Context, course *scheduling.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *course
	s.courses[course.ID] = &copied
	if s.mirror != nil {
		s.mirror.SeedCourse(course.ID, course.Capacity, course.Name)
	}
	return nil
}

func (s *InMemoryStore) FindCourse(_ context.Context, id uuid.UUID) (*scheduling.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *course
	return &copied, nil
}

func (s *InMemoryStore) ListCourses(_ context.Context) ([]*scheduling.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses := make([]*scheduling.Course, 0, len(s.courses))
	for _, course := range s.courses {
		copied := *course
		courses = append(courses, &copied)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (s *InMemoryStore) UpdateCourse(_ context.Context, course *scheduling.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[course.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *course
	s.courses[course.ID] = &copied
	if s.mirror != nil {
		s.mirror.SeedCourse(course.ID, course.Capacity, course.Name)
	}
	return nil
}

func (s *InMemoryStore) DeleteCourse(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.courses, id)
	for key := range s.marks {
		if key.courseID == id {
			delete(s.marks, key)
		}
	}
	if s.mirror != nil {
		s.mirror.RemoveCourse(id)
	}
	return nil
}

func (s *InMemoryStore) ListRoster(_ context.Context, courseID uuid.UUID, date time.Time) ([]*scheduling.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := dayKey(date)

	var roster []*scheduling.RosterEntry
	for _, seat := range s.seats {
		if seat.courseID != courseID || seat.date != day {
			continue
		}
		_, attended := s.marks[attendanceKey{courseID: courseID, studentID: seat.studentID, date: day}]
		roster = append(roster, &scheduling.RosterEntry{
			StudentID: seat.studentID,
			Name:      seat.name,
			Attended:  attended,
		})
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
	return roster, nil
}

func (s *InMemoryStore) ToggleAttendance(_ context.Context, courseID, studentID uuid.UUID, date time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attendanceKey{courseID: courseID, studentID: studentID, date: dayKey(date)}
	if _, ok := s.marks[key]; ok {
		delete(s.marks, key)
		return false, nil
	}
	s.marks[key] = s.nextID
	s.nextID++
	return true, nil
}

func (s *InMemoryStore) ReplaceAttendance(_ context.Context, courseID uuid.UUID, date time.Time, roster []scheduling.FinalizeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := dayKey(date)

	for key := range s.marks {
		if key.courseID == courseID && key.date == day {
			delete(s.marks, key)
		}
	}
	for _, entry := range roster {
		if !entry.Attended {
			continue
		}
		s.marks[attendanceKey{courseID: courseID, studentID: entry.StudentID, date: day}] = s.nextID
		s.nextID++
	}
	return nil
}

func (s *InMemoryStore) ListAttendance(_ context.Context, from, to time.Time) ([]*scheduling.AttendanceMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var marks []*scheduling.AttendanceMark
	for key, id := range s.marks {
		date, err := time.Parse(time.DateOnly, key.date)
		if err != nil {
			continue
		}
		if date.Before(from) || date.After(to) {
			continue
		}
		marks = append(marks, &scheduling.AttendanceMark{
			ID:        id,
			CourseID:  key.courseID,
			StudentID: key.studentID,
			Date:      date,
		})
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].ID < marks[j].ID })
	return marks, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
