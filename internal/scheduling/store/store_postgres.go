package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/scheduling"
	"arabesque/pkg/platform/sentinel"
)

const courseColumns = `c.id, c.name, c.description, c.schedule, c.capacity, c.teacher_id, COALESCE(u.name, ''), c.cost, c.created_at`

// PostgresStore persists courses and attendance in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveCourse(ctx context.Context, course *scheduling.Course) error {
	schedule, err := json.Marshal(course.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}

	query := `
		INSERT INTO courses (id, name, description, schedule, capacity, teacher_id, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		course.ID, course.Name, course.Description, schedule,
		course.Capacity, course.TeacherID, course.Cost, course.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCourse(ctx context.Context, id uuid.UUID) (*scheduling.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses c
		LEFT JOIN users u ON u.id = c.teacher_id
		WHERE c.id = $1
	`
	course, err := scanCourse(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return course, nil
}

func (s *PostgresStore) ListCourses(ctx context.Context) ([]*scheduling.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses c
		LEFT JOIN users u ON u.id = c.teacher_id
		ORDER BY c.name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []*scheduling.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

func (s *PostgresStore) UpdateCourse(ctx context.Context, course *scheduling.Course) error {
	schedule, err := json.Marshal(course.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}

	query := `
		UPDATE courses
		SET name = $2, description = $3, schedule = $4, capacity = $5, teacher_id = $6, cost = $7
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		course.ID, course.Name, course.Description, schedule,
		course.Capacity, course.TeacherID, course.Cost,
	)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRoster(ctx context.Context, courseID uuid.UUID, date time.Time) ([]*scheduling.RosterEntry, error) {
	query := `
		SELECT b.user_id, u.name,
		       EXISTS (
		           SELECT 1 FROM attendance a
		           WHERE a.course_id = b.course_id AND a.student_id = b.user_id AND a.date = b.class_date
		       )
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.course_id = $1 AND b.class_date = $2 AND b.status = 'CONFIRMED'
		ORDER BY u.name
	`
	rows, err := s.db.QueryContext(ctx, query, courseID, date)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var roster []*scheduling.RosterEntry
	for rows.Next() {
		var entry scheduling.RosterEntry
		if err := rows.Scan(&entry.StudentID, &entry.Name, &entry.Attended); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		roster = append(roster, &entry)
	}
	return roster, rows.Err()
}

func (s *PostgresStore) ToggleAttendance(ctx context.Context, courseID, studentID uuid.UUID, date time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM attendance WHERE course_id = $1 AND student_id = $2 AND date = $3
	`, courseID, studentID, date)
	if err != nil {
		return false, fmt.Errorf("delete attendance: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete attendance rows affected: %w", err)
	}
	if deleted > 0 {
		return false, nil
	}

	// The unique constraint makes a concurrent double toggle collapse into a
	// single mark instead of duplicating rows.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attendance (course_id, student_id, date)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id, student_id, date) DO NOTHING
	`, courseID, studentID, date)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) ReplaceAttendance(ctx context.Context, courseID uuid.UUID, date time.Time, roster []scheduling.FinalizeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace attendance: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM attendance WHERE course_id = $1 AND date = $2
	`, courseID, date); err != nil {
		return fmt.Errorf("clear attendance: %w", err)
	}

	for _, entry := range roster {
		if !entry.Attended {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance (course_id, student_id, date)
			VALUES ($1, $2, $3)
			ON CONFLICT (course_id, student_id, date) DO NOTHING
		`, courseID, entry.StudentID, date); err != nil {
			return fmt.Errorf("insert attendance mark: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace attendance: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAttendance(ctx context.Context, from, to time.Time) ([]*scheduling.AttendanceMark, error) {
	query := `
		SELECT id, course_id, student_id, date
		FROM attendance
		WHERE date >= $1 AND date <= $2
		ORDER BY date, course_id
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var marks []*scheduling.AttendanceMark
	for rows.Next() {
		var mark scheduling.AttendanceMark
		if err := rows.Scan(&mark.ID, &mark.CourseID, &mark.StudentID, &mark.Date); err != nil {
			return nil, fmt.Errorf("scan attendance mark: %w", err)
		}
		marks = append(marks, &mark)
	}
	return marks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*scheduling.Course, error) {
	var (
		course      scheduling.Course
		rawSchedule []byte
		teacherID   uuid.NullUUID
	)
	err := row.Scan(
		&course.ID, &course.Name, &course.Description, &rawSchedule,
		&course.Capacity, &teacherID, &course.TeacherName, &course.Cost, &course.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if teacherID.Valid {
		course.TeacherID = &teacherID.UUID
	}
	if len(rawSchedule) > 0 {
		if err := json.Unmarshal(rawSchedule, &course.Schedule); err != nil {
			return nil, fmt.Errorf("unmarshal schedule: %w", err)
		}
	}
	return &course, nil
}
