// Package store persists bookings. PostgresStore runs against either the pool
// or an open transaction; the ledger's transactional view is built with
// NewPostgresTx from inside a RunInTx adapter.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"arabesque/internal/booking"
	"arabesque/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresStore struct {
	db DBTX
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx scopes the store to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{db: tx}
}

func (s *PostgresStore) CreditBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var credits int
	err := s.db.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("read credit balance: %w", err)
	}
	return credits, nil
}

// AdjustCredits applies delta, refusing to take the balance negative. The
// course lock does not cover the user row, so two simultaneous debits by one
// student for different courses both pass the earlier balance read; this
// guard is what keeps the second one from overdrawing.
func (s *PostgresStore) AdjustCredits(ctx context.Context, userID uuid.UUID, delta int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET credits = credits + $2 WHERE id = $1 AND credits + $2 >= 0`, userID, delta)
	if err != nil {
		return fmt.Errorf("adjust credits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust credits rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("adjust credits existence check: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

// CourseCapacity locks the course row for the remainder of the transaction.
// Concurrent reservations for the same course serialize here, so the seat
// count that follows cannot go stale before the insert.
func (s *PostgresStore) CourseCapacity(ctx context.Context, courseID uuid.UUID) (int, error) {
	var capacity int
	err := s.db.QueryRowContext(ctx,
		`SELECT capacity FROM courses WHERE id = $1 FOR UPDATE`, courseID).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("read course capacity: %w", err)
	}
	return capacity, nil
}

func (s *PostgresStore) ConfirmedCount(ctx context.Context, courseID uuid.UUID, classDate time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE course_id = $1 AND class_date = $2 AND status = $3`,
		courseID, classDate, booking.StatusConfirmed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count confirmed bookings: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertBooking(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (user_id, course_id, class_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		b.UserID, b.CourseID, b.ClassDate, b.Status, b.CreatedAt).Scan(&b.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("insert booking: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindBooking(ctx context.Context, id int64) (*booking.Booking, error) {
	var b booking.Booking
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, course_id, class_date, status, created_at FROM bookings WHERE id = $1`,
		id).Scan(&b.ID, &b.UserID, &b.CourseID, &b.ClassDate, &b.Status, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	b.ClassDate = booking.DateOnly(b.ClassDate)
	return &b, nil
}

func (s *PostgresStore) DeleteBooking(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListForUser returns a student's bookings joined with course names, soonest
// class first.
func (s *PostgresStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*booking.Booking, error) {
	query := `
		SELECT b.id, b.user_id, b.course_id, b.class_date, b.status, b.created_at, c.name
		FROM bookings b
		JOIN courses c ON b.course_id = c.id
		WHERE b.user_id = $1
		ORDER BY b.class_date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		var b booking.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.CourseID, &b.ClassDate,
			&b.Status, &b.CreatedAt, &b.CourseName); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.ClassDate = booking.DateOnly(b.ClassDate)
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}

// HasUpcoming reports whether the user holds any booking dated today or later.
// The identity service consults this before allowing user deletion.
func (s *PostgresStore) HasUpcoming(ctx context.Context, userID uuid.UUID, from time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE user_id = $1 AND class_date >= $2)`,
		userID, booking.DateOnly(from)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check upcoming bookings: %w", err)
	}
	return exists, nil
}
