package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"arabesque/internal/identity"
	"arabesque/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore persists users in PostgreSQL. Pure I/O; the reload policy and
// cascade rules live in the identity service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, name, email, password_hash, role, is_active, credits,
	plan_type, weekly_limit, COALESCE(last_credit_reload, ''), monthly_salary, measurements, created_at`

func (s *PostgresStore) Save(ctx context.Context, user *identity.User) error {
	measurements, err := json.Marshal(user.Measurements)
	if err != nil {
		return fmt.Errorf("marshal measurements: %w", err)
	}
	query := `
		INSERT INTO users (id, name, email, password_hash, role, is_active, credits,
			plan_type, weekly_limit, last_credit_reload, monthly_salary, measurements, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active,
		user.Credits, user.PlanType, user.WeeklyLimit, user.LastCreditReload,
		user.MonthlySalary, measurements, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*identity.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, user *identity.User) error {
	measurements, err := json.Marshal(user.Measurements)
	if err != nil {
		return fmt.Errorf("marshal measurements: %w", err)
	}
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, role = $5, is_active = $6,
			credits = $7, plan_type = $8, weekly_limit = $9,
			last_credit_reload = NULLIF($10, ''), monthly_salary = $11, measurements = $12
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active,
		user.Credits, user.PlanType, user.WeeklyLimit, user.LastCreditReload,
		user.MonthlySalary, measurements,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ReloadCredits applies the monthly reset in a single conditional UPDATE so
// concurrent logins in the same month cannot double-apply it.
func (s *PostgresStore) ReloadCredits(ctx context.Context, id uuid.UUID, credits int, marker string) (bool, error) {
	query := `
		UPDATE users
		SET credits = $2, last_credit_reload = $3
		WHERE id = $1
		  AND (last_credit_reload IS NULL OR last_credit_reload <> $3)
	`
	result, err := s.db.ExecContext(ctx, query, id, credits, marker)
	if err != nil {
		return false, fmt.Errorf("reload credits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reload credits rows affected: %w", err)
	}
	return affected > 0, nil
}

type userRow interface {
	Scan(dest ...any) error
}

func scanUser(row userRow) (*identity.User, error) {
	var user identity.User
	var measurements []byte
	if err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.Active, &user.Credits, &user.PlanType, &user.WeeklyLimit,
		&user.LastCreditReload, &user.MonthlySalary, &measurements, &user.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(measurements) > 0 {
		if err := json.Unmarshal(measurements, &user.Measurements); err != nil {
			return nil, fmt.Errorf("unmarshal measurements: %w", err)
		}
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
