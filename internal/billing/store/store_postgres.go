package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"arabesque/internal/billing"
	"arabesque/pkg/platform/sentinel"
)

const paymentColumns = `p.id, p.user_id, u.name, p.amount, p.kind, p.description, p.status, p.payment_date, p.created_at`

// PostgresStore persists the ledger in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertPayment(ctx context.Context, payment *billing.Payment, addCredits int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert payment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, amount, kind, description, status, payment_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, payment.ID, payment.UserID, payment.Amount, payment.Kind,
		payment.Description, payment.Status, payment.PaymentDate, payment.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	if addCredits > 0 {
		result, err := tx.ExecContext(ctx, `
			UPDATE users SET credits = credits + $2 WHERE id = $1
		`, payment.UserID, addCredits)
		if err != nil {
			return fmt.Errorf("grant credits: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("grant credits rows affected: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPayments(ctx context.Context) ([]*billing.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.payment_date DESC, p.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (s *PostgresStore) ListPaymentsForUser(ctx context.Context, userID uuid.UUID) ([]*billing.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
		ORDER BY p.payment_date DESC, p.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments for user: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (s *PostgresStore) DeletePayment(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete payment rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertExpense(ctx context.Context, expense *billing.Expense) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, amount, description, category, date)
		VALUES ($1, $2, $3, $4, $5)
	`, expense.ID, expense.Amount, expense.Description, expense.Category, expense.Date)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListExpenses(ctx context.Context) ([]*billing.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, description, category, date
		FROM expenses
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*billing.Expense
	for rows.Next() {
		var expense billing.Expense
		if err := rows.Scan(&expense.ID, &expense.Amount, &expense.Description, &expense.Category, &expense.Date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, &expense)
	}
	return expenses, rows.Err()
}

func (s *PostgresStore) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func collectPayments(rows *sql.Rows) ([]*billing.Payment, error) {
	var payments []*billing.Payment
	for rows.Next() {
		var payment billing.Payment
		err := rows.Scan(
			&payment.ID, &payment.UserID, &payment.UserName, &payment.Amount,
			&payment.Kind, &payment.Description, &payment.Status,
			&payment.PaymentDate, &payment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, &payment)
	}
	return payments, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
