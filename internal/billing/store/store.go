// Package store persists the money ledger.
package store

import (
	"context"

	"github.com/google/uuid"

	"arabesque/internal/billing"
)

// Store is the persistence contract for payments and expenses.
type Store interface {
	// InsertPayment records the payment and, when addCredits > 0, grants the
	// credits to the user in the same transaction.
	InsertPayment(ctx context.Context, payment *billing.Payment, addCredits int) error
	ListPayments(ctx context.Context) ([]*billing.Payment, error)
	ListPaymentsForUser(ctx context.Context, userID uuid.UUID) ([]*billing.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error

	InsertExpense(ctx context.Context, expense *billing.Expense) error
	ListExpenses(ctx context.Context) ([]*billing.Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
}
