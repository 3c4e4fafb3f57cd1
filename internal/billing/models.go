// Package billing holds the money ledger: tuition payments, teacher payroll
// and administrative expenses.
package billing

import (
	"time"

	"github.com/google/uuid"
)

// Kind says which way money moved. It is stored explicitly; amounts are
// always non-negative.
type Kind string

const (
	// KindIncome is money in, typically student tuition.
	KindIncome Kind = "INCOME"
	// KindExpense is money out against a user, typically teacher payroll.
	KindExpense Kind = "EXPENSE"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Payment is a ledger entry tied to a user.
type Payment struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	Amount      float64   `json:"amount"`
	Kind        Kind      `json:"kind"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	PaymentDate time.Time `json:"payment_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expense is an administrative outflow not tied to any user.
type Expense struct {
	ID          uuid.UUID `json:"id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
}
