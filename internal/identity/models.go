// Package identity holds the user model shared by the auth, booking and
// billing subsystems.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies a user. The set is fixed by the schema check constraint.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User is an identity record. Credits and the reload marker only matter for
// students; MonthlySalary only for teachers. Both live here because the
// schema keeps a single users table.
type User struct {
	ID               uuid.UUID         `json:"id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	PasswordHash     string            `json:"-"`
	Role             Role              `json:"role"`
	Active           bool              `json:"is_active"`
	Credits          int               `json:"credits"`
	PlanType         string            `json:"plan_type"`
	WeeklyLimit      int               `json:"weekly_limit"`
	LastCreditReload string            `json:"last_credit_reload,omitempty"`
	MonthlySalary    float64           `json:"monthly_salary"`
	Measurements     map[string]string `json:"measurements,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// MonthlyCredits is the balance a student is reset to at the first login of a
// calendar month: four weeks of their weekly class limit.
func (u *User) MonthlyCredits() int {
	return u.WeeklyLimit * 4
}

// ReloadMarkerFormat is the month-year token stored in last_credit_reload,
// e.g. "March-2026".
const ReloadMarkerFormat = "January-2006"
