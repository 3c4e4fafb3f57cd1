// Package service implements the money ledger: payments with optional credit
// top-ups, and administrative expenses.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/audit"
	"arabesque/internal/billing"
	"arabesque/internal/billing/store"
	dErrors "arabesque/pkg/domainerrors"
	"arabesque/pkg/platform/sentinel"
)

// AuditTrail records ledger mutations.
type AuditTrail interface {
	Emit(event audit.Event)
}

type Service struct {
	store store.Store
	trail AuditTrail
	now   func() time.Time
}

func NewService(st store.Store, trail AuditTrail) *Service {
	return &Service{store: st, trail: trail, now: time.Now}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PaymentInput is the validated payload for recording a ledger entry.
// AddCredits optionally grants booking credits alongside a tuition payment.
type PaymentInput struct {
	UserID      uuid.UUID
	Amount      float64
	Kind        billing.Kind
	Description string
	PaymentDate time.Time
	AddCredits  int
}

func (s *Service) RecordPayment(ctx context.Context, actorID string, input PaymentInput) (*billing.Payment, error) {
	if input.Amount < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must not be negative")
	}
	if !input.Kind.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "kind must be INCOME or EXPENSE")
	}
	if input.AddCredits < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "add_credits must not be negative")
	}

	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.now()
	}

	payment := &billing.Payment{
		ID:          uuid.New(),
		UserID:      input.UserID,
		Amount:      input.Amount,
		Kind:        input.Kind,
		Description: input.Description,
		Status:      "PAID",
		PaymentDate: paymentDate,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertPayment(ctx, payment, input.AddCredits); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}

	s.trail.Emit(audit.Event{
		Actor:    actorID,
		Action:   audit.ActionPaymentRecorded,
		Entity:   "payment",
		EntityID: payment.ID.String(),
		Detail: map[string]any{
			"user_id":     payment.UserID.String(),
			"amount":      payment.Amount,
			"kind":        string(payment.Kind),
			"add_credits": input.AddCredits,
		},
	})
	return payment, nil
}

func (s *Service) ListPayments(ctx context.Context) ([]*billing.Payment, error) {
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

func (s *Service) ListPaymentsForUser(ctx context.Context, userID uuid.UUID) ([]*billing.Payment, error) {
	payments, err := s.store.ListPaymentsForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

// DeletePayment removes a ledger entry. Credits granted alongside the payment
// are not clawed back.
func (s *Service) DeletePayment(ctx context.Context, actorID string, id uuid.UUID) error {
	if err := s.store.DeletePayment(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete payment")
	}
	s.trail.Emit(audit.Event{
		Actor:    actorID,
		Action:   audit.ActionPaymentDeleted,
		Entity:   "payment",
		EntityID: id.String(),
	})
	return nil
}

// ExpenseInput is the validated payload for an administrative outflow.
type ExpenseInput struct {
	Amount      float64
	Description string
	Category    string
	Date        time.Time
}

func (s *Service) RecordExpense(ctx context.Context, actorID string, input ExpenseInput) (*billing.Expense, error) {
	if input.Amount < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "amount must not be negative")
	}

	category := input.Category
	if category == "" {
		category = "general"
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	expense := &billing.Expense{
		ID:          uuid.New(),
		Amount:      input.Amount,
		Description: input.Description,
		Category:    category,
		Date:        date,
	}
	if err := s.store.InsertExpense(ctx, expense); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record expense")
	}

	s.trail.Emit(audit.Event{
		Actor:    actorID,
		Action:   audit.ActionExpenseRecorded,
		Entity:   "expense",
		EntityID: expense.ID.String(),
		Detail:   map[string]any{"amount": expense.Amount, "category": expense.Category},
	})
	return expense, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]*billing.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expenses")
	}
	return expenses, nil
}

func (s *Service) DeleteExpense(ctx context.Context, actorID string, id uuid.UUID) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "expense not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete expense")
	}
	s.trail.Emit(audit.Event{
		Actor:    actorID,
		Action:   audit.ActionExpenseDeleted,
		Entity:   "expense",
		EntityID: id.String(),
	})
	return nil
}
