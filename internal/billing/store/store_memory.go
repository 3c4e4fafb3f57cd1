package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"arabesque/internal/billing"
	"arabesque/pkg/platform/sentinel"
)

// CreditGranter adds credits to a user's balance. The identity memory store
// implements it, so payment top-ups and bookings share one balance in
// databaseless runs.
type CreditGranter interface {
	Adjust(id uuid.UUID, delta int)
	Balance(id uuid.UUID) (int, bool)
}

// InMemoryStore backs the billing service in tests and databaseless runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	credits  CreditGranter
	payments map[uuid.UUID]*billing.Payment
	expenses map[uuid.UUID]*billing.Expense
}

func NewInMemory(credits CreditGranter) *InMemoryStore {
	return &InMemoryStore{
		credits:  credits,
		payments: make(map[uuid.UUID]*billing.Payment),
		expenses: make(map[uuid.UUID]*billing.Expense),
	}
}

func (s *InMemoryStore) InsertPayment(_ context.Context, payment *billing.Payment, addCredits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credits.Balance(payment.UserID); !ok {
		return sentinel.ErrNotFound
	}

	copied := *payment
	s.payments[payment.ID] = &copied
	if addCredits > 0 {
		s.credits.Adjust(payment.UserID, addCredits)
	}
	return nil
}

func (s *InMemoryStore) ListPayments(_ context.Context) ([]*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payments := make([]*billing.Payment, 0, len(s.payments))
	for _, payment := range s.payments {
		copied := *payment
		payments = append(payments, &copied)
	}
	sortPayments(payments)
	return payments, nil
}

func (s *InMemoryStore) ListPaymentsForUser(_ context.Context, userID uuid.UUID) ([]*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var payments []*billing.Payment
	for _, payment := range s.payments {
		if payment.UserID != userID {
			continue
		}
		copied := *payment
		payments = append(payments, &copied)
	}
	sortPayments(payments)
	return payments, nil
}

func (s *InMemoryStore) DeletePayment(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *InMemoryStore) InsertExpense(_ context.Context, expense *billing.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *expense
	s.expenses[expense.ID] = &copied
	return nil
}

func (s *InMemoryStore) ListExpenses(_ context.Context) ([]*billing.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expenses := make([]*billing.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		copied := *expense
		expenses = append(expenses, &copied)
	}
	sort.Slice(expenses, func(i, j int) bool { return expenses[i].Date.After(expenses[j].Date) })
	return expenses, nil
}

func (s *InMemoryStore) DeleteExpense(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func sortPayments(payments []*billing.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].PaymentDate.After(payments[j].PaymentDate)
		}
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
}
