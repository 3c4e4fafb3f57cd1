package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"arabesque/internal/identity"
	"arabesque/pkg/platform/sentinel"
)

// InMemoryStore keeps users in a map. It also implements the booking ledger's
// CreditLedger so an in-memory deployment shares one balance per student.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*identity.User
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[uuid.UUID]*identity.User)}
}

func (s *InMemoryStore) Save(_ context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrConflict
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*identity.User, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (s *InMemoryStore) Update(_ context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrConflict
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *InMemoryStore) ReloadCredits(_ context.Context, id uuid.UUID, credits int, marker string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if user.LastCreditReload == marker {
		return false, nil
	}
	user.Credits = credits
	user.LastCreditReload = marker
	return true, nil
}

// Balance and Adjust implement the booking ledger's CreditLedger over the same
// user records, so in-memory bookings debit the balance logins reload.
func (s *InMemoryStore) Balance(id uuid.UUID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return 0, false
	}
	return user.Credits, true
}

func (s *InMemoryStore) Adjust(id uuid.UUID, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		user.Credits += delta
	}
}
