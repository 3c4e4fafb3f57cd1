package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"arabesque/internal/booking"
	"arabesque/internal/booking/service"
	"arabesque/pkg/platform/sentinel"
)

// CreditLedger is the balance source the in-memory store debits and refunds.
// The identity in-memory store implements it, so a DB-less deployment keeps a
// single balance per student across login reloads and bookings.
type CreditLedger interface {
	Balance(id uuid.UUID) (int, bool)
	Adjust(id uuid.UUID, delta int)
}

type occurrenceKey struct {
	courseID uuid.UUID
	date     time.Time
}

type bookingKey struct {
	userID   uuid.UUID
	courseID uuid.UUID
	date     time.Time
}

// InMemoryStore keeps bookings and course capacities in maps.
type InMemoryStore struct {
	mu       sync.Mutex
	ledger   CreditLedger
	capacity map[uuid.UUID]int
	names    map[uuid.UUID]string
	bookings map[int64]*booking.Booking
	byKey    map[bookingKey]int64
	nextID   int64
}

func NewInMemory(ledger CreditLedger) *InMemoryStore {
	return &InMemoryStore{
		ledger:   ledger,
		capacity: make(map[uuid.UUID]int),
		names:    make(map[uuid.UUID]string),
		bookings: make(map[int64]*booking.Booking),
		byKey:    make(map[bookingKey]int64),
		nextID:   1,
	}
}

// SeedCourse registers a course's capacity (and optional name) so the memory
// ledger can enforce seats without the scheduling store.
func (s *InMemoryStore) SeedCourse(id uuid.UUID, capacity int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capacity[id] = capacity
	s.names[id] = name
}

// RemoveCourse drops a course and cascades its bookings, mirroring the
// schema's ON DELETE CASCADE.
func (s *InMemoryStore) RemoveCourse(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.capacity, id)
	delete(s.names, id)
	for bid, b := range s.bookings {
		if b.CourseID == id {
			delete(s.byKey, bookingKey{b.UserID, b.CourseID, b.ClassDate})
			delete(s.bookings, bid)
		}
	}
}

func (s *InMemoryStore) CreditBalance(_ context.Context, userID uuid.UUID) (int, error) {
	balance, ok := s.ledger.Balance(userID)
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return balance, nil
}

func (s *InMemoryStore) AdjustCredits(_ context.Context, userID uuid.UUID, delta int) error {
	balance, ok := s.ledger.Balance(userID)
	if !ok {
		return sentinel.ErrNotFound
	}
	if balance+delta < 0 {
		return sentinel.ErrInvalidState
	}
	s.ledger.Adjust(userID, delta)
	return nil
}

func (s *InMemoryStore) CourseCapacity(_ context.Context, courseID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	capacity, ok := s.capacity[courseID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return capacity, nil
}

func (s *InMemoryStore) ConfirmedCount(_ context.Context, courseID uuid.UUID, classDate time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, b := range s.bookings {
		if b.CourseID == courseID && b.ClassDate.Equal(classDate) && b.Status == booking.StatusConfirmed {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) InsertBooking(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bookingKey{b.UserID, b.CourseID, b.ClassDate}
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrConflict
	}
	b.ID = s.nextID
	s.nextID++
	copied := *b
	s.bookings[b.ID] = &copied
	s.byKey[key] = b.ID
	return nil
}

func (s *InMemoryStore) FindBooking(_ context.Context, id int64) (*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *InMemoryStore) DeleteBooking(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byKey, bookingKey{b.UserID, b.CourseID, b.ClassDate})
	delete(s.bookings, id)
	return nil
}

func (s *InMemoryStore) ListForUser(_ context.Context, userID uuid.UUID) ([]*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*booking.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			copied := *b
			copied.CourseName = s.names[b.CourseID]
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassDate.Before(out[j].ClassDate) })
	return out, nil
}

func (s *InMemoryStore) HasUpcoming(_ context.Context, userID uuid.UUID, from time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := booking.DateOnly(from)
	for _, b := range s.bookings {
		if b.UserID == userID && !b.ClassDate.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

type memorySnapshot struct {
	bookings map[int64]*booking.Booking
	byKey    map[bookingKey]int64
	nextID   int64
}

func (s *InMemoryStore) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memorySnapshot{
		bookings: make(map[int64]*booking.Booking, len(s.bookings)),
		byKey:    make(map[bookingKey]int64, len(s.byKey)),
		nextID:   s.nextID,
	}
	for id, b := range s.bookings {
		snap.bookings[id] = b
	}
	for key, id := range s.byKey {
		snap.byKey[key] = id
	}
	return snap
}

func (s *InMemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = snap.bookings
	s.byKey = snap.byKey
	s.nextID = snap.nextID
}

// MemoryTx serializes in-memory ledger transactions behind one mutex and
// restores the booking maps when the transaction function fails. Credit
// mutations are ordered last inside every transaction, so a failed run has
// not touched the shared ledger and the restore is a full undo.
type MemoryTx struct {
	mu    sync.Mutex
	store *InMemoryStore
}

func NewMemoryTx(store *InMemoryStore) *MemoryTx {
	return &MemoryTx{store: store}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(stores service.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.store.snapshot()
	if err := fn(t.store); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}
