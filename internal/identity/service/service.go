// Package service implements identity operations: registration, credential
// verification with the monthly credit reload, profile CRUD and the guarded
// delete cascade.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"arabesque/internal/audit"
	"arabesque/internal/identity"
	"arabesque/internal/identity/store"
	"arabesque/internal/platform/metrics"
	dErrors "arabesque/pkg/domainerrors"
	"arabesque/pkg/platform/sentinel"
)

// bcryptCost matches the cost of already-stored hashes so existing
// credentials keep verifying.
const bcryptCost = 10

// BookingChecker answers whether a user still holds bookings dated today or
// later; deletion is refused while they do.
type BookingChecker interface {
	HasUpcoming(ctx context.Context, userID uuid.UUID, from time.Time) (bool, error)
}

// AuditTrail records identity mutations.
type AuditTrail interface {
	Emit(event audit.Event)
}

type Service struct {
	store    store.Store
	bookings BookingChecker
	trail    AuditTrail
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(st store.Store, bookings BookingChecker, trail AuditTrail, m *metrics.Metrics) *Service {
	return &Service{
		store:    st,
		bookings: bookings,
		trail:    trail,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterInput is the validated payload for creating a user. The handler
// layer rejects malformed input before this is built.
type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Role          identity.Role
	PlanType      string
	WeeklyLimit   int
	MonthlySalary float64
}

// Register creates a user with a hashed credential. Students start with zero
// credits; the first login of a month funds them.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*identity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	role := input.Role
	if role == "" {
		role = identity.RoleStudent
	}
	planType := input.PlanType
	if planType == "" {
		planType = "unassigned"
	}

	user := &identity.User{
		ID:            uuid.New(),
		Name:          input.Name,
		Email:         input.Email,
		PasswordHash:  string(hash),
		Role:          role,
		Active:        true,
		Credits:       0,
		PlanType:      planType,
		WeeklyLimit:   input.WeeklyLimit,
		MonthlySalary: input.MonthlySalary,
		Measurements:  map[string]string{},
		CreatedAt:     s.now(),
	}
	if err := s.store.Save(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "that email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save user")
	}

	s.metrics.UsersCreated.Inc()
	s.trail.Emit(audit.Event{
		Actor:    user.ID.String(),
		Action:   audit.ActionUserRegistered,
		Entity:   "user",
		EntityID: user.ID.String(),
		Detail:   map[string]any{"role": string(user.Role)},
	})
	return user, nil
}

// Authenticate verifies a credential and, on success, applies the monthly
// credit reload before returning the fresh user record. Unknown emails and
// wrong passwords both read as unauthorized so callers cannot enumerate
// accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*identity.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if user, err = s.applyMonthlyReload(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// applyMonthlyReload resets the balance to WeeklyLimit*4 once per calendar
// month. This is a reset, not an accrual: unused credits are discarded. The
// store's conditional update keeps concurrent same-month logins idempotent.
func (s *Service) applyMonthlyReload(ctx context.Context, user *identity.User) (*identity.User, error) {
	marker := s.now().Format(identity.ReloadMarkerFormat)
	if user.LastCreditReload == marker {
		return user, nil
	}

	applied, err := s.store.ReloadCredits(ctx, user.ID, user.MonthlyCredits(), marker)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload credits")
	}
	if applied {
		s.metrics.CreditReloads.Inc()
		s.trail.Emit(audit.Event{
			Actor:    user.ID.String(),
			Action:   audit.ActionCreditReload,
			Entity:   "user",
			EntityID: user.ID.String(),
			Detail:   map[string]any{"credits": user.MonthlyCredits(), "marker": marker},
		})
	}

	fresh, err := s.store.FindByID(ctx, user.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-read user")
	}
	return fresh, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read user")
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]*identity.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// UpdateInput carries optional profile changes; nil fields stay untouched.
type UpdateInput struct {
	Name          *string
	Email         *string
	Role          *identity.Role
	PlanType      *string
	WeeklyLimit   *int
	MonthlySalary *float64
	Measurements  map[string]string
	Active        *bool
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*identity.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.PlanType != nil {
		user.PlanType = *input.PlanType
	}
	if input.WeeklyLimit != nil {
		user.WeeklyLimit = *input.WeeklyLimit
	}
	if input.MonthlySalary != nil {
		user.MonthlySalary = *input.MonthlySalary
	}
	if input.Measurements != nil {
		user.Measurements = input.Measurements
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	if err := s.store.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "that email is already registered")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}
	return user, nil
}

// Delete removes a user. Deletion is refused while the user holds bookings on
// today or future dates; past bookings, attendance and payments cascade via
// foreign keys, and any courses they taught are detached rather than deleted.
func (s *Service) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	upcoming, err := s.bookings.HasUpcoming(ctx, id, s.now())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check bookings")
	}
	if upcoming {
		return dErrors.New(dErrors.CodeInvalidState, "user has upcoming bookings; cancel them before deleting")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}

	s.trail.Emit(audit.Event{
		Actor:    actorID,
		Action:   audit.ActionUserDeleted,
		Entity:   "user",
		EntityID: id.String(),
	})
	return nil
}
