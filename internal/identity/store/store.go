// Package store persists identity records. The Postgres implementation is the
// production path; the in-memory one backs unit tests and DB-less development.
package store

import (
	"context"

	"github.com/google/uuid"

	"arabesque/internal/identity"
)

// Store is the persistence contract the identity service depends on. All
// methods return sentinel.ErrNotFound / sentinel.ErrConflict for the
// corresponding infrastructure facts.
type Store interface {
	Save(ctx context.Context, user *identity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	FindByEmail(ctx context.Context, email string) (*identity.User, error)
	List(ctx context.Context) ([]*identity.User, error)
	Update(ctx context.Context, user *identity.User) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ReloadCredits conditionally resets the balance: the UPDATE only applies
	// when the stored marker differs from the given one, so two logins in the
	// same month reload at most once regardless of interleaving.
	ReloadCredits(ctx context.Context, id uuid.UUID, credits int, marker string) (applied bool, err error)
}
