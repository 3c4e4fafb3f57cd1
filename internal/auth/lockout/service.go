package lockout

import (
	"context"
	"log/slog"

	dErrors "arabesque/pkg/domainerrors"
)

// Service applies the lockout threshold over a Store. A lockout is a soft
// failure: if the store is unreachable the login proceeds, because refusing
// every login on a Redis outage is worse than briefly losing the throttle.
type Service struct {
	store     Store
	threshold int
	logger    *slog.Logger
}

func NewService(store Store, threshold int, logger *slog.Logger) *Service {
	return &Service{store: store, threshold: threshold, logger: logger}
}

// Check returns a locked error when the key has reached the threshold.
func (s *Service) Check(ctx context.Context, key string) error {
	count, err := s.store.Failures(ctx, key)
	if err != nil {
		s.logger.Warn("lockout check failed, allowing login", "error", err)
		return nil
	}
	if count >= s.threshold {
		return dErrors.New(dErrors.CodeLocked, "too many failed login attempts, try again later")
	}
	return nil
}

// RecordFailure counts a failed credential check.
func (s *Service) RecordFailure(ctx context.Context, key string) {
	if _, err := s.store.RecordFailure(ctx, key); err != nil {
		s.logger.Warn("failed to record login failure", "error", err)
	}
}

// Clear resets the counter after a successful login.
func (s *Service) Clear(ctx context.Context, key string) {
	if err := s.store.Clear(ctx, key); err != nil {
		s.logger.Warn("failed to clear login failures", "error", err)
	}
}
