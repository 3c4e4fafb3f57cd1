// Package lockout throttles repeated failed logins per email address.
package lockout

import "context"

// Store counts login failures within a rolling window. Implementations are
// pure I/O; the threshold decision lives in the service.
type Store interface {
	// Failures returns the current failure count for the key, zero when the
	// key is unknown or its window has expired.
	Failures(ctx context.Context, key string) (int, error)
	// RecordFailure increments the counter and returns the new count. The
	// window starts at the first failure.
	RecordFailure(ctx context.Context, key string) (int, error)
	// Clear removes the counter, typically after a successful login.
	Clear(ctx context.Context, key string) error
}
