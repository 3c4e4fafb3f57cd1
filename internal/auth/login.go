package auth

import (
	"context"
	"strings"

	"arabesque/internal/identity"
	"arabesque/internal/platform/metrics"
	dErrors "arabesque/pkg/domainerrors"
)

// Authenticator verifies a credential and returns the user with the monthly
// credit reload already applied.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*identity.User, error)
}

// Lockout throttles repeated failures for a login key.
type Lockout interface {
	Check(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string)
	Clear(ctx context.Context, key string)
}

// LoginService runs the full login flow: lockout check, credential
// verification, counter bookkeeping and token issuance.
type LoginService struct {
	identity Authenticator
	lockout  Lockout
	tokens   *TokenService
	metrics  *metrics.Metrics
}

func NewLoginService(authn Authenticator, lockout Lockout, tokens *TokenService, m *metrics.Metrics) *LoginService {
	return &LoginService{
		identity: authn,
		lockout:  lockout,
		tokens:   tokens,
		metrics:  m,
	}
}

// LoginResult is what a successful login hands back to the transport layer.
type LoginResult struct {
	Token string
	User  *identity.User
}

func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	if err := s.lockout.Check(ctx, key); err != nil {
		s.metrics.LoginAttempts.WithLabelValues("locked").Inc()
		return nil, err
	}

	user, err := s.identity.Authenticate(ctx, email, password)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeUnauthorized {
			s.lockout.RecordFailure(ctx, key)
			s.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		}
		return nil, err
	}

	s.lockout.Clear(ctx, key)

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	return &LoginResult{Token: token, User: user}, nil
}
