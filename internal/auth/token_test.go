package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arabesque/internal/identity"
	dErrors "arabesque/pkg/domainerrors"
)

func testUser() *identity.User {
	return &identity.User{
		ID:   uuid.New(),
		Name: "Ana",
		Role: identity.RoleStudent,
	}
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", "arabesque", 8*time.Hour)
	user := testUser()

	token, err := svc.Issue(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "STUDENT", claims.Role)
	assert.Equal(t, "Ana", claims.Name)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewTokenService("secret-one", "arabesque", 8*time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenService("secret-two", "arabesque", 8*time.Hour).ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", "arabesque", 8*time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-9 * time.Hour) })

	token, err := svc.Issue(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	assert.Contains(t, dErrors.MessageOf(err), "expired")
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", "arabesque", 8*time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}
