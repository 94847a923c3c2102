package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/printforge/printforge/internal/shared"
)

type stubRepo struct {
	users map[string]User
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &stubRepo{users: map[string]User{
		"ops@example.com": {
			ID: 1, Email: "ops@example.com", FullName: "Ops User",
			Role: RoleOperator, PasswordHash: string(hash), IsActive: true,
		},
		"gone@example.com": {
			ID: 2, Email: "gone@example.com", FullName: "Former Staff",
			Role: RoleOperator, PasswordHash: string(hash), IsActive: false,
		},
	}}
	return NewService(repo, client, time.Hour), mr
}

func TestAuthenticateIssuesResolvableToken(t *testing.T) {
	svc, _ := newTestService(t)

	token, actor, err := svc.Authenticate(context.Background(), "ops@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, RoleOperator, actor.Role)

	resolved, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resolved.UserID)
	assert.Equal(t, "ops@example.com", resolved.Email)
}

func TestAuthenticateRejectsBadPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Authenticate(context.Background(), "ops@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Authenticate(context.Background(), "nobody@example.com", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Authenticate(context.Background(), "gone@example.com", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveExpiredToken(t *testing.T) {
	svc, mr := newTestService(t)

	token, _, err := svc.Authenticate(context.Background(), "ops@example.com", "secret123")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = svc.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRevokeInvalidatesToken(t *testing.T) {
	svc, _ := newTestService(t)

	token, _, err := svc.Authenticate(context.Background(), "ops@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), token))

	_, err = svc.Resolve(context.Background(), token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
