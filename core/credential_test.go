package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newCredentialFixture() (*CredentialService, *memUserRepo, *memSessionRepo) {
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	return NewCredentialService(users, sessions), users, sessions
}

func TestRegisterAuthenticateRoundTrip(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := newCredentialFixture()

	id, err := creds.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	u, err := creds.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.True(t, u.IsRunner)
	require.False(t, u.IsAdmin)
	require.NotEqual(t, "s3cret", u.PasswordHash, "plaintext must never be stored")
}

func TestAuthenticateWrongPassword(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := newCredentialFixture()
	_, err := creds.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = creds.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown user yields the same error as a wrong password.
	_, err = creds.Authenticate(ctx, "nobody", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := newCredentialFixture()
	_, err := creds.Register(ctx, "alice", "one")
	require.NoError(t, err)

	_, err = creds.Register(ctx, "alice", "two")
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestSessionResolution(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := newCredentialFixture()
	id, err := creds.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	token, err := creds.CreateSession(ctx, id)
	require.NoError(t, err)

	u, err := creds.ResolveSession(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, id, u.ID)

	// Empty and unknown tokens resolve to anonymous, never an error.
	u, err = creds.ResolveSession(ctx, "")
	require.NoError(t, err)
	require.Nil(t, u)
	u, err = creds.ResolveSession(ctx, "bogus")
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestExpiredSessionIsAnonymous(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := newCredentialFixture()
	id, err := creds.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	token, err := creds.CreateSession(ctx, id)
	require.NoError(t, err)

	// Jump past the 24h expiry; the row stays but the predicate fails.
	creds.now = func() time.Time { return time.Now().Add(sessionTTL + time.Minute) }
	u, err := creds.ResolveSession(ctx, token)
	require.NoError(t, err)
	require.Nil(t, u)
}

func TestEachLoginMintsNewSession(t *testing.T) {
	ctx := context.Background()
	creds, _, sessions := newCredentialFixture()
	id, err := creds.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	t1, err := creds.CreateSession(ctx, id)
	require.NoError(t, err)
	t2, err := creds.CreateSession(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)
	require.Len(t, sessions.m, 2, "concurrent sessions are allowed")
}
