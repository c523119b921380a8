package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worldclock/apiserver/types"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func newAuth(t *testing.T) (*AuthService, *fixture) {
	t.Helper()
	f := newFixture(t, winter)
	return NewAuthService(f.userSvc, testJWTSecret, time.Hour), f
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	registered, err := auth.Register(ctx, "Alice@Example.com", "Alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.Equal(t, types.RoleUser, registered.User.Role)

	_, err = auth.Register(ctx, "alice@example.com", "Other", "password456")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	session, err := auth.Login(ctx, " ALICE@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)

	principal, err := auth.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, types.Principal{ID: registered.User.ID, Email: "alice@example.com", Role: types.RoleUser}, principal)
}

func TestLoginFailures(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "bob@example.com", "Bob", "password123")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "bob@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	auth, f := newAuth(t)
	ctx := context.Background()

	session, err := auth.Register(ctx, "carol@example.com", "Carol", "password123")
	require.NoError(t, err)

	_, err = auth.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.Itoa(session.User.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	auth.now = time.Now

	require.NoError(t, f.users.Delete(ctx, session.User.ID))
	_, err = auth.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateUsesStoredRole(t *testing.T) {
	auth, f := newAuth(t)
	ctx := context.Background()

	session, err := auth.Register(ctx, "dave@example.com", "Dave", "password123")
	require.NoError(t, err)
	_, err = f.users.UpdateRole(ctx, session.User.ID, types.RoleAdmin)
	require.NoError(t, err)

	principal, err := auth.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin())
}

func TestEnsureAdmin(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	admin, err := auth.EnsureAdmin(ctx, "root@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, admin.Role)

	again, err := auth.EnsureAdmin(ctx, "ROOT@example.com", "ignored")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	session, err := auth.Register(ctx, "eve@example.com", "Eve", "password123")
	require.NoError(t, err)
	promoted, err := auth.EnsureAdmin(ctx, "eve@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, promoted.ID)
	assert.Equal(t, types.RoleAdmin, promoted.Role)
}
