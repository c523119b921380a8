package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worldclock/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

func TestUserCreateIsAdminOnly(t *testing.T) {
	f := newFixture(t, winter)
	ctx := context.Background()
	admin := f.addUser(t, "admin@example.com", types.RoleAdmin)
	u1 := f.addUser(t, "u1@example.com", types.RoleUser)

	_, err := f.userSvc.Create(ctx, u1, NewUser{Email: "x@example.com", Name: "X", Password: "secret1"})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	created, err := f.userSvc.Create(ctx, admin, NewUser{Email: " New@Example.com ", Name: " New ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", created.Email)
	assert.Equal(t, "New", created.Name)
	assert.Equal(t, types.RoleUser, created.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))

	_, err = f.userSvc.Create(ctx, admin, NewUser{Email: "new@example.com", Name: "Again", Password: "secret1"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	promoted, err := f.userSvc.Create(ctx, admin, NewUser{Email: "boss@example.com", Name: "Boss", Password: "secret1", Role: types.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, promoted.Role)
}

func TestUserCreateValidation(t *testing.T) {
	f := newFixture(t, winter)
	admin := f.addUser(t, "admin@example.com", types.RoleAdmin)

	inputs := []NewUser{
		{Email: "", Name: "A", Password: "secret1"},
		{Email: "a@example.com", Name: "", Password: "secret1"},
		{Email: "not-an-email", Name: "A", Password: "secret1"},
		{Email: "a@example.com", Name: "A", Password: "short"},
		{Email: "a@example.com", Name: "A", Password: "secret1", Role: "owner"},
	}
	for _, input := range inputs {
		_, err := f.userSvc.Create(context.Background(), admin, input)
		assert.ErrorIs(t, err, ErrInvalidInput, input.Email)
	}
}

func TestUserGet(t *testing.T) {
	f := newFixture(t, winter)
	ctx := context.Background()
	admin := f.addUser(t, "admin@example.com", types.RoleAdmin)
	u1 := f.addUser(t, "u1@example.com", types.RoleUser)
	u2 := f.addUser(t, "u2@example.com", types.RoleUser)

	self, err := f.userSvc.Get(ctx, u1, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", self.Email)

	_, err = f.userSvc.Get(ctx, u1, u2.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.userSvc.Get(ctx, admin, u2.ID)
	assert.NoError(t, err)

	_, err = f.userSvc.Get(ctx, admin, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserList(t *testing.T) {
	f := newFixture(t, winter)
	ctx := context.Background()
	admin := f.addUser(t, "admin@example.com", types.RoleAdmin)
	u1 := f.addUser(t, "u1@example.com", types.RoleUser)

	_, _, err := f.userSvc.List(ctx, u1, 0, 10)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	users, total, err := f.userSvc.List(ctx, admin, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, users, 1)
}

func TestUserUpdateRole(t *testing.T) {
	f := newFixture(t, winter)
	ctx := context.Background()
	admin := f.addUser(t, "admin@example.com", types.RoleAdmin)
	u1 := f.addUser(t, "u1@example.com", types.RoleUser)

	_, err := f.userSvc.UpdateRole(ctx, u1, u1.ID, types.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.userSvc.UpdateRole(ctx, admin, admin.ID, types.RoleUser)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.userSvc.UpdateRole(ctx, admin, u1.ID, "root")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.userSvc.UpdateRole(ctx, admin, 404, types.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)

	updated, err := f.userSvc.UpdateRole(ctx, admin, u1.ID, types.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, updated.Role)
}

func TestUserDelete(t *testing.T) {
	f := newFixture(t, winter)
	ctx := context.Background()
	admin := f.addUser(t, "admin@example.com", types.RoleAdmin)
	u1 := f.addUser(t, "u1@example.com", types.RoleUser)
	u2 := f.addUser(t, "u2@example.com", types.RoleUser)

	_, err := f.userSvc.Delete(ctx, u1, u2.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = f.userSvc.Delete(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	deleted, err := f.userSvc.Delete(ctx, u1, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, u1.ID, deleted.ID)

	_, err = f.userSvc.Delete(ctx, admin, u1.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
