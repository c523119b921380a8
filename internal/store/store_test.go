package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worldclock/apiserver/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, repo *UserRepository, email string) types.User {
	t.Helper()
	user, err := repo.Create(context.Background(), types.User{
		Email:        email,
		Name:         "Test User",
		Role:         types.RoleUser,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := createUser(t, repo, "ada@example.com")
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
	assert.Equal(t, types.RoleUser, byID.Role)

	byEmail, err := repo.GetByEmail(ctx, "  ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, user.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	createUser(t, repo, "dup@example.com")
	_, err := repo.Create(context.Background(), types.User{
		Email: "dup@example.com", Name: "Other", Role: types.RoleUser, PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_ListAndRole(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	first := createUser(t, repo, "one@example.com")
	createUser(t, repo, "two@example.com")
	createUser(t, repo, "three@example.com")

	users, total, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "two@example.com", users[0].Email)

	updated, err := repo.UpdateRole(ctx, first.ID, types.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, updated.Role)

	_, err = repo.UpdateRole(ctx, 999, types.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimezoneRepository_UniquePerOwner(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewTimezoneRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice@example.com")
	bob := createUser(t, users, "bob@example.com")

	record := types.Timezone{OwnerID: alice.ID, Name: "home", City: "new york", Timezone: "America/New_York", Offset: "-5:00"}
	created, err := repo.Create(ctx, record)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = repo.Create(ctx, record)
	assert.ErrorIs(t, err, ErrDuplicate)

	record.OwnerID = bob.ID
	_, err = repo.Create(ctx, record)
	assert.NoError(t, err)

	got, err := repo.GetByOwnerAndName(ctx, alice.ID, "home")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "-5:00", got.Offset)

	_, err = repo.GetByOwnerAndName(ctx, alice.ID, "work")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimezoneRepository_UpdateWritesOnlyChanges(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewTimezoneRepository(db)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com")
	home, err := repo.Create(ctx, types.Timezone{OwnerID: owner.ID, Name: "home", City: "new york", Timezone: "America/New_York", Offset: "-5:00"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, types.Timezone{OwnerID: owner.ID, Name: "work", City: "tokyo", Timezone: "Asia/Tokyo", Offset: "+9:00"})
	require.NoError(t, err)

	city, zone, offset := "los angeles", "America/Los_Angeles", "-8:00"
	updated, err := repo.Update(ctx, home.ID, types.TimezoneUpdate{City: &city, Timezone: &zone, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, "home", updated.Name)
	assert.Equal(t, "los angeles", updated.City)
	assert.Equal(t, "America/Los_Angeles", updated.Timezone)
	assert.Equal(t, "-8:00", updated.Offset)

	clash := "work"
	_, err = repo.Update(ctx, home.ID, types.TimezoneUpdate{Name: &clash})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.Update(ctx, 999, types.TimezoneUpdate{Name: &clash})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimezoneRepository_ListAndDelete(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewTimezoneRepository(db)
	ctx := context.Background()

	owner := createUser(t, users, "owner@example.com")
	other := createUser(t, users, "other@example.com")
	for _, name := range []string{"b", "a", "c"} {
		_, err := repo.Create(ctx, types.Timezone{OwnerID: owner.ID, Name: name, City: "tokyo", Timezone: "Asia/Tokyo", Offset: "+9:00"})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, types.Timezone{OwnerID: other.ID, Name: "a", City: "tokyo", Timezone: "Asia/Tokyo", Offset: "+9:00"})
	require.NoError(t, err)

	mine, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, "a", mine[0].Name)
	assert.Equal(t, "c", mine[2].Name)

	all, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 4)

	require.NoError(t, repo.Delete(ctx, mine[0].ID))
	assert.ErrorIs(t, repo.Delete(ctx, mine[0].ID), ErrNotFound)
	_, err = repo.Get(ctx, mine[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_DeleteCascadesTimezones(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewTimezoneRepository(db)
	ctx := context.Background()

	owner := createUser(t, users, "leaving@example.com")
	stays := createUser(t, users, "stays@example.com")
	for _, name := range []string{"home", "work", "family"} {
		_, err := repo.Create(ctx, types.Timezone{OwnerID: owner.ID, Name: name, City: "paris", Timezone: "Europe/Paris", Offset: "+1:00"})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, types.Timezone{OwnerID: stays.ID, Name: "home", City: "paris", Timezone: "Europe/Paris", Offset: "+1:00"})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, owner.ID))

	left, err := repo.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	kept, err := repo.ListByOwner(ctx, stays.ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	assert.ErrorIs(t, users.Delete(ctx, owner.ID), ErrNotFound)
}
