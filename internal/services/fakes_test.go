package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/worldclock/apiserver/internal/citylookup"
	"github.com/worldclock/apiserver/internal/events"
	"github.com/worldclock/apiserver/internal/store"
	"github.com/worldclock/apiserver/internal/tz"
	"github.com/worldclock/apiserver/types"
)

var (
	winter = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	summer = time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
)

type memoryDB struct {
	mu        sync.Mutex
	nextUser  int
	nextTZ    int
	users     map[int]types.User
	timezones map[int]types.Timezone
}

func newMemoryDB() *memoryDB {
	return &memoryDB{users: map[int]types.User{}, timezones: map[int]types.Timezone{}}
}

type fakeUsers struct{ db *memoryDB }

func (f fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	user, ok := f.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, user := range f.db.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f fakeUsers) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := make([]types.User, 0, len(f.db.users))
	for _, user := range f.db.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f fakeUsers) Create(_ context.Context, user types.User) (types.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	f.db.nextUser++
	user.ID = f.db.nextUser
	f.db.users[user.ID] = user
	return user, nil
}

func (f fakeUsers) UpdateRole(_ context.Context, id int, role types.Role) (types.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	user, ok := f.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Role = role
	f.db.users[id] = user
	return user, nil
}

func (f fakeUsers) Delete(_ context.Context, id int) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.users, id)
	for tzID, record := range f.db.timezones {
		if record.OwnerID == id {
			delete(f.db.timezones, tzID)
		}
	}
	return nil
}

// fakeTimezones enforces the (owner_id, name) unique constraint on writes.
type fakeTimezones struct {
	db *memoryDB

	// skipLookup hides existing names from GetByOwnerAndName to simulate a
	// concurrent writer slipping past the pre-check.
	skipLookup bool
}

func (f *fakeTimezones) Get(_ context.Context, id int) (types.Timezone, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	record, ok := f.db.timezones[id]
	if !ok {
		return types.Timezone{}, store.ErrNotFound
	}
	return record, nil
}

func (f *fakeTimezones) GetByOwnerAndName(_ context.Context, ownerID int, name string) (types.Timezone, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if !f.skipLookup {
		for _, record := range f.db.timezones {
			if record.OwnerID == ownerID && record.Name == name {
				return record, nil
			}
		}
	}
	return types.Timezone{}, store.ErrNotFound
}

func (f *fakeTimezones) ListByOwner(_ context.Context, ownerID int) ([]types.Timezone, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var records []types.Timezone
	for _, record := range f.db.timezones {
		if record.OwnerID == ownerID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (f *fakeTimezones) List(_ context.Context, offset, limit int) ([]types.Timezone, int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := make([]types.Timezone, 0, len(f.db.timezones))
	for _, record := range f.db.timezones {
		all = append(all, record)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeTimezones) Create(_ context.Context, record types.Timezone) (types.Timezone, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.conflicts(record.OwnerID, record.Name, 0) {
		return types.Timezone{}, store.ErrDuplicate
	}
	f.db.nextTZ++
	record.ID = f.db.nextTZ
	f.db.timezones[record.ID] = record
	return record, nil
}

func (f *fakeTimezones) Update(_ context.Context, id int, changes types.TimezoneUpdate) (types.Timezone, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	record, ok := f.db.timezones[id]
	if !ok {
		return types.Timezone{}, store.ErrNotFound
	}
	updated := applyUpdate(record, changes)
	if f.conflicts(updated.OwnerID, updated.Name, id) {
		return types.Timezone{}, store.ErrDuplicate
	}
	f.db.timezones[id] = updated
	return updated, nil
}

func (f *fakeTimezones) Delete(_ context.Context, id int) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.timezones[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.timezones, id)
	return nil
}

func (f *fakeTimezones) conflicts(ownerID int, name string, selfID int) bool {
	for id, record := range f.db.timezones {
		if id != selfID && record.OwnerID == ownerID && record.Name == name {
			return true
		}
	}
	return false
}

type recordedEvent struct {
	Type   events.Type
	Record types.Timezone
}

type recordingEvents struct {
	published []recordedEvent
}

func (r *recordingEvents) Publish(_ context.Context, t events.Type, record types.Timezone) {
	r.published = append(r.published, recordedEvent{Type: t, Record: record})
}

type fixture struct {
	db        *memoryDB
	users     fakeUsers
	timezones *fakeTimezones
	events    *recordingEvents
	service   *TimezoneService
	userSvc   *UserService
}

func newResolver(t *testing.T, at time.Time) *tz.Resolver {
	t.Helper()
	table, err := citylookup.Default()
	require.NoError(t, err)
	return tz.NewResolver(table, tz.WithClock(func() time.Time { return at }))
}

func newFixture(t *testing.T, at time.Time) *fixture {
	t.Helper()
	db := newMemoryDB()
	f := &fixture{
		db:        db,
		users:     fakeUsers{db: db},
		timezones: &fakeTimezones{db: db},
		events:    &recordingEvents{},
	}
	f.service = NewTimezoneService(f.timezones, f.users, newResolver(t, at), WithEvents(f.events))
	f.userSvc = NewUserService(f.users, bcryptTestCost, nil)
	return f
}

// Minimum bcrypt cost keeps tests fast.
const bcryptTestCost = 4

func (f *fixture) addUser(t *testing.T, email string, role types.Role) types.Principal {
	t.Helper()
	user, err := f.users.Create(context.Background(), types.User{Email: email, Name: email, Role: role})
	require.NoError(t, err)
	return user.Principal()
}

func ptr(s string) *string { return &s }

func applyUpdate(record types.Timezone, changes types.TimezoneUpdate) types.Timezone {
	if changes.Name != nil {
		record.Name = *changes.Name
	}
	if changes.City != nil {
		record.City = *changes.City
	}
	if changes.Timezone != nil {
		record.Timezone = *changes.Timezone
	}
	if changes.Offset != nil {
		record.Offset = *changes.Offset
	}
	return record
}
