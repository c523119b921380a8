package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/worldclock/apiserver/internal/citylookup"
	"github.com/worldclock/apiserver/internal/events"
	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/metrics"
	"github.com/worldclock/apiserver/internal/store"
	"github.com/worldclock/apiserver/internal/tz"
	"github.com/worldclock/apiserver/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// TimezoneRepository defines persistence operations for timezone records.
type TimezoneRepository interface {
	Get(ctx context.Context, id int) (types.Timezone, error)
	GetByOwnerAndName(ctx context.Context, ownerID int, name string) (types.Timezone, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Timezone, error)
	List(ctx context.Context, offset, limit int) ([]types.Timezone, int, error)
	Create(ctx context.Context, record types.Timezone) (types.Timezone, error)
	Update(ctx context.Context, id int, changes types.TimezoneUpdate) (types.Timezone, error)
	Delete(ctx context.Context, id int) error
}

// EventPublisher receives committed timezone changes.
type EventPublisher interface {
	Publish(ctx context.Context, t events.Type, record types.Timezone)
}

// TimezoneService encapsulates timezone record use-cases.
type TimezoneService struct {
	repo       TimezoneRepository
	users      UserRepository
	resolver   Resolver
	reconciler *Reconciler
	events     EventPublisher
	log        logger.Logger
	metrics    *metrics.Metrics
}

// TimezoneOption configures a TimezoneService.
type TimezoneOption func(*TimezoneService)

// WithEvents publishes committed changes to p.
func WithEvents(p EventPublisher) TimezoneOption {
	return func(s *TimezoneService) { s.events = p }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) TimezoneOption {
	return func(s *TimezoneService) { s.log = l }
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *metrics.Metrics) TimezoneOption {
	return func(s *TimezoneService) { s.metrics = m }
}

func NewTimezoneService(repo TimezoneRepository, users UserRepository, resolver Resolver, opts ...TimezoneOption) *TimezoneService {
	s := &TimezoneService{
		repo:     repo,
		users:    users,
		resolver: resolver,
		log:      logger.Nop(),
	}
	s.reconciler = NewReconciler(resolver, s.nameTaken)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListForOwner returns every record of ownerID with its live local time.
func (s *TimezoneService) ListForOwner(ctx context.Context, principal types.Principal, ownerID int) (views []types.TimezoneView, err error) {
	defer func() { s.metrics.ObserveOperation("list", err) }()

	if err := authorizeOwner(principal, ownerID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.views(records), nil
}

// ListAll returns a page of every record. Admin only.
func (s *TimezoneService) ListAll(ctx context.Context, principal types.Principal, offset, limit int) (views []types.TimezoneView, total int, err error) {
	defer func() { s.metrics.ObserveOperation("list_all", err) }()

	if err := requireAdmin(principal); err != nil {
		return nil, 0, err
	}
	offset, limit = clampPage(offset, limit)

	records, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return s.views(records), total, nil
}

// Get returns a single record by id.
func (s *TimezoneService) Get(ctx context.Context, principal types.Principal, id int) (view types.TimezoneView, err error) {
	defer func() { s.metrics.ObserveOperation("get", err) }()

	record, err := s.load(ctx, principal, id)
	if err != nil {
		return types.TimezoneView{}, err
	}
	return s.view(record), nil
}

// GetByName returns the record of ownerID called name.
func (s *TimezoneService) GetByName(ctx context.Context, principal types.Principal, ownerID int, name string) (view types.TimezoneView, err error) {
	defer func() { s.metrics.ObserveOperation("get", err) }()

	record, err := s.loadByName(ctx, principal, ownerID, name)
	if err != nil {
		return types.TimezoneView{}, err
	}
	return s.view(record), nil
}

// Create stores a new record for ownerID. The city is resolved before the
// name is checked for duplicates, so an invalid city wins when both fail.
func (s *TimezoneService) Create(ctx context.Context, principal types.Principal, ownerID int, name, city, country string) (created types.Timezone, err error) {
	defer func() { s.metrics.ObserveOperation("create", err) }()

	if err := authorizeOwner(principal, ownerID); err != nil {
		return types.Timezone{}, err
	}
	if err := s.requireUser(ctx, ownerID); err != nil {
		return types.Timezone{}, err
	}

	name = NormalizeName(name)
	if name == "" {
		return types.Timezone{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	city = citylookup.NormalizeCity(city)

	resolved, err := s.resolve(city, country)
	if err != nil {
		return types.Timezone{}, err
	}

	taken, err := s.nameTaken(ctx, ownerID, name)
	if err != nil {
		return types.Timezone{}, err
	}
	if taken {
		return types.Timezone{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	created, err = s.repo.Create(ctx, types.Timezone{
		OwnerID:  ownerID,
		Name:     name,
		City:     city,
		Timezone: resolved.Timezone,
		Offset:   resolved.Offset,
	})
	if err != nil {
		return types.Timezone{}, s.translateWrite(err, name)
	}

	s.log.Info("timezone created", "id", created.ID, "owner_id", ownerID, "timezone", created.Timezone)
	s.publish(ctx, events.TimezoneCreated, created)
	return created, nil
}

// Update applies proposed to the record with the given id.
func (s *TimezoneService) Update(ctx context.Context, principal types.Principal, id int, proposed types.TimezoneProposal) (updated types.Timezone, err error) {
	defer func() { s.metrics.ObserveOperation("update", err) }()

	existing, err := s.load(ctx, principal, id)
	if err != nil {
		return types.Timezone{}, err
	}
	return s.update(ctx, existing, proposed)
}

// UpdateByName applies proposed to the record of ownerID called name.
func (s *TimezoneService) UpdateByName(ctx context.Context, principal types.Principal, ownerID int, name string, proposed types.TimezoneProposal) (updated types.Timezone, err error) {
	defer func() { s.metrics.ObserveOperation("update", err) }()

	existing, err := s.loadByName(ctx, principal, ownerID, name)
	if err != nil {
		return types.Timezone{}, err
	}
	return s.update(ctx, existing, proposed)
}

// Delete removes the record with the given id and returns its last values.
func (s *TimezoneService) Delete(ctx context.Context, principal types.Principal, id int) (deleted types.Timezone, err error) {
	defer func() { s.metrics.ObserveOperation("delete", err) }()

	existing, err := s.load(ctx, principal, id)
	if err != nil {
		return types.Timezone{}, err
	}
	return s.delete(ctx, existing)
}

// DeleteByName removes the record of ownerID called name.
func (s *TimezoneService) DeleteByName(ctx context.Context, principal types.Principal, ownerID int, name string) (deleted types.Timezone, err error) {
	defer func() { s.metrics.ObserveOperation("delete", err) }()

	existing, err := s.loadByName(ctx, principal, ownerID, name)
	if err != nil {
		return types.Timezone{}, err
	}
	return s.delete(ctx, existing)
}

func (s *TimezoneService) update(ctx context.Context, existing types.Timezone, proposed types.TimezoneProposal) (types.Timezone, error) {
	changes, err := s.reconciler.Reconcile(ctx, existing, proposed)
	if err != nil {
		return types.Timezone{}, err
	}
	s.log.Debug("timezone update reconciled", "id", existing.ID, "changes", changes)

	updated, err := s.repo.Update(ctx, existing.ID, changes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Timezone{}, fmt.Errorf("%w: %d", ErrTimezoneNotFound, existing.ID)
		}
		name := existing.Name
		if changes.Name != nil {
			name = *changes.Name
		}
		return types.Timezone{}, s.translateWrite(err, name)
	}

	s.log.Info("timezone updated", "id", updated.ID, "owner_id", updated.OwnerID)
	s.publish(ctx, events.TimezoneUpdated, updated)
	return updated, nil
}

func (s *TimezoneService) delete(ctx context.Context, existing types.Timezone) (types.Timezone, error) {
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Timezone{}, fmt.Errorf("%w: %d", ErrTimezoneNotFound, existing.ID)
		}
		s.log.Error("failed to delete timezone", "id", existing.ID, "error", err)
		return types.Timezone{}, err
	}

	s.log.Info("timezone deleted", "id", existing.ID, "owner_id", existing.OwnerID)
	s.publish(ctx, events.TimezoneDeleted, existing)
	return existing, nil
}

// load fetches a record and applies the ownership guard. Non-admins get the
// same error for a missing id as for someone else's record; only admins see
// ErrTimezoneNotFound.
func (s *TimezoneService) load(ctx context.Context, principal types.Principal, id int) (types.Timezone, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.Timezone{}, err
		}
		if !principal.IsAdmin() {
			return types.Timezone{}, recordNotAuthorized(id)
		}
		return types.Timezone{}, fmt.Errorf("%w: %d", ErrTimezoneNotFound, id)
	}
	if !Authorize(principal, record.OwnerID) {
		return types.Timezone{}, recordNotAuthorized(id)
	}
	return record, nil
}

// loadByName checks the guard before the lookup so that other owners' names
// are never probed.
func (s *TimezoneService) loadByName(ctx context.Context, principal types.Principal, ownerID int, name string) (types.Timezone, error) {
	if err := authorizeOwner(principal, ownerID); err != nil {
		return types.Timezone{}, err
	}
	name = NormalizeName(name)
	record, err := s.repo.GetByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Timezone{}, fmt.Errorf("%w: %q", ErrTimezoneNotFound, name)
		}
		return types.Timezone{}, err
	}
	return record, nil
}

func (s *TimezoneService) resolve(city, country string) (resolved tz.Resolution, err error) {
	defer func() { s.metrics.ObserveResolution(err) }()

	resolved, err = s.resolver.Resolve(city, country)
	if err != nil {
		return tz.Resolution{}, err
	}
	s.log.Debug("city resolved", "city", city, "country", country, "timezone", resolved.Timezone, "offset", resolved.Offset)
	return resolved, nil
}

func (s *TimezoneService) nameTaken(ctx context.Context, ownerID int, name string) (bool, error) {
	_, err := s.repo.GetByOwnerAndName(ctx, ownerID, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *TimezoneService) requireUser(ctx context.Context, id int) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return err
	}
	return nil
}

// translateWrite maps the unique (owner_id, name) constraint to
// ErrDuplicateName for writes that raced past the pre-check.
func (s *TimezoneService) translateWrite(err error, name string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	s.log.Error("failed to write timezone", "name", name, "error", err)
	return err
}

func (s *TimezoneService) publish(ctx context.Context, t events.Type, record types.Timezone) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, t, record)
}

func (s *TimezoneService) views(records []types.Timezone) []types.TimezoneView {
	views := make([]types.TimezoneView, 0, len(records))
	for _, record := range records {
		views = append(views, s.view(record))
	}
	return views
}

func (s *TimezoneService) view(record types.Timezone) types.TimezoneView {
	current, err := s.resolver.CurrentLocalTime(record.Timezone)
	if err != nil {
		s.log.Warn("failed to render local time", "id", record.ID, "timezone", record.Timezone, "error", err)
	}
	return types.TimezoneView{Timezone: record, CurrentTime: current}
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return offset, limit
}
