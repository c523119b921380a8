package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/worldclock/apiserver/internal/citylookup"
	"github.com/worldclock/apiserver/internal/tz"
	"github.com/worldclock/apiserver/types"
)

// Resolver maps a city to a timezone and renders live local times.
type Resolver interface {
	Resolve(city, country string) (tz.Resolution, error)
	CurrentLocalTime(zone string) (string, error)
}

// NameTaken reports whether ownerID already has a record called name.
type NameTaken func(ctx context.Context, ownerID int, name string) (bool, error)

// Reconciler turns a proposal into the minimal set of column changes for an
// existing record.
type Reconciler struct {
	resolver  Resolver
	nameTaken NameTaken
}

// NewReconciler constructs a Reconciler.
func NewReconciler(resolver Resolver, nameTaken NameTaken) *Reconciler {
	return &Reconciler{resolver: resolver, nameTaken: nameTaken}
}

// Reconcile compares proposed against existing field by field. A name change
// must not collide with another record of the same owner. A city change only
// counts when it resolves to a different timezone, in which case city,
// timezone and offset change together. An empty result fails with
// ErrNoFieldsToUpdate.
func (r *Reconciler) Reconcile(ctx context.Context, existing types.Timezone, proposed types.TimezoneProposal) (types.TimezoneUpdate, error) {
	var update types.TimezoneUpdate

	if proposed.Name != nil {
		name := NormalizeName(*proposed.Name)
		if name == "" {
			return types.TimezoneUpdate{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		if name != existing.Name {
			taken, err := r.nameTaken(ctx, existing.OwnerID, name)
			if err != nil {
				return types.TimezoneUpdate{}, err
			}
			if taken {
				return types.TimezoneUpdate{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
			}
			update.Name = &name
		}
	}

	if proposed.City != nil {
		city := citylookup.NormalizeCity(*proposed.City)
		country := ""
		if proposed.Country != nil {
			country = *proposed.Country
		}
		resolved, err := r.resolver.Resolve(city, country)
		if err != nil {
			return types.TimezoneUpdate{}, err
		}
		if resolved.Timezone != existing.Timezone {
			update.City = &city
			update.Timezone = &resolved.Timezone
			update.Offset = &resolved.Offset
		}
	}

	if update.IsEmpty() {
		return types.TimezoneUpdate{}, ErrNoFieldsToUpdate
	}
	return update, nil
}

// NormalizeName trims and lowercases a timezone label.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
