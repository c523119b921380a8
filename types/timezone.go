package types

import "time"

// Timezone is a named timezone entry owned by a user.
//
// City holds the normalized text supplied by the user, while Timezone and
// Offset are derived from it when the record is written. Offset is frozen at
// write time and is not refreshed when DST rules later shift the live offset.
type Timezone struct {
	// ID is the unique identifier of the record.
	ID int `json:"id"`

	// OwnerID identifies the user that owns the record.
	OwnerID int `json:"owner_id"`

	// Name is the user-chosen label, trimmed and lowercased. It is unique per owner.
	Name string `json:"name"`

	// City is the trimmed, lowercased city name as supplied by the user.
	City string `json:"city"`

	// Timezone is the IANA identifier resolved from City, e.g. "America/New_York".
	Timezone string `json:"timezone"`

	// Offset is the whole-hour UTC offset of Timezone at write time, e.g. "-5:00".
	Offset string `json:"offset"`

	// CreatedAt is the timestamp at which the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the record.
	UpdatedAt time.Time `json:"updated_at"`
}

// TimezoneView is a Timezone annotated for display with the live local time
// of its zone. CurrentTime is computed on read and never persisted.
type TimezoneView struct {
	Timezone
	CurrentTime string `json:"current_time"`
}

// TimezoneUpdate is a set of column-level changes to apply to a Timezone.
// A nil field is left untouched. City, Timezone and Offset always change
// together.
type TimezoneUpdate struct {
	Name     *string `json:"name,omitempty"`
	City     *string `json:"city,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	Offset   *string `json:"offset,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u TimezoneUpdate) IsEmpty() bool {
	return u.Name == nil && u.City == nil && u.Timezone == nil && u.Offset == nil
}

// TimezoneProposal is a caller-supplied partial change to a Timezone. Country
// is only a hint used to disambiguate City and is never stored.
type TimezoneProposal struct {
	Name    *string `json:"name,omitempty"`
	City    *string `json:"city,omitempty"`
	Country *string `json:"country,omitempty"`
}
