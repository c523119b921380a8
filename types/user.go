package types

import (
	"strings"
	"time"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id"`

	// Email is the unique, lowercased login address of the user.
	Email string `json:"email"`

	// Name is the user's display or full name.
	Name string `json:"name"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal returns the identity this user acts as once authenticated.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Role is the authorization level of a user.
type Role string

// Supported roles.
const (
	// RoleUser may only manage its own timezones.
	RoleUser Role = "user"

	// RoleAdmin may manage every user and every timezone.
	RoleAdmin Role = "admin"
)

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated identity performing a request.
type Principal struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
