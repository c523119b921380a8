package services

import (
	"fmt"

	"github.com/worldclock/apiserver/types"
)

// Authorize reports whether principal may read or mutate a record owned by
// ownerID. Admins may act on anything; users only on their own records.
func Authorize(principal types.Principal, ownerID int) bool {
	switch principal.Role {
	case types.RoleAdmin:
		return true
	case types.RoleUser:
		return principal.ID > 0 && principal.ID == ownerID
	default:
		return false
	}
}

func authorizeOwner(principal types.Principal, ownerID int) error {
	if !Authorize(principal, ownerID) {
		return fmt.Errorf("%w: user %d may not access records of user %d", ErrNotAuthorized, principal.ID, ownerID)
	}
	return nil
}

// recordNotAuthorized is the single error non-admins see for a timezone id
// they cannot read, whether it is missing or owned by someone else.
func recordNotAuthorized(id int) error {
	return fmt.Errorf("%w: timezone %d", ErrNotAuthorized, id)
}

func requireAdmin(principal types.Principal) error {
	if !principal.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrNotAuthorized)
	}
	return nil
}
