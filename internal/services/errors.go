package services

import (
	"errors"

	"github.com/worldclock/apiserver/internal/tz"
)

// Domain errors. Callers discriminate with errors.Is; the wrapped message
// carries the detail shown to clients.
var (
	ErrInvalidCity        = tz.ErrInvalidCity
	ErrDuplicateName      = errors.New("timezone name already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTimezoneNotFound   = errors.New("timezone not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrDuplicateEmail     = errors.New("email already exists")
)
