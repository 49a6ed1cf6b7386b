package types

import "errors"

// Sentinel errors shared across services and repositories. Handlers map
// them to status codes with errors.Is; repositories wrap them with context.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrInvalid         = errors.New("invalid input")
)
