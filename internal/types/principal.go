package types

import (
	"slices"

	"github.com/google/uuid"
)

const RoleUser = "user"

// Principal is the authenticated caller, resolved once per request by the
// auth middleware and passed explicitly into every use case. Business
// logic never reads identity from anywhere else.
type Principal struct {
	ID       uuid.UUID
	Username string
	Roles    []string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}
