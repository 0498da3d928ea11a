// File: model/identities.go
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed capability set for registry identities. Admin is a
// strict superset of moderator; None is the absence of any assignment.
type Role uint8

const (
	RoleNone Role = iota
	RoleModerator
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleNone:      "none",
	RoleModerator: "moderator",
	RoleAdmin:     "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// HasAtLeast reports whether r grants the capability of required.
func (r Role) HasAtLeast(required Role) bool {
	return r >= required
}

// ParseRole maps a role name to its Role value. Matching is case-insensitive
// and tolerates surrounding whitespace.
func ParseRole(name string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for r, n := range roleNames {
		if n == normalized {
			return r, nil
		}
	}
	return RoleNone, fmt.Errorf("unknown role '%s': %w", name, ErrInvalidData)
}

// RoleAssignment stores the role held by one identity. At most one assignment
// exists per identity; a new assignment overwrites the old one unconditionally.
type RoleAssignment struct {
	ObjectType string    `json:"objectType"` // Set to the composite key object type (RoleAssignment)
	Identity   string    `json:"identity"`   // Full host-supplied identity of the holder
	Role       string    `json:"role"`       // Role name: "moderator" or "admin"
	AssignedBy string    `json:"assignedBy"` // Identity that granted the role
	AssignedAt time.Time `json:"assignedAt"` // Timestamp of the grant
}
