package gate

import (
	"sort"
	"strings"
)

// Role is the authorization label of a user. The zero value, RoleNone,
// stands for an unresolved role and grants nothing.
type Role string

const (
	// RoleNone means the role is unknown or could not be resolved
	RoleNone Role = ""
	// RoleAdmin administers the whole application
	RoleAdmin Role = "ADMIN"
	// RoleStaff operates on behalf of clients
	RoleStaff Role = "STAFF"
	// RoleClient is a paying client
	RoleClient Role = "CLIENT"
	// RoleObserver has read only access
	RoleObserver Role = "OBSERVER"
)

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient, RoleObserver:
		return true
	default:
		return false
	}
}

// IsNone reports whether the role is unresolved
func (r Role) IsNone() bool {
	return r == RoleNone
}

func (r Role) String() string {
	if r == RoleNone {
		return "<none>"
	}
	return string(r)
}

// AllRoles returns every role of the closed set
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleStaff,
		RoleClient,
		RoleObserver,
	}
}

// ParseRole parses a stored role value. Anything outside the closed
// set, including different casing, yields RoleNone.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(raw))
	if !role.IsValid() {
		return RoleNone, false
	}
	return role, true
}

// RoleSet is an explicit allow-set of roles. There is no implied
// hierarchy between roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds an allow-set, dropping RoleNone and invalid values
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if r.IsValid() {
			set[r] = struct{}{}
		}
	}
	return set
}

// Contains checks membership; RoleNone is never a member
func (s RoleSet) Contains(r Role) bool {
	if r == RoleNone {
		return false
	}
	_, ok := s[r]
	return ok
}

// Roles returns the members sorted for stable output
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
