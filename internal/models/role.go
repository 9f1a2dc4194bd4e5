package models

import (
	"fmt"
	"sort"
	"strings"
)

// Role is the closed set of roles a user can hold in a city or module.
type Role string

const (
	RoleSuperAdmin    Role = "HMS_SUPER_ADMIN"
	RoleCityAdmin     Role = "CITY_ADMIN"
	RoleCommissioner  Role = "COMMISSIONER"
	RoleQC            Role = "QC"
	RoleActionOfficer Role = "ACTION_OFFICER"
	RoleEmployee      Role = "EMPLOYEE"
)

var allRoles = []Role{RoleSuperAdmin, RoleCityAdmin, RoleCommissioner, RoleQC, RoleActionOfficer, RoleEmployee}

// ReviewerRoles are the roles whose grants define a review scope.
var ReviewerRoles = []Role{RoleQC, RoleActionOfficer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole accepts a role name in any case.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return r, nil
}

// ResolveCanWrite normalises the write flag stored on a grant for role.
// Commissioners are read-only; employees and QC keep the requested flag; every other role writes.
func ResolveCanWrite(role Role, requested bool) bool {
	switch role {
	case RoleCommissioner:
		return false
	case RoleEmployee, RoleQC:
		return requested
	default:
		return true
	}
}

// SortRoles returns a sorted, de-duplicated copy of roles.
func SortRoles(roles []Role) []Role {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasRole reports whether role appears in roles.
func HasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole returns the most privileged role in roles, or "" when roles is empty.
func PrimaryRole(roles []Role) Role {
	for _, known := range allRoles {
		if HasRole(roles, known) {
			return known
		}
	}
	return ""
}
