package models

import "sort"

// AuthorizationScope is the union of zones and wards a reviewer may act on.
// An empty scope grants nothing.
type AuthorizationScope struct {
	ZoneIDs []string `json:"zoneIds"`
	WardIDs []string `json:"wardIds"`
}

// NewAuthorizationScope builds a scope with sorted, de-duplicated, never-nil id lists.
func NewAuthorizationScope(zoneIDs, wardIDs []string) AuthorizationScope {
	return AuthorizationScope{ZoneIDs: uniqueSorted(zoneIDs), WardIDs: uniqueSorted(wardIDs)}
}

// Empty reports whether the scope lists no zone and no ward.
func (s AuthorizationScope) Empty() bool {
	return len(s.ZoneIDs) == 0 && len(s.WardIDs) == 0
}

// Contains reports whether a record located at zoneID/wardID falls inside the scope.
// Each non-empty set must list the record's id: a scope of zones [Z1] and wards [W1] covers W1
// inside Z1, not every ward of Z1. An empty scope covers nothing.
func (s AuthorizationScope) Contains(zoneID, wardID string) bool {
	if s.Empty() {
		return false
	}
	if len(s.ZoneIDs) > 0 && !contains(s.ZoneIDs, zoneID) {
		return false
	}
	if len(s.WardIDs) > 0 && !contains(s.WardIDs, wardID) {
		return false
	}
	return true
}

// ScopeQuery identifies whose scope is being resolved.
type ScopeQuery struct {
	UserID   string `form:"userId" validate:"required"`
	CityID   string `form:"cityId" validate:"required"`
	ModuleID string `form:"moduleId" validate:"required"`
	Roles    []Role `form:"roles"`
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func uniqueSorted(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
