package models

import (
	"time"

	"github.com/lib/pq"
)

// ModuleRoleGrant gives a user one role on a module in a city, optionally limited to zones and wards.
type ModuleRoleGrant struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"userId"`
	CityID    string         `db:"city_id" json:"cityId"`
	ModuleID  string         `db:"module_id" json:"moduleId"`
	Role      Role           `db:"role" json:"role"`
	CanWrite  bool           `db:"can_write" json:"canWrite"`
	ZoneIDs   pq.StringArray `db:"zone_ids" json:"zoneIds"`
	WardIDs   pq.StringArray `db:"ward_ids" json:"wardIds"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// GrantFilter selects grants for a user in a city.
type GrantFilter struct {
	UserID   string
	CityID   string
	ModuleID string
	Roles    []Role
}

// UpsertGrantRequest creates or replaces a grant.
type UpsertGrantRequest struct {
	UserID   string    `json:"userId" validate:"required"`
	CityID   string    `json:"cityId" validate:"required"`
	Module   ModuleKey `json:"module" validate:"required"`
	Role     Role      `json:"role" validate:"required"`
	CanWrite bool      `json:"canWrite"`
	ZoneIDs  []string  `json:"zoneIds"`
	WardIDs  []string  `json:"wardIds"`
}

// RevokeGrantRequest identifies a grant to delete.
type RevokeGrantRequest struct {
	UserID string    `json:"userId" form:"userId" validate:"required"`
	CityID string    `json:"cityId" form:"cityId" validate:"required"`
	Module ModuleKey `json:"module" form:"module" validate:"required"`
	Role   Role      `json:"role" form:"role" validate:"required"`
}
