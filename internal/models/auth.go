package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	CityID    string `json:"cityId"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// SwitchCityRequest re-issues claims for another city membership.
type SwitchCityRequest struct {
	CityID string `json:"cityId" validate:"required"`
}

// LoginResponse returns the issued token and the claims it carries.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        UserInfo  `json:"user"`
	Claims      *Claims   `json:"claims"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// ModuleClaim is the per-module access carried in claims.
type ModuleClaim struct {
	ModuleID string    `json:"moduleId"`
	Key      ModuleKey `json:"key"`
	Role     Role      `json:"role"`
	Roles    []Role    `json:"roles"`
	CanWrite bool      `json:"canWrite"`
}

// Claims is the signed authorization payload every request is evaluated against.
// The subject id is carried in RegisteredClaims.Subject.
type Claims struct {
	ActiveCityID string        `json:"activeCityId,omitempty"`
	Roles        []Role        `json:"roles"`
	Modules      []ModuleClaim `json:"modules"`
	jwt.RegisteredClaims
}

// SubjectID returns the user the claims were issued for.
func (c *Claims) SubjectID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// HasRole reports whether the claims carry role at city level.
func (c *Claims) HasRole(role Role) bool {
	return c != nil && HasRole(c.Roles, role)
}

// IsSuperAdmin reports whether the claims carry the global administrator role.
func (c *Claims) IsSuperAdmin() bool {
	return c.HasRole(RoleSuperAdmin)
}

// Module returns the claim for key, if present.
func (c *Claims) Module(key ModuleKey) (ModuleClaim, bool) {
	if c == nil {
		return ModuleClaim{}, false
	}
	for _, m := range c.Modules {
		if m.Key == key {
			return m, true
		}
	}
	return ModuleClaim{}, false
}

// SessionInfo describes the current caller.
type SessionInfo struct {
	User   UserInfo `json:"user"`
	Claims *Claims  `json:"claims"`
}
