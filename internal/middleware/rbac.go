package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/response"
)

// ModuleResolver extracts the module a request targets.
type ModuleResolver func(c *gin.Context) (models.ModuleKey, error)

// ModuleFromParam reads a canonical module key from a path parameter.
func ModuleFromParam(name string) ModuleResolver {
	return func(c *gin.Context) (models.ModuleKey, error) {
		return models.ParseModuleKey(c.Param(name))
	}
}

// ModuleFromFamily resolves the module owning the record family in a path parameter.
func ModuleFromFamily(name string) ModuleResolver {
	return func(c *gin.Context) (models.ModuleKey, error) {
		family, err := models.ParseRecordFamily(c.Param(name))
		if err != nil {
			return "", err
		}
		return family.Module(), nil
	}
}

// Module resolves to a fixed module key.
func Module(key models.ModuleKey) ModuleResolver {
	return func(*gin.Context) (models.ModuleKey, error) {
		return key, nil
	}
}

// RequireRoles admits callers holding any of the city-level roles. Super administrators always pass.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		if claims.IsSuperAdmin() {
			c.Next()
			return
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireModuleAccess admits callers whose claims carry the module. With write set, the claim must
// also carry canWrite, which keeps commissioners read-only.
func RequireModuleAccess(resolve ModuleResolver, write bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		key, err := resolve(c)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, err.Error()))
			c.Abort()
			return
		}
		if claims.IsSuperAdmin() {
			c.Next()
			return
		}
		module, ok := claims.Module(key)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no access to module "+string(key)))
			c.Abort()
			return
		}
		if write && !module.CanWrite {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "read-only access to module "+string(key)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCityContext refuses callers without an active city. Super administrators pass.
func RequireCityContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		if claims.ActiveCityID == "" && !claims.IsSuperAdmin() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no active city"))
			c.Abort()
			return
		}
		c.Next()
	}
}
