package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/response"
)

type scopeResolver interface {
	ResolveScope(ctx context.Context, userID, cityID, moduleID string, roles ...models.Role) (models.AuthorizationScope, error)
}

type moduleLookup interface {
	Resolve(key models.ModuleKey) (models.Module, error)
}

// ScopeHandler exposes reviewer scope resolution.
type ScopeHandler struct {
	scopes  scopeResolver
	modules moduleLookup
}

// NewScopeHandler constructs a ScopeHandler.
func NewScopeHandler(scopes scopeResolver, modules moduleLookup) *ScopeHandler {
	return &ScopeHandler{scopes: scopes, modules: modules}
}

// Mine godoc
// @Summary Current user's scope on a module
// @Tags Scope
// @Produce json
// @Param module path string true "Module key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scope/{module} [get]
func (h *ScopeHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	key, err := models.ParseModuleKey(c.Param("module"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, err.Error()))
		return
	}
	module, err := h.modules.Resolve(key)
	if err != nil {
		response.Error(c, err)
		return
	}

	scope, err := h.scopes.ResolveScope(c.Request.Context(), claims.SubjectID(), claims.ActiveCityID, module.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scope, nil, map[string]interface{}{"module": module.Key})
}

// ForUser godoc
// @Summary Resolve any user's scope
// @Tags Scope
// @Produce json
// @Param userId query string true "User ID"
// @Param cityId query string true "City ID"
// @Param moduleId query string true "Module ID"
// @Param roles query []string false "Roles to include"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/scope [get]
func (h *ScopeHandler) ForUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var query models.ScopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scope query"))
		return
	}
	if !claims.IsSuperAdmin() && query.CityID != claims.ActiveCityID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "city outside active context"))
		return
	}

	scope, err := h.scopes.ResolveScope(c.Request.Context(), query.UserID, query.CityID, query.ModuleID, query.Roles...)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scope, nil)
}
