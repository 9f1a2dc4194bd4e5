package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/response"
)

type grantService interface {
	List(ctx context.Context, userID, cityID string, module models.ModuleKey) ([]models.ModuleRoleGrant, error)
	Upsert(ctx context.Context, actorID string, req models.UpsertGrantRequest) (*models.ModuleRoleGrant, error)
	Revoke(ctx context.Context, actorID string, req models.RevokeGrantRequest) error
}

// GrantHandler administers module role grants.
type GrantHandler struct {
	service grantService
}

// NewGrantHandler constructs a GrantHandler.
func NewGrantHandler(svc grantService) *GrantHandler {
	return &GrantHandler{service: svc}
}

// List godoc
// @Summary List a user's module grants
// @Tags Grants
// @Produce json
// @Param userId query string true "User ID"
// @Param module query string false "Module key"
// @Param cityId query string false "City (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /admin/grants [get]
func (h *GrantHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	grants, err := h.service.List(c.Request.Context(), c.Query("userId"), cityFor(c, claims), models.ModuleKey(c.Query("module")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grants, nil)
}

// Upsert godoc
// @Summary Create or replace a module grant
// @Tags Grants
// @Accept json
// @Produce json
// @Param payload body models.UpsertGrantRequest true "Grant"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/grants [put]
func (h *GrantHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req models.UpsertGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grant payload"))
		return
	}
	if !claims.IsSuperAdmin() {
		req.CityID = claims.ActiveCityID
	}

	grant, err := h.service.Upsert(c.Request.Context(), claims.SubjectID(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grant, nil)
}

// Revoke godoc
// @Summary Revoke a module grant
// @Tags Grants
// @Param userId query string true "User ID"
// @Param module query string true "Module key"
// @Param role query string true "Role"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/grants [delete]
func (h *GrantHandler) Revoke(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req models.RevokeGrantRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid revoke query"))
		return
	}
	req.CityID = cityFor(c, claims)

	if err := h.service.Revoke(c.Request.Context(), claims.SubjectID(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
