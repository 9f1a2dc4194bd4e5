package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/response"
)

type geoService interface {
	Create(ctx context.Context, actorID string, req models.CreateGeoNodeRequest) (*models.GeoNode, error)
	Get(ctx context.Context, id string) (*models.GeoNode, error)
	Rename(ctx context.Context, actorID, id string, req models.RenameGeoNodeRequest) (*models.GeoNode, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.GeoNodeFilter) ([]models.GeoNode, error)
}

// GeoHandler manages a city's geo tree.
type GeoHandler struct {
	service geoService
}

// NewGeoHandler constructs a GeoHandler.
func NewGeoHandler(svc geoService) *GeoHandler {
	return &GeoHandler{service: svc}
}

// List godoc
// @Summary List geo nodes
// @Tags Geo
// @Produce json
// @Param level query string false "ZONE, WARD, AREA or BEAT"
// @Param parentId query string false "Parent node"
// @Param cityId query string false "City (super admin only)"
// @Success 200 {object} response.Envelope
// @Router /geo [get]
func (h *GeoHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	filter := models.GeoNodeFilter{
		CityID:   cityFor(c, claims),
		Level:    models.GeoLevel(c.Query("level")),
		ParentID: c.Query("parentId"),
	}
	nodes, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nodes, nil)
}

// Create godoc
// @Summary Create a geo node
// @Tags Geo
// @Accept json
// @Produce json
// @Param payload body models.CreateGeoNodeRequest true "Node"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /geo [post]
func (h *GeoHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req models.CreateGeoNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid geo payload"))
		return
	}
	if !claims.IsSuperAdmin() || req.CityID == "" {
		req.CityID = claims.ActiveCityID
	}

	node, err := h.service.Create(c.Request.Context(), claims.SubjectID(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, node)
}

// Rename godoc
// @Summary Rename a geo node
// @Tags Geo
// @Accept json
// @Produce json
// @Param id path string true "Node ID"
// @Param payload body models.RenameGeoNodeRequest true "New name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /geo/{id} [patch]
func (h *GeoHandler) Rename(c *gin.Context) {
	claims, ok := h.ownedNode(c)
	if !ok {
		return
	}
	var req models.RenameGeoNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid geo payload"))
		return
	}
	node, err := h.service.Rename(c.Request.Context(), claims.SubjectID(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, node, nil)
}

// Delete godoc
// @Summary Delete an unreferenced geo node
// @Tags Geo
// @Param id path string true "Node ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /geo/{id} [delete]
func (h *GeoHandler) Delete(c *gin.Context) {
	if _, ok := h.ownedNode(c); !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ownedNode loads the node in the path and hides nodes of other cities.
func (h *GeoHandler) ownedNode(c *gin.Context) (*models.Claims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return nil, false
	}
	node, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !claims.IsSuperAdmin() && node.CityID != claims.ActiveCityID {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "geo node not found"))
		return nil, false
	}
	return claims, true
}
