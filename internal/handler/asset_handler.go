package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/response"
)

type assetService interface {
	Assign(ctx context.Context, actorID, cityID, assetID string, req models.AssignAssetRequest) (*models.Asset, error)
	RequestBin(ctx context.Context, claims *models.Claims, req models.BinRequest) (*models.Asset, error)
	ListAssigned(ctx context.Context, claims *models.Claims) ([]models.Asset, error)
}

// AssetHandler exposes beat assignment and bin requests.
type AssetHandler struct {
	service assetService
}

// NewAssetHandler constructs an AssetHandler.
func NewAssetHandler(svc assetService) *AssetHandler {
	return &AssetHandler{service: svc}
}

// Assign godoc
// @Summary Assign a beat
// @Description Hands an ACTIVE or COMPLETED sweeping beat to an employee of the module
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body models.AssignAssetRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/assets/{id}/assign [post]
func (h *AssetHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req models.AssignAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	asset, err := h.service.Assign(c.Request.Context(), claims.SubjectID(), cityFor(c, claims), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, asset, nil)
}

// RequestBin godoc
// @Summary Request a new litter bin
// @Description Records a PENDING bin; approving its BIN_REQUEST record activates it
// @Tags Assets
// @Accept json
// @Produce json
// @Param payload body models.BinRequest true "Bin location"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /assets/bin-requests [post]
func (h *AssetHandler) RequestBin(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req models.BinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bin request payload"))
		return
	}

	asset, err := h.service.RequestBin(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, asset)
}

// ListAssigned godoc
// @Summary List my assigned beats
// @Tags Assets
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assets/assigned [get]
func (h *AssetHandler) ListAssigned(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	assets, err := h.service.ListAssigned(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assets, nil)
}
