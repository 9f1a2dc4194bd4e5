package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/response"
)

type moduleSyncer interface {
	SyncAll(ctx context.Context) ([]models.ModuleSyncResult, error)
	EnsureModuleEnabled(ctx context.Context, cityID string) (models.ModuleSyncResult, error)
	MigrateLegacyModules(ctx context.Context) ([]models.LegacyMigrationResult, error)
}

type catalogRefresher interface {
	Refresh(ctx context.Context) error
	All() []models.Module
}

// ModuleHandler exposes catalog and city module administration.
type ModuleHandler struct {
	sync    moduleSyncer
	catalog catalogRefresher
}

// NewModuleHandler constructs a ModuleHandler.
func NewModuleHandler(sync moduleSyncer, catalog catalogRefresher) *ModuleHandler {
	return &ModuleHandler{sync: sync, catalog: catalog}
}

// List godoc
// @Summary List canonical modules
// @Tags Modules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /modules [get]
func (h *ModuleHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.All(), nil)
}

// Sync godoc
// @Summary Enable every module for cities and seed reviewer grants
// @Description Without cityId every city is synchronised
// @Tags Modules
// @Produce json
// @Param cityId query string false "Single city"
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /admin/modules/sync [post]
func (h *ModuleHandler) Sync(c *gin.Context) {
	if cityID := c.Query("cityId"); cityID != "" {
		res, err := h.sync.EnsureModuleEnabled(c.Request.Context(), cityID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, []models.ModuleSyncResult{res}, nil)
		return
	}

	results, err := h.sync.SyncAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// MigrateLegacy godoc
// @Summary Fold legacy module rows into canonical modules
// @Tags Modules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/modules/migrate-legacy [post]
func (h *ModuleHandler) MigrateLegacy(c *gin.Context) {
	results, err := h.sync.MigrateLegacyModules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Refresh godoc
// @Summary Reload the module catalog snapshot
// @Tags Modules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/modules/refresh [post]
func (h *ModuleHandler) Refresh(c *gin.Context) {
	if err := h.catalog.Refresh(c.Request.Context()); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh module catalog"))
		return
	}
	response.JSON(c, http.StatusOK, h.catalog.All(), nil)
}
