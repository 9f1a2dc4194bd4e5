package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	"github.com/noah-isme/hms-api/internal/service"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/export"
	"github.com/noah-isme/hms-api/pkg/response"
)

type reviewService interface {
	Submit(ctx context.Context, claims *models.Claims, family models.RecordFamily, req models.SubmitReviewRequest) (*models.ReviewRecord, error)
	List(ctx context.Context, claims *models.Claims, family models.RecordFamily, query models.ReviewListQuery) ([]models.ReviewRecord, *models.Pagination, error)
	Get(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string) (*models.ReviewRecord, error)
	Decide(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string, req models.DecisionRequest) (*models.ReviewRecord, error)
	TakeAction(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string, req models.ActionTakenRequest) (*models.ReviewRecord, error)
	AuditTrail(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string) ([]models.ReviewAuditEntry, error)
	ExportAuditTrail(ctx context.Context, claims *models.Claims, family models.RecordFamily, id string, format export.Format) (*service.AuditExport, error)
}

// ReviewHandler serves every reviewable record family through one set of routes.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(svc reviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// Submit godoc
// @Summary Submit a field record
// @Description The attestation token must have been issued for the same asset and caller
// @Tags Reviews
// @Accept json
// @Produce json
// @Param family path string true "Record family"
// @Param payload body models.SubmitReviewRequest true "Submission"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /reviews/{family} [post]
func (h *ReviewHandler) Submit(c *gin.Context) {
	claims, family, ok := h.prepare(c)
	if !ok {
		return
	}
	var req models.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	record, err := h.service.Submit(c.Request.Context(), claims, family, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List records visible to the caller
// @Tags Reviews
// @Produce json
// @Param family path string true "Record family"
// @Param status query []string false "Statuses"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param cityId query string false "City (super admin only)"
// @Param assigned query string false "Only records escalated to the caller (me)"
// @Success 200 {object} response.Envelope
// @Router /reviews/{family} [get]
func (h *ReviewHandler) List(c *gin.Context) {
	claims, family, ok := h.prepare(c)
	if !ok {
		return
	}
	var query models.ReviewListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	for i, s := range query.Statuses {
		query.Statuses[i] = models.ReviewStatus(strings.ToUpper(string(s)))
	}

	records, pagination, err := h.service.List(c.Request.Context(), claims, family, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get one record
// @Tags Reviews
// @Produce json
// @Param family path string true "Record family"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reviews/{family}/{id} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	claims, family, ok := h.prepare(c)
	if !ok {
		return
	}
	record, err := h.service.Get(c.Request.Context(), claims, family, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Decide godoc
// @Summary Approve, reject or escalate a record
// @Tags Reviews
// @Accept json
// @Produce json
// @Param family path string true "Record family"
// @Param id path string true "Record ID"
// @Param payload body models.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews/{family}/{id}/decision [post]
func (h *ReviewHandler) Decide(c *gin.Context) {
	claims, family, ok := h.prepare(c)
	if !ok {
		return
	}
	var req models.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	req.Decision = models.Decision(strings.ToUpper(strings.TrimSpace(string(req.Decision))))

	record, err := h.service.Decide(c.Request.Context(), claims, family, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// TakeAction godoc
// @Summary Report remediation on an escalated record
// @Tags Reviews
// @Accept json
// @Produce json
// @Param family path string true "Record family"
// @Param id path string true "Record ID"
// @Param payload body models.ActionTakenRequest true "Action report"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews/{family}/{id}/action [post]
func (h *ReviewHandler) TakeAction(c *gin.Context) {
	claims, family, ok := h.prepare(c)
	if !ok {
		return
	}
	var req models.ActionTakenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}

	record, err := h.service.TakeAction(c.Request.Context(), claims, family, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Audit godoc
// @Summary Audit trail of a record
// @Tags Reviews
// @Produce json
// @Param family path string true "Record family"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /reviews/{family}/{id}/audit [get]
func (h *ReviewHandler) Audit(c *gin.Context) {
	claims, family, ok := h.prepare(c)
	if !ok {
		return
	}
	entries, err := h.service.AuditTrail(c.Request.Context(), claims, family, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportAudit godoc
// @Summary Download a record's audit trail
// @Tags Reviews
// @Produce text/csv
// @Produce application/pdf
// @Param family path string true "Record family"
// @Param id path string true "Record ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reviews/{family}/{id}/audit/export [get]
func (h *ReviewHandler) ExportAudit(c *gin.Context) {
	claims, family, ok := h.prepare(c)
	if !ok {
		return
	}
	format := export.Format(strings.ToLower(c.DefaultQuery("format", string(export.FormatCSV))))

	file, err := h.service.ExportAuditTrail(c.Request.Context(), claims, family, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

func (h *ReviewHandler) prepare(c *gin.Context) (*models.Claims, models.RecordFamily, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return nil, "", false
	}
	family, err := models.ParseRecordFamily(c.Param("family"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, err.Error()))
		return nil, "", false
	}
	return claims, family, true
}
