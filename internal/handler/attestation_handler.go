package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
	"github.com/noah-isme/hms-api/pkg/response"
)

type attestationIssuer interface {
	Issue(ctx context.Context, claims *models.Claims, req models.IssueAttestationRequest) (*models.Attestation, error)
}

// AttestationHandler issues proximity attestations.
type AttestationHandler struct {
	service attestationIssuer
}

// NewAttestationHandler constructs an AttestationHandler.
func NewAttestationHandler(svc attestationIssuer) *AttestationHandler {
	return &AttestationHandler{service: svc}
}

// Issue godoc
// @Summary Attest presence near an asset
// @Description Returns a short-lived token binding the reading to the asset and caller
// @Tags Attestations
// @Accept json
// @Produce json
// @Param payload body models.IssueAttestationRequest true "Reading"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /attestations [post]
func (h *AttestationHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return
	}
	var req models.IssueAttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attestation payload"))
		return
	}

	att, err := h.service.Issue(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att)
}
