package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/dto"
	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
	"github.com/noah-isme/report-compliance-api/pkg/response"
)

type automationService interface {
	Simulate(ctx context.Context) (*compliance.Simulation, error)
	PreviewOverdueNotices(ctx context.Context, actorID string) (*dto.NoticePreviewResponse, error)
	DispatchOverdueNotices(ctx context.Context, actorID string, req dto.NoticeDispatchRequest, meta models.LoginRequest) (*dto.NoticeDispatchResponse, error)
}

// AutomationHandler exposes the email automation dry run and manual overdue notices.
type AutomationHandler struct {
	service automationService
}

// NewAutomationHandler constructs the handler.
func NewAutomationHandler(svc automationService) *AutomationHandler {
	return &AutomationHandler{service: svc}
}

// Simulate godoc
// @Summary Simulate today's automated emails
// @Description Nothing is sent; the response lists what each rule would prepare
// @Tags Automation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /automation/simulate [post]
func (h *AutomationHandler) Simulate(c *gin.Context) {
	sim, err := h.service.Simulate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SimulationResponse{Simulation: *sim}, nil)
}

// PreviewNotices godoc
// @Summary Preview overdue notices
// @Description Returns the plan and a confirmation token bound to it
// @Tags Automation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /automation/overdue-notices/preview [post]
func (h *AutomationHandler) PreviewNotices(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	preview, err := h.service.PreviewOverdueNotices(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// DispatchNotices godoc
// @Summary Send overdue notices
// @Tags Automation
// @Accept json
// @Produce json
// @Param payload body dto.NoticeDispatchRequest true "Confirmation"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /automation/overdue-notices/dispatch [post]
func (h *AutomationHandler) DispatchNotices(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.NoticeDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.DispatchOverdueNotices(c.Request.Context(), claims.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}
