package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-compliance-api/internal/models"
	"github.com/noah-isme/report-compliance-api/internal/service"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
	"github.com/noah-isme/report-compliance-api/pkg/response"
)

type submissionService interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	Record(ctx context.Context, req service.SubmissionRequest, actorID string, role models.UserRole, meta models.LoginRequest) (*models.Submission, error)
	Delete(ctx context.Context, schoolID, reportID string, actorID string, role models.UserRole, meta models.LoginRequest) error
}

// SubmissionHandler records school submissions against reports.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(svc submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: svc}
}

// List godoc
// @Summary List recorded submissions
// @Tags Submissions
// @Produce json
// @Param schoolId query string false "School ID"
// @Param reportId query string false "Report ID"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	submissions, err := h.service.List(c.Request.Context(), models.SubmissionFilter{
		SchoolID: c.Query("schoolId"),
		ReportID: c.Query("reportId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Record godoc
// @Summary Record a submission
// @Description Creates or replaces the stored status of one school for one report
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body service.SubmissionRequest true "Submission payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /submissions [put]
func (h *SubmissionHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.service.Record(c.Request.Context(), req, claims.UserID, claims.Role, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Delete godoc
// @Summary Clear a submission
// @Description The pair falls back to Pending or Overdue
// @Tags Submissions
// @Param schoolId path string true "School ID"
// @Param reportId path string true "Report ID"
// @Success 204
// @Router /submissions/{schoolId}/{reportId} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	err := h.service.Delete(c.Request.Context(), c.Param("schoolId"), c.Param("reportId"), claims.UserID, claims.Role, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
