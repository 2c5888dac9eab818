package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-compliance-api/internal/dto"
	"github.com/noah-isme/report-compliance-api/internal/models"
	"github.com/noah-isme/report-compliance-api/internal/service"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
	"github.com/noah-isme/report-compliance-api/pkg/response"
)

type complianceService interface {
	Overview(ctx context.Context, role models.UserRole) (*dto.ComplianceOverviewResponse, bool, error)
	Matrix(ctx context.Context, role models.UserRole, key, direction string) (*dto.ComplianceMatrixResponse, bool, error)
	SchoolDashboard(ctx context.Context, actorID string, role models.UserRole, schoolID string) (*dto.SchoolDashboardResponse, bool, error)
	Tagging(ctx context.Context, actorID string, role models.UserRole, reportID string) (*dto.TaggingResponse, bool, error)
	ExportCSV(ctx context.Context, role models.UserRole) ([]byte, error)
}

// ComplianceHandler serves the read-only compliance views.
type ComplianceHandler struct {
	service complianceService
}

// NewComplianceHandler constructs the handler.
func NewComplianceHandler(svc complianceService) *ComplianceHandler {
	return &ComplianceHandler{service: svc}
}

// Overview godoc
// @Summary Administrative compliance overview
// @Tags Compliance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /compliance/overview [get]
func (h *ComplianceHandler) Overview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	overview, cached, err := h.service.Overview(c.Request.Context(), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, overview, cached)
}

// Matrix godoc
// @Summary School by report compliance matrix
// @Tags Compliance
// @Produce json
// @Param sort query string false "schoolName, onTimeRate, nonComplianceRate, overdueAverage or a report ID"
// @Param direction query string false "ascending or descending"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /compliance/matrix [get]
func (h *ComplianceHandler) Matrix(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	matrix, cached, err := h.service.Matrix(c.Request.Context(), claims.Role, c.Query("sort"), c.Query("direction"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, matrix, cached)
}

// ExportCSV godoc
// @Summary Download the compliance overview as CSV
// @Tags Compliance
// @Produce text/csv
// @Success 200 {file} binary
// @Router /compliance/export.csv [get]
func (h *ComplianceHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payload, err := h.service.ExportCSV(c.Request.Context(), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, service.ComplianceExportFilename, response.ContentTypeCSV, payload)
}

// MySchool godoc
// @Summary Dashboard of the caller's own school
// @Tags Compliance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /compliance/school [get]
func (h *ComplianceHandler) MySchool(c *gin.Context) {
	h.school(c, "")
}

// School godoc
// @Summary Dashboard of one school
// @Tags Compliance
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /compliance/schools/{id} [get]
func (h *ComplianceHandler) School(c *gin.Context) {
	h.school(c, c.Param("id"))
}

func (h *ComplianceHandler) school(c *gin.Context, schoolID string) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, cached, err := h.service.SchoolDashboard(c.Request.Context(), claims.UserID, claims.Role, schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, view, cached)
}

// Tagging godoc
// @Summary Per-report tagging viewer
// @Tags Compliance
// @Produce json
// @Param reportId query string false "Selected report, defaults to the first visible one"
// @Success 200 {object} response.Envelope
// @Router /compliance/tagging [get]
func (h *ComplianceHandler) Tagging(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, cached, err := h.service.Tagging(c.Request.Context(), claims.UserID, claims.Role, c.Query("reportId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondCached(c, view, cached)
}
