package dto

import (
	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/models"
)

// OverviewStats are the headline cards of the administrative overview.
type OverviewStats struct {
	TotalSchools   int `json:"totalSchools"`
	TotalReports   int `json:"totalReports"`
	TopPerformers  int `json:"topPerformers"`
	NeedsAttention int `json:"needsAttention"`
}

// ComplianceOverviewResponse is the administrative overview payload.
type ComplianceOverviewResponse struct {
	AsOf             models.Date                `json:"asOf"`
	Stats            OverviewStats              `json:"stats"`
	PromptSubmitters []compliance.SchoolMetrics `json:"promptSubmitters"`
	FrequentLate     []compliance.SchoolMetrics `json:"frequentLate"`
	Schools          []compliance.SchoolMetrics `json:"schools"`
	Counts           compliance.StatusCounts    `json:"counts"`
	Capabilities     compliance.Capabilities    `json:"capabilities"`
}

// ComplianceMatrixResponse wraps the sortable school by report grid.
type ComplianceMatrixResponse struct {
	AsOf models.Date `json:"asOf"`
	compliance.Matrix
}

// SchoolDashboardResponse is a single school's dashboard.
type SchoolDashboardResponse struct {
	AsOf models.Date `json:"asOf"`
	compliance.SchoolView
}

// TaggingResponse is the per-report tagging viewer.
type TaggingResponse struct {
	AsOf models.Date `json:"asOf"`
	compliance.TaggingView
}
