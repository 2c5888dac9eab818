package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/dto"
	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
	"github.com/noah-isme/report-compliance-api/pkg/export"
)

// ComplianceExportFilename names the downloaded overview spreadsheet.
const ComplianceExportFilename = "report-compliance-overview.csv"

type tablesLoader interface {
	Load(ctx context.Context) (compliance.Tables, bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ComplianceServiceParams groups constructor dependencies.
type ComplianceServiceParams struct {
	Tables     tablesLoader
	Users      userFinder
	Clock      compliance.Clock
	Thresholds compliance.Thresholds
	Logger     *zap.Logger
}

// ComplianceService evaluates the tables and projects the result for each role.
type ComplianceService struct {
	tables     tablesLoader
	users      userFinder
	clock      compliance.Clock
	thresholds compliance.Thresholds
	csv        *export.CSVExporter
	logger     *zap.Logger
}

// NewComplianceService constructs a ComplianceService.
func NewComplianceService(params ComplianceServiceParams) *ComplianceService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	thresholds := params.Thresholds
	if thresholds == (compliance.Thresholds{}) {
		thresholds = compliance.DefaultThresholds()
	}
	return &ComplianceService{
		tables:     params.Tables,
		users:      params.Users,
		clock:      params.Clock,
		thresholds: thresholds,
		csv:        export.NewCSVExporter(),
		logger:     logger,
	}
}

// Today is the current calendar date in the configured timezone.
func (s *ComplianceService) Today() models.Date {
	return s.clock.Today()
}

// Evaluate loads the tables and aggregates them against today's date.
func (s *ComplianceService) Evaluate(ctx context.Context) (*compliance.Result, bool, error) {
	return s.EvaluateAt(ctx, s.clock.Today())
}

// EvaluateAt aggregates the current tables as of the given calendar date.
func (s *ComplianceService) EvaluateAt(ctx context.Context, today models.Date) (*compliance.Result, bool, error) {
	tables, cached, err := s.tables.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	return compliance.Aggregate(tables, today, s.thresholds), cached, nil
}

// Overview returns the administrative stat cards, rankings and per-school metrics.
func (s *ComplianceService) Overview(ctx context.Context, role models.UserRole) (*dto.ComplianceOverviewResponse, bool, error) {
	caps := compliance.CapabilitiesFor(role)
	if !caps.Overview {
		return nil, false, appErrors.ErrForbidden
	}
	res, cached, err := s.Evaluate(ctx)
	if err != nil {
		return nil, false, err
	}
	var counts compliance.StatusCounts
	for _, m := range res.Schools {
		counts.OnTime += m.Counts.OnTime
		counts.Late += m.Counts.Late
		counts.Overdue += m.Counts.Overdue
		counts.Pending += m.Counts.Pending
		counts.NotApplicable += m.Counts.NotApplicable
	}
	return &dto.ComplianceOverviewResponse{
		AsOf: res.Today,
		Stats: dto.OverviewStats{
			TotalSchools:   len(res.Tables.Schools),
			TotalReports:   len(res.Tables.Reports),
			TopPerformers:  len(res.PromptSubmitters),
			NeedsAttention: len(res.FrequentLate),
		},
		PromptSubmitters: res.PromptSubmitters,
		FrequentLate:     res.FrequentLate,
		Schools:          res.Schools,
		Counts:           counts,
		Capabilities:     caps,
	}, cached, nil
}

// Matrix returns the school by report grid sorted by key and direction.
// An empty key keeps the default alphabetical order.
func (s *ComplianceService) Matrix(ctx context.Context, role models.UserRole, key, direction string) (*dto.ComplianceMatrixResponse, bool, error) {
	if !compliance.CapabilitiesFor(role).Matrix {
		return nil, false, appErrors.ErrForbidden
	}
	state := compliance.DefaultSort()
	if key != "" {
		state.Key = key
	}
	switch compliance.SortDirection(direction) {
	case "":
	case compliance.SortAscending, compliance.SortDescending:
		state.Direction = compliance.SortDirection(direction)
	default:
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "direction must be ascending or descending")
	}

	res, cached, err := s.Evaluate(ctx)
	if err != nil {
		return nil, false, err
	}
	return &dto.ComplianceMatrixResponse{AsOf: res.Today, Matrix: compliance.BuildMatrix(res, state)}, cached, nil
}

// SchoolDashboard returns one school's dashboard. School users always get their
// own school; administrators and moderators must name one.
func (s *ComplianceService) SchoolDashboard(ctx context.Context, actorID string, role models.UserRole, schoolID string) (*dto.SchoolDashboardResponse, bool, error) {
	caps := compliance.CapabilitiesFor(role)
	if !caps.OwnSchool && !caps.AnySchool {
		return nil, false, appErrors.ErrForbidden
	}
	res, cached, err := s.Evaluate(ctx)
	if err != nil {
		return nil, false, err
	}

	if !caps.AnySchool {
		user, err := s.actor(ctx, actorID)
		if err != nil {
			return nil, false, err
		}
		own, ok := ownSchool(res, user)
		if !ok {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no school is linked to this account")
		}
		if schoolID != "" && schoolID != own.ID {
			return nil, false, appErrors.ErrForbidden
		}
		schoolID = own.ID
	} else if schoolID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "school id is required")
	}

	view, ok := compliance.BuildSchoolView(res, schoolID)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "school not found")
	}
	return &dto.SchoolDashboardResponse{AsOf: res.Today, SchoolView: view}, cached, nil
}

// Tagging returns the per-report viewer limited to the reports the actor may tag.
func (s *ComplianceService) Tagging(ctx context.Context, actorID string, role models.UserRole, reportID string) (*dto.TaggingResponse, bool, error) {
	if !compliance.CapabilitiesFor(role).Tagging {
		return nil, false, appErrors.ErrForbidden
	}
	user, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, false, err
	}
	res, cached, err := s.Evaluate(ctx)
	if err != nil {
		return nil, false, err
	}
	visible := compliance.ReportsVisibleTo(*user, res.Tables.Reports)
	return &dto.TaggingResponse{AsOf: res.Today, TaggingView: compliance.BuildTaggingView(res, visible, reportID)}, cached, nil
}

// ExportCSV renders the overview spreadsheet: one row per school in name
// order and one status column per report.
func (s *ComplianceService) ExportCSV(ctx context.Context, role models.UserRole) ([]byte, error) {
	if !compliance.CapabilitiesFor(role).Export {
		return nil, appErrors.ErrForbidden
	}
	res, _, err := s.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	headers, rows := compliance.ExportTable(res)
	payload, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("compliance csv rendered", zap.Int("schools", len(rows)), zap.Int("bytes", len(payload)))
	return payload, nil
}

func (s *ComplianceService) actor(ctx context.Context, actorID string) (*models.User, error) {
	if actorID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load user %s", actorID))
	}
	return user, nil
}

// ownSchool resolves the first registered school name that still exists.
func ownSchool(res *compliance.Result, user *models.User) (models.School, bool) {
	if user.Role != models.RoleSchool {
		return models.School{}, false
	}
	for _, name := range user.SchoolNames {
		if school, ok := res.SchoolByName(name); ok {
			return school, true
		}
	}
	return models.School{}, false
}
