package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type reportRepository interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	FindByID(ctx context.Context, id string) (*models.Report, error)
	Create(ctx context.Context, report *models.Report) error
	Update(ctx context.Context, report *models.Report) error
	Delete(ctx context.Context, id string) error
}

// ReportRequest captures fields for creating or updating a compliance report.
type ReportRequest struct {
	Title            string       `json:"title" validate:"required,max=255"`
	FocalPerson      string       `json:"focal_person" validate:"max=255"`
	Deadline         *models.Date `json:"deadline" validate:"required"`
	ModeOfSubmission string       `json:"mode_of_submission" validate:"max=255"`
}

// ReportService manages the report table.
type ReportService struct {
	repo      reportRepository
	tables    tablesInvalidator
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService creates a new report service.
func NewReportService(repo reportRepository, tables tablesInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, tables: tables, audit: audit, validator: validate, logger: logger}
}

// List returns paginated reports ordered by deadline unless asked otherwise.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, *models.Pagination, error) {
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a report by identifier.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// Create adds a report.
func (s *ReportService) Create(ctx context.Context, req ReportRequest, actorID string, meta models.LoginRequest) (*models.Report, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	report := &models.Report{
		Title:            req.Title,
		FocalPerson:      req.FocalPerson,
		Deadline:         *req.Deadline,
		ModeOfSubmission: req.ModeOfSubmission,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	s.tables.Invalidate(ctx)
	recordWrite(ctx, s.audit, s.logger, auditEntry{
		action: models.AuditActionReportWrite, resource: "reports", resourceID: report.ID,
		actorID: actorID, meta: meta, after: report,
	})
	return report, nil
}

// Update modifies a report. Moving the deadline reclassifies every school at the next read.
func (s *ReportService) Update(ctx context.Context, id string, req ReportRequest, actorID string, meta models.LoginRequest) (*models.Report, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *report
	report.Title = req.Title
	report.FocalPerson = req.FocalPerson
	report.Deadline = *req.Deadline
	report.ModeOfSubmission = req.ModeOfSubmission
	if err := s.repo.Update(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}
	s.tables.Invalidate(ctx)
	recordWrite(ctx, s.audit, s.logger, auditEntry{
		action: models.AuditActionReportWrite, resource: "reports", resourceID: report.ID,
		actorID: actorID, meta: meta, before: before, after: report,
	})
	return report, nil
}

// Delete removes a report, its submissions and any moderator assignment to it.
func (s *ReportService) Delete(ctx context.Context, id string, actorID string, meta models.LoginRequest) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}
	s.tables.Invalidate(ctx)
	recordWrite(ctx, s.audit, s.logger, auditEntry{
		action: models.AuditActionReportWrite, resource: "reports", resourceID: id,
		actorID: actorID, meta: meta, before: report,
	})
	return nil
}

func (s *ReportService) validate(req *ReportRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.FocalPerson = strings.TrimSpace(req.FocalPerson)
	req.ModeOfSubmission = strings.TrimSpace(req.ModeOfSubmission)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if req.Deadline.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "deadline is required")
	}
	return nil
}
