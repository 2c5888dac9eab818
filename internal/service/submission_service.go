package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	Find(ctx context.Context, schoolID, reportID string) (*models.Submission, error)
	Upsert(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, schoolID, reportID string) error
}

type schoolLookup interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type reportLookup interface {
	FindByID(ctx context.Context, id string) (*models.Report, error)
}

// SubmissionRequest records a status for one (school, report) pair.
type SubmissionRequest struct {
	SchoolID       string                  `json:"school_id" validate:"required"`
	ReportID       string                  `json:"report_id" validate:"required"`
	Status         models.SubmissionStatus `json:"status" validate:"required,oneof=Submitted 'Not Applicable'"`
	SubmissionDate *models.Date            `json:"submission_date"`
	Remarks        string                  `json:"remarks" validate:"max=1000"`
}

// SubmissionServiceParams groups constructor dependencies.
type SubmissionServiceParams struct {
	Repo      submissionRepository
	Schools   schoolLookup
	Reports   reportLookup
	Users     userFinder
	Tables    tablesInvalidator
	Audit     auditRecorder
	Validator *validator.Validate
	Logger    *zap.Logger
}

// SubmissionService records what each school did for each report.
type SubmissionService struct {
	repo      submissionRepository
	schools   schoolLookup
	reports   reportLookup
	users     userFinder
	tables    tablesInvalidator
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(params SubmissionServiceParams) *SubmissionService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:      params.Repo,
		schools:   params.Schools,
		reports:   params.Reports,
		users:     params.Users,
		tables:    params.Tables,
		audit:     params.Audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns recorded submissions, optionally narrowed to a school or a report.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	submissions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, nil
}

// Record creates or replaces the submission for a pair. A Submitted status
// needs a date; Not Applicable never keeps one.
func (s *SubmissionService) Record(ctx context.Context, req SubmissionRequest, actorID string, role models.UserRole, meta models.LoginRequest) (*models.Submission, error) {
	req.SchoolID = strings.TrimSpace(req.SchoolID)
	req.ReportID = strings.TrimSpace(req.ReportID)
	req.Remarks = strings.TrimSpace(req.Remarks)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	switch req.Status {
	case models.SubmissionSubmitted:
		if req.SubmissionDate == nil || req.SubmissionDate.IsZero() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "submission date is required when status is Submitted")
		}
	case models.SubmissionNotApplicable:
		req.SubmissionDate = nil
	}

	if err := s.authorize(ctx, actorID, role, req.ReportID); err != nil {
		return nil, err
	}
	if err := s.ensurePair(ctx, req.SchoolID, req.ReportID); err != nil {
		return nil, err
	}

	previous, err := s.repo.Find(ctx, req.SchoolID, req.ReportID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	submission := &models.Submission{
		SchoolID:       req.SchoolID,
		ReportID:       req.ReportID,
		Status:         req.Status,
		SubmissionDate: req.SubmissionDate,
		Remarks:        req.Remarks,
	}
	if actorID != "" {
		submission.UpdatedBy = &actorID
	}
	if err := s.repo.Upsert(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}
	s.tables.Invalidate(ctx)

	entry := auditEntry{
		action: models.AuditActionSubmissionWrite, resource: "submissions", resourceID: pairID(req.SchoolID, req.ReportID),
		actorID: actorID, meta: meta, after: submission,
	}
	if previous != nil {
		entry.before = previous
	}
	recordWrite(ctx, s.audit, s.logger, entry)
	return submission, nil
}

// Delete removes the recorded submission so the pair falls back to Pending or Overdue.
func (s *SubmissionService) Delete(ctx context.Context, schoolID, reportID string, actorID string, role models.UserRole, meta models.LoginRequest) error {
	if err := s.authorize(ctx, actorID, role, reportID); err != nil {
		return err
	}
	previous, err := s.repo.Find(ctx, schoolID, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if err := s.repo.Delete(ctx, schoolID, reportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete submission")
	}
	s.tables.Invalidate(ctx)
	recordWrite(ctx, s.audit, s.logger, auditEntry{
		action: models.AuditActionSubmissionWrite, resource: "submissions", resourceID: pairID(schoolID, reportID),
		actorID: actorID, meta: meta, before: previous,
	})
	return nil
}

// authorize lets administrators tag any report and moderators only their assigned ones.
func (s *SubmissionService) authorize(ctx context.Context, actorID string, role models.UserRole, reportID string) error {
	if !compliance.CapabilitiesFor(role).ManageData {
		return appErrors.ErrForbidden
	}
	if role != models.RoleModerator {
		return nil
	}
	user, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	for _, id := range user.AssignedReportIDs {
		if id == reportID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "report is not assigned to this moderator")
}

func (s *SubmissionService) ensurePair(ctx context.Context, schoolID, reportID string) error {
	if _, err := s.schools.FindByID(ctx, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if _, err := s.reports.FindByID(ctx, reportID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return nil
}

func pairID(schoolID, reportID string) string {
	return schoolID + ":" + reportID
}
