package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School, previousName string) error
	Delete(ctx context.Context, id string) error
}

type tablesInvalidator interface {
	Invalidate(ctx context.Context)
}

// SchoolRequest captures fields for creating or renaming a school.
type SchoolRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SchoolService manages the school table.
type SchoolService struct {
	repo      schoolRepository
	tables    tablesInvalidator
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService creates a new school service.
func NewSchoolService(repo schoolRepository, tables tablesInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, tables: tables, audit: audit, validator: validate, logger: logger}
}

// List returns paginated schools.
func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a school by identifier.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// Create adds a school. Names are unique regardless of case.
func (s *SchoolService) Create(ctx context.Context, req SchoolRequest, actorID string, meta models.LoginRequest) (*models.School, error) {
	name, err := s.validName(ctx, req, "")
	if err != nil {
		return nil, err
	}
	school := &models.School{Name: name}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	s.tables.Invalidate(ctx)
	recordWrite(ctx, s.audit, s.logger, auditEntry{
		action: models.AuditActionSchoolWrite, resource: "schools", resourceID: school.ID,
		actorID: actorID, meta: meta, after: school,
	})
	return school, nil
}

// Update renames a school. School users registered under the old name follow the rename.
func (s *SchoolService) Update(ctx context.Context, id string, req SchoolRequest, actorID string, meta models.LoginRequest) (*models.School, error) {
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := s.validName(ctx, req, id)
	if err != nil {
		return nil, err
	}
	before := *school
	school.Name = name
	if err := s.repo.Update(ctx, school, before.Name); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	s.tables.Invalidate(ctx)
	recordWrite(ctx, s.audit, s.logger, auditEntry{
		action: models.AuditActionSchoolWrite, resource: "schools", resourceID: school.ID,
		actorID: actorID, meta: meta, before: before, after: school,
	})
	return school, nil
}

// Delete removes a school together with its submissions.
func (s *SchoolService) Delete(ctx context.Context, id string, actorID string, meta models.LoginRequest) error {
	school, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
	}
	s.tables.Invalidate(ctx)
	recordWrite(ctx, s.audit, s.logger, auditEntry{
		action: models.AuditActionSchoolWrite, resource: "schools", resourceID: id,
		actorID: actorID, meta: meta, before: school,
	})
	return nil
}

func (s *SchoolService) validName(ctx context.Context, req SchoolRequest, excludeID string) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	exists, err := s.repo.ExistsByName(ctx, req.Name, excludeID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school name")
	}
	if exists {
		return "", appErrors.Clone(appErrors.ErrConflict, "school name already exists")
	}
	return req.Name, nil
}

// auditEntry describes one data write for the audit trail.
type auditEntry struct {
	action     string
	resource   string
	resourceID string
	actorID    string
	meta       models.LoginRequest
	before     interface{}
	after      interface{}
}

// recordWrite stores an audit log entry. Failures are logged and never fail the write.
func recordWrite(ctx context.Context, audit auditRecorder, logger *zap.Logger, entry auditEntry) {
	if audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:    entry.action,
		Resource:  entry.resource,
		IPAddress: entry.meta.IP,
		UserAgent: entry.meta.UserAgent,
	}
	if entry.actorID != "" {
		log.UserID = &entry.actorID
	}
	if entry.resourceID != "" {
		log.ResourceID = &entry.resourceID
	}
	if entry.before != nil {
		log.OldValues, _ = json.Marshal(entry.before)
	}
	if entry.after != nil {
		log.NewValues, _ = json.Marshal(entry.after)
	}
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.action), zap.String("resource", entry.resource), zap.Error(err))
	}
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
