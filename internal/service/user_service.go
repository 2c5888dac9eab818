package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email             string          `json:"email" validate:"required,email"`
	FullName          string          `json:"full_name" validate:"required"`
	Role              models.UserRole `json:"role" validate:"required,oneof=ADMIN MODERATOR SCHOOL"`
	Active            bool            `json:"active"`
	Password          string          `json:"password" validate:"required,min=6"`
	SchoolNames       []string        `json:"school_names" validate:"omitempty,dive,required"`
	AssignedReportIDs []string        `json:"assigned_report_ids" validate:"omitempty,dive,required"`
}

// UpdateUserRequest payload for updating users.
type UpdateUserRequest struct {
	Email             string          `json:"email" validate:"omitempty,email"`
	FullName          string          `json:"full_name" validate:"required"`
	Role              models.UserRole `json:"role" validate:"required,oneof=ADMIN MODERATOR SCHOOL"`
	Active            *bool           `json:"active"`
	SchoolNames       []string        `json:"school_names" validate:"omitempty,dive,required"`
	AssignedReportIDs []string        `json:"assigned_report_ids" validate:"omitempty,dive,required"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}

	return users, pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	schools, reports, err := roleLinks(req.Role, req.SchoolNames, req.AssignedReportIDs)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:                uuid.NewString(),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:          req.FullName,
		Role:              req.Role,
		SchoolNames:       schools,
		AssignedReportIDs: reports,
		Active:            req.Active,
		PasswordHash:      string(passwordHash),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.recordAudit(ctx, models.AuditActionUserCreate, user.ID, actorID, nil, userAuditView(user), meta)
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if id == actorID && (req.Role != user.Role || (req.Active != nil && !*req.Active)) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot change your own role or deactivate yourself")
	}
	schools, reports, err := roleLinks(req.Role, req.SchoolNames, req.AssignedReportIDs)
	if err != nil {
		return nil, err
	}
	if req.Email != "" && !strings.EqualFold(req.Email, user.Email) {
		if err := s.ensureEmailFree(ctx, req.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}

	before := userAuditView(user)

	user.FullName = req.FullName
	user.Role = req.Role
	user.SchoolNames = schools
	user.AssignedReportIDs = reports
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.recordAudit(ctx, models.AuditActionUserUpdate, user.ID, actorID, before, userAuditView(user), meta)
	return user, nil
}

// Delete performs a soft delete (inactive) on a user. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta models.LoginRequest) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot delete your own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.recordAudit(ctx, models.AuditActionUserDelete, user.ID, actorID,
		map[string]interface{}{"active": user.Active}, map[string]interface{}{"active": false}, meta)
	return nil
}

// recordAudit stores a before/after snapshot; a nil before leaves old_values empty.
func (s *UserService) recordAudit(ctx context.Context, action, userID, actorID string, before, after map[string]interface{}, meta models.LoginRequest) {
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	entry.NewValues, _ = json.Marshal(after)
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already exists")
	}
	return nil
}

// roleLinks keeps only the links meaningful for role: school users need at
// least one school name, moderators carry the reports they may tag.
func roleLinks(role models.UserRole, schoolNames, reportIDs []string) ([]string, []string, error) {
	schools := make([]string, 0)
	reports := make([]string, 0)
	switch role {
	case models.RoleSchool:
		schools = uniqueTrimmed(schoolNames)
		if len(schools) == 0 {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "school users need at least one school name")
		}
	case models.RoleModerator:
		reports = uniqueTrimmed(reportIDs)
	}
	return schools, reports, nil
}

func uniqueTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func userAuditView(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"email":               u.Email,
		"role":                u.Role,
		"active":              u.Active,
		"school_names":        []string(u.SchoolNames),
		"assigned_report_ids": []string(u.AssignedReportIDs),
	}
}
