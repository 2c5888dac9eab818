package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

type invalidatorStub struct {
	calls int
}

func (i *invalidatorStub) Invalidate(ctx context.Context) {
	i.calls++
}

type mockSchoolRepo struct {
	schools  map[string]*models.School
	renamed  []string
	deleteID string
}

func (m *mockSchoolRepo) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	out := make([]models.School, 0, len(m.schools))
	for _, s := range m.schools {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := m.schools[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSchoolRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for _, s := range m.schools {
		if strings.EqualFold(s.Name, name) && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSchoolRepo) Create(ctx context.Context, school *models.School) error {
	school.ID = uuid.NewString()
	copy := *school
	m.schools[school.ID] = &copy
	return nil
}

func (m *mockSchoolRepo) Update(ctx context.Context, school *models.School, previousName string) error {
	copy := *school
	m.schools[school.ID] = &copy
	m.renamed = append(m.renamed, previousName+"->"+school.Name)
	return nil
}

func (m *mockSchoolRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.schools[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.schools, id)
	m.deleteID = id
	return nil
}

func newSchoolServiceForTest() (*SchoolService, *mockSchoolRepo, *invalidatorStub, *auditStub) {
	repo := &mockSchoolRepo{schools: map[string]*models.School{"s1": {ID: "s1", Name: "North High"}}}
	tables := &invalidatorStub{}
	audit := &auditStub{}
	return NewSchoolService(repo, tables, audit, validator.New(), zap.NewNop()), repo, tables, audit
}

func TestSchoolServiceCreate(t *testing.T) {
	svc, repo, tables, audit := newSchoolServiceForTest()

	school, err := svc.Create(context.Background(), SchoolRequest{Name: "  South High "}, "admin", models.LoginRequest{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "South High", school.Name)
	assert.Contains(t, repo.schools, school.ID)
	assert.Equal(t, 1, tables.calls)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSchoolWrite, audit.logs[0].Action)
	assert.Equal(t, school.ID, *audit.logs[0].ResourceID)
}

func TestSchoolServiceCreateDuplicateName(t *testing.T) {
	svc, _, tables, _ := newSchoolServiceForTest()

	_, err := svc.Create(context.Background(), SchoolRequest{Name: "north high"}, "admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Zero(t, tables.calls)

	_, err = svc.Create(context.Background(), SchoolRequest{Name: "   "}, "admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSchoolServiceRenamePassesPreviousName(t *testing.T) {
	svc, repo, tables, audit := newSchoolServiceForTest()

	school, err := svc.Update(context.Background(), "s1", SchoolRequest{Name: "North Senior High"}, "admin", models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "North Senior High", school.Name)
	assert.Equal(t, []string{"North High->North Senior High"}, repo.renamed)
	assert.Equal(t, 1, tables.calls)
	require.Len(t, audit.logs, 1)
	assert.Contains(t, string(audit.logs[0].OldValues), "North High")
}

func TestSchoolServiceDelete(t *testing.T) {
	svc, repo, tables, _ := newSchoolServiceForTest()

	require.NoError(t, svc.Delete(context.Background(), "s1", "admin", models.LoginRequest{}))
	assert.Equal(t, "s1", repo.deleteID)
	assert.Equal(t, 1, tables.calls)

	err := svc.Delete(context.Background(), "s1", "admin", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSchoolServiceList(t *testing.T) {
	svc, _, _, _ := newSchoolServiceForTest()

	schools, pagination, err := svc.List(context.Background(), models.SchoolFilter{})
	require.NoError(t, err)
	assert.Len(t, schools, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}
