package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

func TestSchoolRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
		AddRow("s1", "North High", now, now).
		AddRow("s2", "South High", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at, updated_at FROM schools ORDER BY name ASC, id ASC")).
		WillReturnRows(rows)

	schools, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, schools, 2)
	assert.Equal(t, "South High", schools[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schools WHERE 1=1 AND LOWER(name) LIKE $1 ORDER BY name DESC LIMIT 5 OFFSET 0")).
		WithArgs("%north%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).AddRow("s1", "North High", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schools WHERE 1=1 AND LOWER(name) LIKE $1")).
		WithArgs("%north%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schools, total, err := repo.List(context.Background(), models.SchoolFilter{Search: "North", PageSize: 5, SortOrder: "desc"})
	require.NoError(t, err)
	assert.Len(t, schools, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery("FROM schools WHERE id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestSchoolRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM schools WHERE LOWER(name) = LOWER($1) LIMIT 1")).
		WithArgs("north high").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "north high", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryUpdateRenamesUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schools SET name = ?, updated_at = ? WHERE id = ?")).
		WithArgs("North Senior High", sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET school_names = array_replace(school_names, $1, $2)")).
		WithArgs("North High", "North Senior High", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	school := &models.School{ID: "s1", Name: "North Senior High"}
	require.NoError(t, repo.Update(context.Background(), school, "North High"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryUpdateWithoutRename(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schools SET name")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), &models.School{ID: "s1", Name: "North High"}, "North High"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schools WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schools WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "s1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
