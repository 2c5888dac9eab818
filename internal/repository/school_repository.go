package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

const schoolColumns = "id, name, created_at, updated_at"

// SchoolRepository handles persistence for schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository creates a new repository instance.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// ListAll returns every school ordered by name.
func (r *SchoolRepository) ListAll(ctx context.Context) ([]models.School, error) {
	query := fmt.Sprintf("SELECT %s FROM schools ORDER BY name ASC, id ASC", schoolColumns)
	schools := make([]models.School, 0)
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list all schools: %w", err)
	}
	return schools, nil
}

// List returns schools matching filters with the total count.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	q := newListQuery("schools")
	if filter.Search != "" {
		q.where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	q.sort("name", []string{"name"}, "name", filter.SortOrder, "ASC").page(filter.Page, filter.PageSize)

	schools := make([]models.School, 0)
	if err := r.db.SelectContext(ctx, &schools, q.selectSQL(schoolColumns), q.args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, q.countSQL(), q.args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}
	return schools, total, nil
}

// FindByID returns a school by id.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf("SELECT %s FROM schools WHERE id = $1", schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// ExistsByName checks case-insensitive uniqueness of a school name.
func (r *SchoolRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM schools WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school name: %w", err)
	}
	return true, nil
}

// Create persists a new school.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now

	const query = `INSERT INTO schools (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Update renames a school. School users are linked by name, so their
// school_names arrays are rewritten in the same transaction.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School, previousName string) error {
	school.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin school update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE schools SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	if previousName != "" && previousName != school.Name {
		const rename = `UPDATE users SET school_names = array_replace(school_names, $1, $2), updated_at = $3 WHERE $1 = ANY(school_names)`
		if _, err := tx.ExecContext(ctx, rename, previousName, school.Name, school.UpdatedAt); err != nil {
			return fmt.Errorf("rename school on users: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit school update: %w", err)
	}
	return nil
}

// Delete removes a school. Its submissions go with it via ON DELETE CASCADE.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
