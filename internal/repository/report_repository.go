package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

const reportColumns = "id, title, focal_person, deadline, mode_of_submission, created_at, updated_at"

// ReportRepository handles persistence for compliance reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new repository instance.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ListAll returns every report ordered by deadline then title.
func (r *ReportRepository) ListAll(ctx context.Context) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports ORDER BY deadline ASC, title ASC, id ASC", reportColumns)
	reports := make([]models.Report, 0)
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list all reports: %w", err)
	}
	return reports, nil
}

// List returns reports matching filters with the total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	q := newListQuery("reports")
	if filter.Search != "" {
		q.where("(LOWER(title) LIKE ? OR LOWER(focal_person) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.IDs != nil {
		q.where("id = ANY(?)", pq.Array(filter.IDs))
	}
	q.sort(filter.SortBy, []string{"deadline", "title", "created_at"}, "deadline", filter.SortOrder, "ASC").
		page(filter.Page, filter.PageSize)

	reports := make([]models.Report, 0)
	if err := r.db.SelectContext(ctx, &reports, q.selectSQL(reportColumns), q.args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, q.countSQL(), q.args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}

// FindByID returns a report by id.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// Create persists a new report.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	const query = `INSERT INTO reports (id, title, focal_person, deadline, mode_of_submission, created_at, updated_at) VALUES (:id, :title, :focal_person, :deadline, :mode_of_submission, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// Update modifies a report.
func (r *ReportRepository) Update(ctx context.Context, report *models.Report) error {
	report.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reports SET title = :title, focal_person = :focal_person, deadline = :deadline, mode_of_submission = :mode_of_submission, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return nil
}

// Delete removes a report and unassigns it from moderators. Submissions are
// removed by ON DELETE CASCADE.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	const unassign = `UPDATE users SET assigned_report_ids = array_remove(assigned_report_ids, $1), updated_at = $2 WHERE $1 = ANY(assigned_report_ids)`
	if _, err := tx.ExecContext(ctx, unassign, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("unassign report: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report delete: %w", err)
	}
	return nil
}
