package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

const submissionColumns = "school_id, report_id, status, submission_date, remarks, updated_by, updated_at"

// SubmissionRepository persists one row per (school, report) pair.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new repository instance.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// List returns submissions, optionally narrowed to a school or a report.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE 1=1", submissionColumns)
	var conditions []string
	var args []interface{}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.ReportID != "" {
		conditions = append(conditions, fmt.Sprintf("report_id = $%d", len(args)+1))
		args = append(args, filter.ReportID)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at ASC"

	submissions := make([]models.Submission, 0)
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// Find returns the submission for a pair.
func (r *SubmissionRepository) Find(ctx context.Context, schoolID, reportID string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE school_id = $1 AND report_id = $2", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, schoolID, reportID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Upsert records the submission for its pair, replacing any previous row.
func (r *SubmissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO submissions (school_id, report_id, status, submission_date, remarks, updated_by, updated_at)
VALUES (:school_id, :report_id, :status, :submission_date, :remarks, :updated_by, :updated_at)
ON CONFLICT (school_id, report_id) DO UPDATE SET status = EXCLUDED.status, submission_date = EXCLUDED.submission_date, remarks = EXCLUDED.remarks, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// Delete removes the pair's row, reverting it to "nothing recorded".
func (r *SubmissionRepository) Delete(ctx context.Context, schoolID, reportID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE school_id = $1 AND report_id = $2`, schoolID, reportID)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
