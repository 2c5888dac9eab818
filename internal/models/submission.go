package models

import "time"

// SubmissionStatus is the status recorded by an administrator or moderator.
type SubmissionStatus string

const (
	SubmissionSubmitted     SubmissionStatus = "Submitted"
	SubmissionNotApplicable SubmissionStatus = "Not Applicable"
)

// Valid reports whether s is one of the stored statuses.
func (s SubmissionStatus) Valid() bool {
	return s == SubmissionSubmitted || s == SubmissionNotApplicable
}

// Submission records what a school did for one report. At most one row exists
// per (school, report) pair; a missing row means nothing has been recorded yet.
type Submission struct {
	SchoolID       string           `db:"school_id" json:"school_id"`
	ReportID       string           `db:"report_id" json:"report_id"`
	Status         SubmissionStatus `db:"status" json:"status"`
	SubmissionDate *Date            `db:"submission_date" json:"submission_date"`
	Remarks        string           `db:"remarks" json:"remarks"`
	UpdatedBy      *string          `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	SchoolID string
	ReportID string
}
