package models

import "time"

// Report is a periodic compliance report every school owes by its deadline.
type Report struct {
	ID               string    `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	FocalPerson      string    `db:"focal_person" json:"focal_person"`
	Deadline         Date      `db:"deadline" json:"deadline"`
	ModeOfSubmission string    `db:"mode_of_submission" json:"mode_of_submission"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ReportFilter captures filtering criteria for listing reports.
type ReportFilter struct {
	Search    string
	IDs       []string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
