package compliance

import (
	"fmt"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

// IssueKind names a data-integrity defect found in the raw tables.
type IssueKind string

const (
	IssueOrphanSchool       IssueKind = "orphan_school"
	IssueOrphanReport       IssueKind = "orphan_report"
	IssueDuplicatePair      IssueKind = "duplicate_pair"
	IssueDuplicateSchool    IssueKind = "duplicate_school"
	IssueDuplicateReport    IssueKind = "duplicate_report"
	IssueUndatedSubmission  IssueKind = "undated_submission"
	IssueDatedNotApplicable IssueKind = "dated_not_applicable"
	IssueUnknownStatus      IssueKind = "unknown_status"
)

// Issue describes one defective row. Duplicate school or report rows carry
// only the repeated id.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	SchoolID string    `json:"schoolId"`
	ReportID string    `json:"reportId"`
	Detail   string    `json:"detail"`
}

// Validate inspects the tables for integrity defects. None of them stop
// aggregation: orphans are never looked up, the first duplicate wins, undated
// submissions classify as if absent and a date on a Not Applicable row is ignored.
func Validate(tables Tables) []Issue {
	var issues []Issue
	schools := make(map[string]struct{}, len(tables.Schools))
	for _, s := range tables.Schools {
		if _, dup := schools[s.ID]; dup {
			issues = append(issues, Issue{Kind: IssueDuplicateSchool, SchoolID: s.ID, Detail: fmt.Sprintf("school id repeated by %q", s.Name)})
			continue
		}
		schools[s.ID] = struct{}{}
	}
	reports := make(map[string]struct{}, len(tables.Reports))
	for _, r := range tables.Reports {
		if _, dup := reports[r.ID]; dup {
			issues = append(issues, Issue{Kind: IssueDuplicateReport, ReportID: r.ID, Detail: fmt.Sprintf("report id repeated by %q", r.Title)})
			continue
		}
		reports[r.ID] = struct{}{}
	}

	seen := make(map[pairKey]struct{}, len(tables.Submissions))
	for _, sub := range tables.Submissions {
		add := func(kind IssueKind, detail string) {
			issues = append(issues, Issue{Kind: kind, SchoolID: sub.SchoolID, ReportID: sub.ReportID, Detail: detail})
		}
		if _, ok := schools[sub.SchoolID]; !ok {
			add(IssueOrphanSchool, fmt.Sprintf("school %q does not exist", sub.SchoolID))
		}
		if _, ok := reports[sub.ReportID]; !ok {
			add(IssueOrphanReport, fmt.Sprintf("report %q does not exist", sub.ReportID))
		}
		key := pairKey{schoolID: sub.SchoolID, reportID: sub.ReportID}
		if _, dup := seen[key]; dup {
			add(IssueDuplicatePair, "more than one submission recorded for the pair")
		}
		seen[key] = struct{}{}

		switch sub.Status {
		case models.SubmissionSubmitted:
			if sub.SubmissionDate == nil || sub.SubmissionDate.IsZero() {
				add(IssueUndatedSubmission, "submitted without a submission date")
			}
		case models.SubmissionNotApplicable:
			if sub.SubmissionDate != nil && !sub.SubmissionDate.IsZero() {
				add(IssueDatedNotApplicable, "not applicable row carries a submission date")
			}
		default:
			add(IssueUnknownStatus, fmt.Sprintf("unknown status %q", sub.Status))
		}
	}
	return issues
}
