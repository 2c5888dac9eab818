// Package compliance derives report compliance for every (school, report) pair
// and builds the aggregate views dashboards, exports and notices read from.
//
// Everything here is a pure projection of the raw tables at a given calendar
// date: no I/O, no shared state, no errors.
package compliance

import "github.com/noah-isme/report-compliance-api/internal/models"

// DisplayStatus is the derived, never persisted, status of a (school, report) pair.
type DisplayStatus string

const (
	StatusSubmittedOnTime DisplayStatus = "SUBMITTED_ON_TIME"
	StatusSubmittedLate   DisplayStatus = "SUBMITTED_LATE"
	StatusOverdue         DisplayStatus = "OVERDUE"
	StatusPending         DisplayStatus = "PENDING"
	StatusNotApplicable   DisplayStatus = "NOT_APPLICABLE"
)

// Statuses lists every DisplayStatus in priority order.
var Statuses = []DisplayStatus{
	StatusOverdue,
	StatusPending,
	StatusSubmittedLate,
	StatusSubmittedOnTime,
	StatusNotApplicable,
}

// Priority is the matrix sort rank: Overdue first, Not Applicable last.
func (s DisplayStatus) Priority() int {
	switch s {
	case StatusOverdue:
		return 1
	case StatusPending:
		return 2
	case StatusSubmittedLate:
		return 3
	case StatusSubmittedOnTime:
		return 4
	case StatusNotApplicable:
		return 5
	default:
		return 6
	}
}

// Label is the human readable form used in exports and notices.
func (s DisplayStatus) Label() string {
	switch s {
	case StatusSubmittedOnTime:
		return "Submitted On Time"
	case StatusSubmittedLate:
		return "Submitted Late"
	case StatusOverdue:
		return "Overdue"
	case StatusPending:
		return "Pending"
	case StatusNotApplicable:
		return "Not Applicable"
	default:
		return string(s)
	}
}

// Outstanding reports whether the pair still awaits a submission.
func (s DisplayStatus) Outstanding() bool {
	return s == StatusPending || s == StatusOverdue
}

// NonCompliant reports whether the pair counts against a school.
func (s DisplayStatus) NonCompliant() bool {
	return s == StatusSubmittedLate || s == StatusOverdue
}

// SubmissionState is the recorded state of a (school, report) pair.
// It is one of NoRecord, SubmittedOn, SubmittedUndated or NotApplicable.
type SubmissionState interface {
	submissionState()
}

// NoRecord means nothing has been recorded for the pair.
type NoRecord struct{}

// SubmittedOn is a submission received on Date.
type SubmittedOn struct {
	Date models.Date
}

// SubmittedUndated is a Submitted row missing its date. It is tolerated and
// classified exactly like NoRecord.
type SubmittedUndated struct{}

// NotApplicable exempts the school from the report.
type NotApplicable struct{}

func (NoRecord) submissionState()         {}
func (SubmittedOn) submissionState()      {}
func (SubmittedUndated) submissionState() {}
func (NotApplicable) submissionState()    {}

// StateOf maps a stored submission row (nil when absent) onto its state.
func StateOf(sub *models.Submission) SubmissionState {
	if sub == nil {
		return NoRecord{}
	}
	switch sub.Status {
	case models.SubmissionNotApplicable:
		return NotApplicable{}
	case models.SubmissionSubmitted:
		if sub.SubmissionDate != nil && !sub.SubmissionDate.IsZero() {
			return SubmittedOn{Date: *sub.SubmissionDate}
		}
		return SubmittedUndated{}
	default:
		return NoRecord{}
	}
}

// Classify derives the display status of a pair on the given day.
// A submission on the deadline is on time; a missing one becomes overdue only
// once today is strictly after the deadline.
func Classify(state SubmissionState, deadline, today models.Date) DisplayStatus {
	switch s := state.(type) {
	case NotApplicable:
		return StatusNotApplicable
	case SubmittedOn:
		if s.Date.After(deadline) {
			return StatusSubmittedLate
		}
		return StatusSubmittedOnTime
	default:
		// NoRecord, SubmittedUndated
		if today.After(deadline) {
			return StatusOverdue
		}
		return StatusPending
	}
}

// DaysPastDeadline is the whole number of days a late or overdue pair sits past
// its deadline: submission date for late ones, today for overdue ones. It is
// zero for every other status and never negative.
func DaysPastDeadline(state SubmissionState, status DisplayStatus, deadline, today models.Date) int {
	var days int
	switch status {
	case StatusSubmittedLate:
		s, ok := state.(SubmittedOn)
		if !ok {
			return 0
		}
		days = deadline.DaysUntil(s.Date)
	case StatusOverdue:
		days = deadline.DaysUntil(today)
	default:
		return 0
	}
	if days < 0 {
		return 0
	}
	return days
}
