package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

func TestClassify(t *testing.T) {
	deadline := day("2024-01-10")

	cases := []struct {
		name  string
		state SubmissionState
		today string
		want  DisplayStatus
	}{
		{"no record before deadline", NoRecord{}, "2024-01-09", StatusPending},
		{"no record on deadline", NoRecord{}, "2024-01-10", StatusPending},
		{"no record after deadline", NoRecord{}, "2024-01-11", StatusOverdue},
		{"submitted on deadline", SubmittedOn{Date: day("2024-01-10")}, "2024-01-15", StatusSubmittedOnTime},
		{"submitted early", SubmittedOn{Date: day("2024-01-02")}, "2024-01-15", StatusSubmittedOnTime},
		{"submitted a day late", SubmittedOn{Date: day("2024-01-11")}, "2024-01-15", StatusSubmittedLate},
		{"late submission before today", SubmittedOn{Date: day("2024-01-11")}, "2024-01-01", StatusSubmittedLate},
		{"undated before deadline", SubmittedUndated{}, "2024-01-09", StatusPending},
		{"undated after deadline", SubmittedUndated{}, "2024-01-20", StatusOverdue},
		{"not applicable before deadline", NotApplicable{}, "2024-01-01", StatusNotApplicable},
		{"not applicable after deadline", NotApplicable{}, "2025-06-01", StatusNotApplicable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.state, deadline, day(tc.today)))
		})
	}
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, NoRecord{}, StateOf(nil))

	sub := submitted("s1", "r1", "2024-01-05")
	assert.Equal(t, SubmittedOn{Date: day("2024-01-05")}, StateOf(&sub))

	undated := models.Submission{Status: models.SubmissionSubmitted}
	assert.Equal(t, SubmittedUndated{}, StateOf(&undated))

	na := notApplicable("s1", "r1")
	na.SubmissionDate = datePtr("2024-01-05")
	assert.Equal(t, NotApplicable{}, StateOf(&na))
}

func TestDaysPastDeadline(t *testing.T) {
	deadline := day("2024-01-10")

	late := SubmittedOn{Date: day("2024-01-11")}
	assert.Equal(t, 1, DaysPastDeadline(late, StatusSubmittedLate, deadline, day("2024-01-15")))

	assert.Equal(t, 1, DaysPastDeadline(NoRecord{}, StatusOverdue, deadline, day("2024-01-11")))
	assert.Equal(t, 5, DaysPastDeadline(SubmittedUndated{}, StatusOverdue, deadline, day("2024-01-15")))

	assert.Zero(t, DaysPastDeadline(NoRecord{}, StatusPending, deadline, day("2024-01-09")))
	assert.Zero(t, DaysPastDeadline(SubmittedOn{Date: deadline}, StatusSubmittedOnTime, deadline, day("2024-01-15")))
	assert.Zero(t, DaysPastDeadline(NotApplicable{}, StatusNotApplicable, deadline, day("2024-02-15")))
}

func TestDisplayStatusPriority(t *testing.T) {
	for i, status := range Statuses {
		assert.Equal(t, i+1, status.Priority(), status)
	}
	assert.Equal(t, "Submitted On Time", StatusSubmittedOnTime.Label())
	assert.Equal(t, "Not Applicable", StatusNotApplicable.Label())
}
