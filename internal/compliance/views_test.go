package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

func TestCapabilitiesFor(t *testing.T) {
	admin := CapabilitiesFor(models.RoleAdmin)
	assert.True(t, admin.Automation)
	assert.True(t, admin.ManageUsers)

	moderator := CapabilitiesFor(models.RoleModerator)
	assert.True(t, moderator.Tagging)
	assert.True(t, moderator.Matrix)
	assert.False(t, moderator.Automation)
	assert.False(t, moderator.ManageUsers)

	schoolCaps := CapabilitiesFor(models.RoleSchool)
	assert.Equal(t, Capabilities{OwnSchool: true}, schoolCaps)

	assert.Equal(t, Capabilities{}, CapabilitiesFor("GUEST"))
}

func TestBuildSchoolView(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North")},
		Reports: []models.Report{
			report("r1", "Later", "2024-03-01"),
			report("r2", "Earliest", "2024-01-05"),
			report("r3", "Middle", "2024-01-20"),
		},
		Submissions: []models.Submission{
			{SchoolID: "s1", ReportID: "r3", Status: models.SubmissionSubmitted, SubmissionDate: datePtr("2024-01-22"), Remarks: "sent by courier"},
		},
	}
	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())

	view, ok := BuildSchoolView(res, "s1")
	require.True(t, ok)
	require.Len(t, view.Reports, 3)

	assert.Equal(t, "r2", view.Reports[0].ReportID)
	assert.Equal(t, StatusOverdue, view.Reports[0].Status)
	assert.Equal(t, 27, view.Reports[0].DaysPastDeadline)

	assert.Equal(t, "r3", view.Reports[1].ReportID)
	assert.Equal(t, StatusSubmittedLate, view.Reports[1].Status)
	assert.Equal(t, "sent by courier", view.Reports[1].Remarks)
	require.NotNil(t, view.Reports[1].SubmissionDate)
	assert.Equal(t, day("2024-01-22"), *view.Reports[1].SubmissionDate)

	assert.Equal(t, StatusPending, view.Reports[2].Status)

	require.Len(t, view.OverdueReports, 1)
	assert.Equal(t, "Earliest", view.OverdueReports[0].Title)
	assert.Equal(t, 2, view.Metrics.LateOrOverdueCount)

	_, ok = BuildSchoolView(res, "missing")
	assert.False(t, ok)
}

func TestReportsVisibleTo(t *testing.T) {
	reports := []models.Report{report("r1", "One", "2024-01-05"), report("r2", "Two", "2024-01-06"), report("r3", "Three", "2024-01-07")}

	admin := models.User{Role: models.RoleAdmin}
	assert.Len(t, ReportsVisibleTo(admin, reports), 3)

	moderator := models.User{Role: models.RoleModerator, AssignedReportIDs: []string{"r3", "r1", "gone"}}
	visible := ReportsVisibleTo(moderator, reports)
	require.Len(t, visible, 2)
	assert.Equal(t, "r1", visible[0].ID)
	assert.Equal(t, "r3", visible[1].ID)

	assert.Empty(t, ReportsVisibleTo(schoolUser("x@example.com", "North"), reports))
}

func TestBuildTaggingView(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North"), school("s2", "South")},
		Reports: []models.Report{report("r1", "One", "2024-01-05"), report("r2", "Two", "2024-01-06")},
		Submissions: []models.Submission{
			{SchoolID: "s2", ReportID: "r1", Status: models.SubmissionNotApplicable, Remarks: "closed for repairs"},
			submitted("s1", "r2", "2024-01-06"),
		},
	}
	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())

	view := BuildTaggingView(res, tables.Reports, "")
	require.NotNil(t, view.Selected)
	assert.Equal(t, "r1", view.Selected.ID)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, UntaggedStatus, view.Rows[0].StoredStatus)
	assert.Equal(t, StatusOverdue, view.Rows[0].Status)
	assert.Equal(t, "Not Applicable", view.Rows[1].StoredStatus)
	assert.Equal(t, "closed for repairs", view.Rows[1].Remarks)

	view = BuildTaggingView(res, tables.Reports, "r2")
	assert.Equal(t, "r2", view.Selected.ID)
	assert.Equal(t, "Submitted", view.Rows[0].StoredStatus)
	assert.Equal(t, day("2024-01-06"), *view.Rows[0].SubmissionDate)

	view = BuildTaggingView(res, tables.Reports[1:], "r1")
	assert.Equal(t, "r2", view.Selected.ID, "invisible selection falls back to the first visible report")

	view = BuildTaggingView(res, nil, "r1")
	assert.Nil(t, view.Selected)
	assert.Empty(t, view.Rows)
}
