package compliance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

func TestSimulateEmailsReminders(t *testing.T) {
	// 2024-01-09 is a Tuesday.
	tables := Tables{
		Schools: []models.School{school("s1", "North"), school("s2", "South"), school("s3", "East")},
		Reports: []models.Report{
			report("r1", "Enrollment", "2024-01-10"),
			report("r2", "Budget", "2024-01-20"),
		},
		Submissions: []models.Submission{
			submitted("s3", "r1", "2024-01-08"),
		},
	}
	users := []models.User{
		schoolUser("head@north.test", "North"),
		schoolUser("clerk@north.test", "North", "East"),
		{Email: "admin@division.test", Role: models.RoleAdmin, SchoolNames: []string{"South"}},
	}
	res := Aggregate(tables, day("2024-01-09"), DefaultThresholds())

	sim := SimulateEmails(res, users)

	require.Len(t, sim.Emails, 2)
	for _, email := range sim.Emails {
		assert.Equal(t, EmailDeadlineReminder, email.Kind)
		assert.Equal(t, "s1", email.SchoolID)
	}
	assert.Equal(t, []string{
		"--- Checking for Deadline Reminders (Due: 2024-01-10) ---",
		`[REMINDER] Email prepared for head@north.test (North) for report: "Enrollment".`,
		`[REMINDER] Email prepared for clerk@north.test (North) for report: "Enrollment".`,
		`[SKIPPED] South has a pending report ("Enrollment") but no registered users to notify.`,
		"",
		"--- Checking for Overdue Report Summaries (Today is Tuesday) ---",
		"Today is not Monday. No overdue summary emails will be sent.",
	}, sim.Log)
}

func TestSimulateEmailsMondaySummaries(t *testing.T) {
	// 2024-01-15 is a Monday.
	tables := Tables{
		Schools: []models.School{school("s1", "North"), school("s2", "South"), school("s3", "West")},
		Reports: []models.Report{
			report("r1", "Enrollment", "2024-01-05"),
			report("r2", "Budget", "2024-01-10"),
		},
		Submissions: []models.Submission{
			submitted("s3", "r1", "2024-01-01"),
			notApplicable("s3", "r2"),
			submitted("s2", "r2", "2024-01-10"),
		},
	}
	users := []models.User{schoolUser("head@north.test", "North")}
	res := Aggregate(tables, day("2024-01-15"), DefaultThresholds())

	sim := SimulateEmails(res, users)

	require.Len(t, sim.Emails, 1)
	assert.Equal(t, EmailOverdueSummary, sim.Emails[0].Kind)
	assert.Equal(t, []string{"Enrollment", "Budget"}, sim.Emails[0].ReportTitles)
	assert.Equal(t, []string{
		"--- Checking for Deadline Reminders (Due: 2024-01-16) ---",
		"No pending reports are due tomorrow. No deadline reminders will be sent.",
		"",
		"--- Checking for Overdue Report Summaries (Today is Monday) ---",
		`[OVERDUE SUMMARY] Email prepared for head@north.test (North) with 2 overdue report(s): "Enrollment", "Budget".`,
		"[SKIPPED] South has 1 overdue report(s) but no registered users to notify.",
	}, sim.Log)
}

func TestSimulateEmailsNothingToSend(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North")},
		Reports: []models.Report{report("r1", "Enrollment", "2024-01-05")},
		Submissions: []models.Submission{
			submitted("s1", "r1", "2024-01-05"),
		},
	}
	res := Aggregate(tables, day("2024-01-15"), DefaultThresholds())

	sim := SimulateEmails(res, nil)
	assert.Empty(t, sim.Emails)
	assert.Equal(t, []string{
		"--- Checking for Deadline Reminders (Due: 2024-01-16) ---",
		"No pending reports are due tomorrow. No deadline reminders will be sent.",
		"",
		"--- Checking for Overdue Report Summaries (Today is Monday) ---",
		"No schools have overdue reports. No summary emails will be sent.",
		"",
		"SIMULATION COMPLETE: No emails need to be dispatched at this time.",
	}, sim.Log)
}

func TestSimulateEmailsUndatedSubmissionSuppressesReminder(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North")},
		Reports: []models.Report{report("r1", "Enrollment", "2024-01-10")},
		Submissions: []models.Submission{
			{SchoolID: "s1", ReportID: "r1", Status: models.SubmissionSubmitted},
		},
	}
	res := Aggregate(tables, day("2024-01-09"), DefaultThresholds())

	sim := SimulateEmails(res, []models.User{schoolUser("head@north.test", "North")})
	assert.Empty(t, sim.Emails)
}

func TestPlanOverdueNotices(t *testing.T) {
	var schools []models.School
	var users []models.User
	for i := 1; i <= 7; i++ {
		name := fmt.Sprintf("School %d", i)
		schools = append(schools, school(fmt.Sprintf("s%d", i), name))
		users = append(users, schoolUser(fmt.Sprintf("user%d@test", i), name))
	}
	schools = append(schools, school("s8", "Orphan School"), school("s9", "Compliant School"))
	users = append(users, schoolUser("compliant@test", "Compliant School"))

	tables := Tables{
		Schools: schools,
		Reports: []models.Report{report("r1", "Enrollment", "2024-01-05"), report("r2", "Budget", "2024-01-06")},
		Submissions: []models.Submission{
			submitted("s1", "r2", "2024-01-06"),
			submitted("s9", "r1", "2024-01-01"),
			notApplicable("s9", "r2"),
		},
	}
	// 2024-01-17 is a Wednesday; manual notices ignore the Monday schedule.
	res := Aggregate(tables, day("2024-01-17"), DefaultThresholds())

	plan := PlanOverdueNotices(res, users)
	require.Len(t, plan.Batches, 7)
	assert.False(t, plan.Empty())
	assert.Equal(t, []string{"Orphan School"}, plan.SkippedSchools)
	assert.Equal(t, 13, plan.TotalReports)
	assert.Equal(t, []string{"r1"}, plan.Batches[0].ReportIDs)
	assert.Equal(t, []string{"user1@test"}, plan.Batches[0].Recipients)

	want := "This will trigger an email to 7 school(s) about 13 total overdue report(s). Do you want to proceed?\n\nPreview:" +
		"\n- School 1 (1 report(s))" +
		"\n- School 2 (2 report(s))" +
		"\n- School 3 (2 report(s))" +
		"\n- School 4 (2 report(s))" +
		"\n- School 5 (2 report(s))" +
		"\n...and 2 more school(s)." +
		"\n\nNote: 1 school(s) were also skipped because they have no registered users."
	assert.Equal(t, want, plan.ConfirmationMessage())
}

func TestPlanOverdueNoticesEmpty(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North")},
		Reports: []models.Report{report("r1", "Enrollment", "2024-01-05")},
	}

	res := Aggregate(tables, day("2024-01-01"), DefaultThresholds())
	plan := PlanOverdueNotices(res, nil)
	assert.True(t, plan.Empty())
	assert.Equal(t, "No schools have overdue reports. No notices sent.", plan.EmptyMessage())

	res = Aggregate(tables, day("2024-01-10"), DefaultThresholds())
	plan = PlanOverdueNotices(res, nil)
	assert.True(t, plan.Empty())
	assert.Equal(t, "No notices sent. 1 school(s) with overdue reports were skipped because they have no registered users.", plan.EmptyMessage())
}
