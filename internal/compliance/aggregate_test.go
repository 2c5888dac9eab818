package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

func TestAggregateSchoolMetrics(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North High")},
		Reports: []models.Report{
			report("r1", "Enrollment", "2024-01-05"),
			report("r2", "Budget", "2024-01-06"),
			report("r3", "Inventory", "2024-01-07"),
			report("r4", "Feeding", "2024-01-08"),
		},
		Submissions: []models.Submission{
			submitted("s1", "r1", "2024-01-05"),
			submitted("s1", "r2", "2024-01-01"),
			submitted("s1", "r3", "2024-01-07"),
		},
	}

	res := Aggregate(tables, day("2024-01-10"), DefaultThresholds())

	m, ok := res.Metrics("s1")
	require.True(t, ok)
	assert.Equal(t, 4, m.ReportCount)
	assert.InDelta(t, 75, m.OnTimeRate, 0.0001)
	assert.InDelta(t, 25, m.NonComplianceRate, 0.0001)
	assert.Equal(t, 1, m.LateOrOverdueCount)
	assert.InDelta(t, 2, m.OverdueAverage, 0.0001)
	assert.Equal(t, StatusCounts{OnTime: 3, Overdue: 1}, m.Counts)
	assert.Empty(t, res.PromptSubmitters, "a 75 percent on-time rate must not qualify")
}

func TestAggregateZeroApplicableReports(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "Exempt"), school("s2", "Empty")},
		Reports: []models.Report{report("r1", "Enrollment", "2024-01-05")},
		Submissions: []models.Submission{
			notApplicable("s1", "r1"),
		},
	}
	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())

	m, _ := res.Metrics("s1")
	assert.Zero(t, m.ReportCount)
	assert.Zero(t, m.OnTimeRate)
	assert.Zero(t, m.NonComplianceRate)
	assert.Zero(t, m.OverdueAverage)

	empty := Aggregate(Tables{Schools: []models.School{school("s2", "Empty")}}, day("2024-02-01"), DefaultThresholds())
	m, _ = empty.Metrics("s2")
	assert.Zero(t, m.OnTimeRate)
	assert.Zero(t, m.NonComplianceRate)
}

func TestAggregateLateAndOverdueDays(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("late", "Late School"), school("missing", "Missing School")},
		Reports: []models.Report{report("r1", "Enrollment", "2024-01-10")},
		Submissions: []models.Submission{
			submitted("late", "r1", "2024-01-11"),
		},
	}

	res := Aggregate(tables, day("2024-01-15"), DefaultThresholds())
	assert.Equal(t, StatusSubmittedLate, res.StatusOf("late", "r1"))
	lateMetrics, _ := res.Metrics("late")
	assert.InDelta(t, 1, lateMetrics.OverdueAverage, 0.0001)

	assert.Equal(t, StatusOverdue, res.StatusOf("missing", "r1"))
	assert.Equal(t, 5, res.Cell("missing", "r1").DaysPastDeadline)

	early := Aggregate(tables, day("2024-01-09"), DefaultThresholds())
	assert.Equal(t, StatusPending, early.StatusOf("missing", "r1"))

	next := Aggregate(tables, day("2024-01-11"), DefaultThresholds())
	assert.Equal(t, StatusOverdue, next.StatusOf("missing", "r1"))
	assert.Equal(t, 1, next.Cell("missing", "r1").DaysPastDeadline)
}

func TestAggregateRatesStayInRange(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "A"), school("s2", "B"), school("s3", "C")},
		Reports: []models.Report{
			report("r1", "One", "2024-01-05"),
			report("r2", "Two", "2024-03-05"),
		},
		Submissions: []models.Submission{
			submitted("s1", "r1", "2024-01-09"),
			notApplicable("s1", "r2"),
			submitted("s2", "r1", "2024-01-01"),
			submitted("s2", "r2", "2024-01-01"),
		},
	}
	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())
	for _, m := range res.Schools {
		assert.GreaterOrEqual(t, m.OnTimeRate, 0.0)
		assert.LessOrEqual(t, m.OnTimeRate, 100.0)
		assert.GreaterOrEqual(t, m.NonComplianceRate, 0.0)
		assert.LessOrEqual(t, m.NonComplianceRate, 100.0)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	tables := Tables{
		Schools:     []models.School{school("s1", "A"), school("s2", "B")},
		Reports:     []models.Report{report("r1", "One", "2024-01-05"), report("r2", "Two", "2024-01-20")},
		Submissions: []models.Submission{submitted("s1", "r1", "2024-01-06")},
	}
	today := day("2024-01-10")

	first := Aggregate(tables, today, DefaultThresholds())
	second := Aggregate(tables, today, DefaultThresholds())
	assert.Equal(t, first, second)
}

func TestAggregateRankings(t *testing.T) {
	reports := []models.Report{
		report("r1", "One", "2024-01-05"),
		report("r2", "Two", "2024-01-06"),
		report("r3", "Three", "2024-01-07"),
		report("r4", "Four", "2024-01-08"),
		report("r5", "Five", "2024-01-09"),
	}
	var subs []models.Submission
	onTime := func(schoolID string, reportIDs ...string) {
		for _, id := range reportIDs {
			subs = append(subs, submitted(schoolID, id, "2024-01-01"))
		}
	}
	// perfect: 5/5 on time, steady: 4/5 on time, tied: 4/5 on time, lagging: 1/5 on time.
	onTime("perfect", "r1", "r2", "r3", "r4", "r5")
	onTime("steady", "r1", "r2", "r3", "r4")
	onTime("tied", "r2", "r3", "r4", "r5")
	onTime("lagging", "r1")
	subs = append(subs, submitted("lagging", "r2", "2024-01-20"))
	// small: 2/2 applicable on time, too few reports to rank.
	onTime("small", "r1", "r2")
	subs = append(subs, notApplicable("small", "r3"), notApplicable("small", "r4"), notApplicable("small", "r5"))

	tables := Tables{
		Schools: []models.School{
			school("lagging", "Lagging"),
			school("steady", "Steady"),
			school("perfect", "Perfect"),
			school("tied", "Tied"),
			school("small", "Small"),
		},
		Reports:     reports,
		Submissions: subs,
	}

	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())

	var prompt []string
	for _, m := range res.PromptSubmitters {
		prompt = append(prompt, m.SchoolID)
	}
	assert.Equal(t, []string{"perfect", "steady", "tied"}, prompt)

	var late []string
	for _, m := range res.FrequentLate {
		late = append(late, m.SchoolID)
	}
	assert.Equal(t, []string{"lagging"}, late)
	lagging, _ := res.Metrics("lagging")
	assert.Equal(t, 4, lagging.LateOrOverdueCount)

	assert.Equal(t, "lagging", res.Schools[0].SchoolID, "school metrics keep input order")
}

func TestAggregateActiveReports(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "A"), school("s2", "B")},
		Reports: []models.Report{
			report("done", "Done", "2024-01-05"),
			report("exempt", "Exempt", "2024-01-05"),
			report("open", "Open", "2024-03-01"),
			report("late", "Late", "2024-01-05"),
		},
		Submissions: []models.Submission{
			submitted("s1", "done", "2024-01-02"),
			submitted("s2", "done", "2024-01-09"),
			notApplicable("s1", "exempt"),
			notApplicable("s2", "exempt"),
			submitted("s1", "open", "2024-01-02"),
			submitted("s1", "late", "2024-01-02"),
		},
	}

	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())
	var ids []string
	for _, r := range res.ActiveReports {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"open", "late"}, ids)
}

func TestAggregateToleratesDuplicatesAndOrphans(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "A")},
		Reports: []models.Report{report("r1", "One", "2024-01-05")},
		Submissions: []models.Submission{
			submitted("s1", "r1", "2024-01-02"),
			submitted("s1", "r1", "2024-01-30"),
			submitted("ghost", "r1", "2024-01-02"),
			{SchoolID: "s1", ReportID: "missing", Status: models.SubmissionSubmitted},
		},
	}

	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())
	assert.Equal(t, StatusSubmittedOnTime, res.StatusOf("s1", "r1"))
	assert.Len(t, res.Schools, 1)

	issues := Validate(tables)
	kinds := make(map[IssueKind]int)
	for _, issue := range issues {
		kinds[issue.Kind]++
	}
	assert.Equal(t, 1, kinds[IssueDuplicatePair])
	assert.Equal(t, 1, kinds[IssueOrphanSchool])
	assert.Equal(t, 1, kinds[IssueOrphanReport])
	assert.Equal(t, 1, kinds[IssueUndatedSubmission])
}

func TestAggregateKeepsFirstRowOfRepeatedIDs(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North"), school("s2", "South"), school("s1", "North Annex")},
		Reports: []models.Report{report("r1", "One", "2024-01-05"), report("r1", "One again", "2024-03-01")},
		Submissions: []models.Submission{
			submitted("s1", "r1", "2024-01-08"),
		},
	}

	res := Aggregate(tables, day("2024-02-01"), DefaultThresholds())

	require.Len(t, res.Schools, 2)
	require.Len(t, res.Tables.Reports, 1)
	s, ok := res.School("s1")
	require.True(t, ok)
	assert.Equal(t, "North", s.Name)
	m, ok := res.Metrics("s1")
	require.True(t, ok)
	assert.Equal(t, "North", m.Name)
	assert.Equal(t, 1, m.ReportCount)
	assert.Equal(t, StatusSubmittedLate, res.StatusOf("s1", "r1"))
	assert.Equal(t, StatusOverdue, res.StatusOf("s2", "r1"))
	assert.Len(t, tables.Schools, 3)

	kinds := make(map[IssueKind][]Issue)
	for _, issue := range Validate(tables) {
		kinds[issue.Kind] = append(kinds[issue.Kind], issue)
	}
	require.Len(t, kinds[IssueDuplicateSchool], 1)
	assert.Equal(t, "s1", kinds[IssueDuplicateSchool][0].SchoolID)
	require.Len(t, kinds[IssueDuplicateReport], 1)
	assert.Equal(t, "r1", kinds[IssueDuplicateReport][0].ReportID)
}

func TestResultLookups(t *testing.T) {
	tables := Tables{
		Schools: []models.School{school("s1", "North"), school("s2", "South")},
		Reports: []models.Report{report("r1", "One", "2024-01-05"), report("r2", "Two", "2024-01-06")},
	}
	res := Aggregate(tables, day("2024-01-10"), DefaultThresholds())

	s, ok := res.SchoolByName("South")
	require.True(t, ok)
	assert.Equal(t, "s2", s.ID)
	_, ok = res.School("nope")
	assert.False(t, ok)
	assert.Len(t, res.OverdueReports("s1"), 2)
	assert.Equal(t, StatusPending, res.StatusOf("s1", "unknown"))
}
