package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

// EmailKind distinguishes simulated emails.
type EmailKind string

const (
	EmailDeadlineReminder EmailKind = "DEADLINE_REMINDER"
	EmailOverdueSummary   EmailKind = "OVERDUE_SUMMARY"
)

// PreparedEmail is one email the automation would send. Nothing is delivered.
type PreparedEmail struct {
	Kind         EmailKind `json:"kind"`
	To           string    `json:"to"`
	SchoolID     string    `json:"schoolId"`
	SchoolName   string    `json:"schoolName"`
	ReportIDs    []string  `json:"reportIds"`
	ReportTitles []string  `json:"reportTitles"`
}

// Simulation is the dry run of both automation rules on one day.
type Simulation struct {
	Date   models.Date     `json:"date"`
	Emails []PreparedEmail `json:"emails"`
	Log    []string        `json:"log"`
}

// SchoolRecipients returns the school users registered for the named school, in user order.
func SchoolRecipients(users []models.User, schoolName string) []models.User {
	out := make([]models.User, 0)
	for _, u := range users {
		if u.BelongsToSchool(schoolName) {
			out = append(out, u)
		}
	}
	return out
}

// SimulateEmails runs the deadline-reminder rule (reports due tomorrow, for
// schools without a Submitted or Not Applicable record) and, on Mondays only,
// the overdue-summary rule. It returns the emails that would be prepared along
// with a human readable log.
func SimulateEmails(res *Result, users []models.User) Simulation {
	today := res.Today
	tomorrow := today.AddDays(1)
	sim := Simulation{Date: today, Emails: make([]PreparedEmail, 0)}
	idx := NewIndex(res.Tables.Submissions)

	sim.Log = append(sim.Log, fmt.Sprintf("--- Checking for Deadline Reminders (Due: %s) ---", tomorrow))
	for _, report := range res.Tables.Reports {
		if !report.Deadline.Equal(tomorrow) {
			continue
		}
		for _, school := range res.Tables.Schools {
			if sub := idx.Lookup(school.ID, report.ID); sub != nil && sub.Status.Valid() {
				continue
			}
			recipients := SchoolRecipients(users, school.Name)
			if len(recipients) == 0 {
				sim.Log = append(sim.Log, fmt.Sprintf("[SKIPPED] %s has a pending report (\"%s\") but no registered users to notify.", school.Name, report.Title))
				continue
			}
			for _, u := range recipients {
				sim.Emails = append(sim.Emails, PreparedEmail{
					Kind:         EmailDeadlineReminder,
					To:           u.Email,
					SchoolID:     school.ID,
					SchoolName:   school.Name,
					ReportIDs:    []string{report.ID},
					ReportTitles: []string{report.Title},
				})
				sim.Log = append(sim.Log, fmt.Sprintf("[REMINDER] Email prepared for %s (%s) for report: \"%s\".", u.Email, school.Name, report.Title))
			}
		}
	}
	if len(sim.Log) == 1 {
		sim.Log = append(sim.Log, "No pending reports are due tomorrow. No deadline reminders will be sent.")
	}

	sim.Log = append(sim.Log, "", fmt.Sprintf("--- Checking for Overdue Report Summaries (Today is %s) ---", today.Weekday()))
	if today.Weekday() == time.Monday {
		summaries := 0
		for _, school := range res.Tables.Schools {
			overdue := res.OverdueReports(school.ID)
			if len(overdue) == 0 {
				continue
			}
			recipients := SchoolRecipients(users, school.Name)
			if len(recipients) == 0 {
				sim.Log = append(sim.Log, fmt.Sprintf("[SKIPPED] %s has %d overdue report(s) but no registered users to notify.", school.Name, len(overdue)))
				continue
			}
			summaries++
			ids, titles := reportIDsAndTitles(overdue)
			for _, u := range recipients {
				sim.Emails = append(sim.Emails, PreparedEmail{
					Kind:         EmailOverdueSummary,
					To:           u.Email,
					SchoolID:     school.ID,
					SchoolName:   school.Name,
					ReportIDs:    ids,
					ReportTitles: titles,
				})
				sim.Log = append(sim.Log, fmt.Sprintf("[OVERDUE SUMMARY] Email prepared for %s (%s) with %d overdue report(s): %s.", u.Email, school.Name, len(overdue), quoteTitles(titles)))
			}
		}
		if summaries == 0 {
			sim.Log = append(sim.Log, "No schools have overdue reports. No summary emails will be sent.")
		}
	} else {
		sim.Log = append(sim.Log, "Today is not Monday. No overdue summary emails will be sent.")
	}

	if len(sim.Emails) == 0 {
		sim.Log = append(sim.Log, "", "SIMULATION COMPLETE: No emails need to be dispatched at this time.")
	}
	return sim
}

func reportIDsAndTitles(reports []models.Report) (ids, titles []string) {
	ids = make([]string, 0, len(reports))
	titles = make([]string, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.ID)
		titles = append(titles, r.Title)
	}
	return ids, titles
}

func quoteTitles(titles []string) string {
	quoted := make([]string, len(titles))
	for i, t := range titles {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, ", ")
}

// NoticeBatch groups one school's overdue reports for a manual notice.
type NoticeBatch struct {
	SchoolID     string   `json:"schoolId"`
	SchoolName   string   `json:"schoolName"`
	ReportIDs    []string `json:"reportIds"`
	ReportTitles []string `json:"reportTitles"`
	Recipients   []string `json:"recipients"`
}

// NoticePlan is the manual "send overdue notices now" action before confirmation.
type NoticePlan struct {
	Batches        []NoticeBatch `json:"batches"`
	SkippedSchools []string      `json:"skippedSchools"`
	TotalReports   int           `json:"totalReports"`
}

const noticePreviewLimit = 5

// PlanOverdueNotices batches every school that has overdue reports, ignoring
// the Monday schedule. Schools without registered users are skipped.
func PlanOverdueNotices(res *Result, users []models.User) NoticePlan {
	plan := NoticePlan{Batches: make([]NoticeBatch, 0), SkippedSchools: make([]string, 0)}
	for _, school := range res.Tables.Schools {
		overdue := res.OverdueReports(school.ID)
		if len(overdue) == 0 {
			continue
		}
		recipients := SchoolRecipients(users, school.Name)
		if len(recipients) == 0 {
			plan.SkippedSchools = append(plan.SkippedSchools, school.Name)
			continue
		}
		ids, titles := reportIDsAndTitles(overdue)
		batch := NoticeBatch{
			SchoolID:     school.ID,
			SchoolName:   school.Name,
			ReportIDs:    ids,
			ReportTitles: titles,
			Recipients:   make([]string, 0, len(recipients)),
		}
		for _, u := range recipients {
			batch.Recipients = append(batch.Recipients, u.Email)
		}
		plan.TotalReports += len(ids)
		plan.Batches = append(plan.Batches, batch)
	}
	return plan
}

// Empty reports whether there is nothing to dispatch.
func (p NoticePlan) Empty() bool {
	return len(p.Batches) == 0
}

// EmptyMessage explains why nothing will be sent.
func (p NoticePlan) EmptyMessage() string {
	if len(p.SkippedSchools) > 0 {
		return fmt.Sprintf("No notices sent. %d school(s) with overdue reports were skipped because they have no registered users.", len(p.SkippedSchools))
	}
	return "No schools have overdue reports. No notices sent."
}

// ConfirmationMessage is the prompt shown before dispatching the plan.
func (p NoticePlan) ConfirmationMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "This will trigger an email to %d school(s) about %d total overdue report(s). Do you want to proceed?\n\nPreview:", len(p.Batches), p.TotalReports)
	for i, batch := range p.Batches {
		if i == noticePreviewLimit {
			break
		}
		fmt.Fprintf(&b, "\n- %s (%d report(s))", batch.SchoolName, len(batch.ReportIDs))
	}
	if len(p.Batches) > noticePreviewLimit {
		fmt.Fprintf(&b, "\n...and %d more school(s).", len(p.Batches)-noticePreviewLimit)
	}
	if len(p.SkippedSchools) > 0 {
		fmt.Fprintf(&b, "\n\nNote: %d school(s) were also skipped because they have no registered users.", len(p.SkippedSchools))
	}
	return b.String()
}
