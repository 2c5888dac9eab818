package compliance

import (
	"sort"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

// Tables is the raw input every view is projected from, in display order.
type Tables struct {
	Schools     []models.School
	Reports     []models.Report
	Submissions []models.Submission
}

// Thresholds tunes ranking membership.
type Thresholds struct {
	PromptMinRate    float64
	PromptMinReports int
	FrequentLateMin  int
}

// DefaultThresholds returns the division's standing ranking rules.
func DefaultThresholds() Thresholds {
	return Thresholds{PromptMinRate: 80, PromptMinReports: 3, FrequentLateMin: 2}
}

type pairKey struct {
	schoolID string
	reportID string
}

// Index resolves the submission recorded for a pair. When the input violates
// pair uniqueness the first row wins.
type Index struct {
	byPair map[pairKey]*models.Submission
}

// NewIndex indexes submissions by (school, report).
func NewIndex(submissions []models.Submission) Index {
	idx := Index{byPair: make(map[pairKey]*models.Submission, len(submissions))}
	for i := range submissions {
		key := pairKey{schoolID: submissions[i].SchoolID, reportID: submissions[i].ReportID}
		if _, exists := idx.byPair[key]; exists {
			continue
		}
		idx.byPair[key] = &submissions[i]
	}
	return idx
}

// Lookup returns the submission for the pair or nil.
func (i Index) Lookup(schoolID, reportID string) *models.Submission {
	return i.byPair[pairKey{schoolID: schoolID, reportID: reportID}]
}

// Cell is the classified state of one (school, report) pair.
type Cell struct {
	SchoolID         string
	ReportID         string
	State            SubmissionState
	Status           DisplayStatus
	DaysPastDeadline int
	Submission       *models.Submission
}

// StatusCounts tallies a school's pairs by status.
type StatusCounts struct {
	OnTime        int `json:"onTime"`
	Late          int `json:"late"`
	Overdue       int `json:"overdue"`
	Pending       int `json:"pending"`
	NotApplicable int `json:"notApplicable"`
}

func (c *StatusCounts) add(status DisplayStatus) {
	switch status {
	case StatusSubmittedOnTime:
		c.OnTime++
	case StatusSubmittedLate:
		c.Late++
	case StatusOverdue:
		c.Overdue++
	case StatusPending:
		c.Pending++
	case StatusNotApplicable:
		c.NotApplicable++
	}
}

// SchoolMetrics are a school's performance figures over its applicable reports.
type SchoolMetrics struct {
	SchoolID           string       `json:"schoolId"`
	Name               string       `json:"name"`
	OnTimeRate         float64      `json:"onTimeRate"`
	NonComplianceRate  float64      `json:"nonComplianceRate"`
	LateOrOverdueCount int          `json:"lateOrOverdueCount"`
	ReportCount        int          `json:"reportCount"`
	OverdueAverage     float64      `json:"overdueAverage"`
	Counts             StatusCounts `json:"counts"`
}

// Result is the full aggregation of the tables on one calendar date.
type Result struct {
	Today            models.Date
	Tables           Tables
	Schools          []SchoolMetrics
	PromptSubmitters []SchoolMetrics
	FrequentLate     []SchoolMetrics
	ActiveReports    []models.Report

	cells    map[pairKey]Cell
	bySchool map[string]int
}

// Aggregate classifies every (school, report) pair on today and derives
// per-school metrics, rankings and the set of active reports. A school or
// report id repeated in the tables keeps its first row only, as does a
// repeated submission pair.
func Aggregate(tables Tables, today models.Date, thresholds Thresholds) *Result {
	tables.Schools = firstByID(tables.Schools, func(s models.School) string { return s.ID })
	tables.Reports = firstByID(tables.Reports, func(r models.Report) string { return r.ID })
	idx := NewIndex(tables.Submissions)
	res := &Result{
		Today:    today,
		Tables:   tables,
		Schools:  make([]SchoolMetrics, 0, len(tables.Schools)),
		cells:    make(map[pairKey]Cell, len(tables.Schools)*len(tables.Reports)),
		bySchool: make(map[string]int, len(tables.Schools)),
	}
	active := make(map[string]bool, len(tables.Reports))

	for _, school := range tables.Schools {
		metrics := SchoolMetrics{SchoolID: school.ID, Name: school.Name}
		var onTime, pastDeadline, totalDays int

		for _, report := range tables.Reports {
			sub := idx.Lookup(school.ID, report.ID)
			state := StateOf(sub)
			status := Classify(state, report.Deadline, today)
			days := DaysPastDeadline(state, status, report.Deadline, today)
			res.cells[pairKey{schoolID: school.ID, reportID: report.ID}] = Cell{
				SchoolID:         school.ID,
				ReportID:         report.ID,
				State:            state,
				Status:           status,
				DaysPastDeadline: days,
				Submission:       sub,
			}
			metrics.Counts.add(status)
			if status.Outstanding() {
				active[report.ID] = true
			}
			if status == StatusNotApplicable {
				continue
			}

			metrics.ReportCount++
			if status == StatusSubmittedOnTime {
				onTime++
			}
			if status.NonCompliant() {
				metrics.LateOrOverdueCount++
				pastDeadline++
				totalDays += days
			}
		}

		if metrics.ReportCount > 0 {
			metrics.OnTimeRate = float64(onTime) / float64(metrics.ReportCount) * 100
			metrics.NonComplianceRate = float64(metrics.LateOrOverdueCount) / float64(metrics.ReportCount) * 100
		}
		if pastDeadline > 0 {
			metrics.OverdueAverage = float64(totalDays) / float64(pastDeadline)
		}
		res.bySchool[school.ID] = len(res.Schools)
		res.Schools = append(res.Schools, metrics)
	}

	for _, report := range tables.Reports {
		if active[report.ID] {
			res.ActiveReports = append(res.ActiveReports, report)
		}
	}
	res.PromptSubmitters = promptSubmitters(res.Schools, thresholds)
	res.FrequentLate = frequentLate(res.Schools, thresholds)
	return res
}

// firstByID drops rows whose id already appeared. The input slice is returned
// untouched when every id is distinct.
func firstByID[T any](rows []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if _, dup := seen[id(row)]; !dup {
			seen[id(row)] = struct{}{}
			continue
		}
		out := append(make([]T, 0, len(rows)-1), rows[:i]...)
		for _, rest := range rows[i+1:] {
			if _, dup := seen[id(rest)]; dup {
				continue
			}
			seen[id(rest)] = struct{}{}
			out = append(out, rest)
		}
		return out
	}
	return rows
}

func promptSubmitters(schools []SchoolMetrics, t Thresholds) []SchoolMetrics {
	out := make([]SchoolMetrics, 0)
	for _, m := range schools {
		if m.OnTimeRate >= t.PromptMinRate && m.ReportCount >= t.PromptMinReports {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OnTimeRate > out[j].OnTimeRate
	})
	return out
}

func frequentLate(schools []SchoolMetrics, t Thresholds) []SchoolMetrics {
	out := make([]SchoolMetrics, 0)
	for _, m := range schools {
		if m.LateOrOverdueCount >= t.FrequentLateMin {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LateOrOverdueCount > out[j].LateOrOverdueCount
	})
	return out
}

// Cell returns the classified pair. Pairs outside the tables read as a
// pending NoRecord cell.
func (r *Result) Cell(schoolID, reportID string) Cell {
	if cell, ok := r.cells[pairKey{schoolID: schoolID, reportID: reportID}]; ok {
		return cell
	}
	return Cell{SchoolID: schoolID, ReportID: reportID, State: NoRecord{}, Status: StatusPending}
}

// StatusOf returns the display status of the pair.
func (r *Result) StatusOf(schoolID, reportID string) DisplayStatus {
	return r.Cell(schoolID, reportID).Status
}

// Metrics returns the metrics computed for a school.
func (r *Result) Metrics(schoolID string) (SchoolMetrics, bool) {
	i, ok := r.bySchool[schoolID]
	if !ok {
		return SchoolMetrics{}, false
	}
	return r.Schools[i], true
}

// School returns the school with the given id.
func (r *Result) School(schoolID string) (models.School, bool) {
	i, ok := r.bySchool[schoolID]
	if !ok {
		return models.School{}, false
	}
	return r.Tables.Schools[i], true
}

// SchoolByName returns the first school with the given name.
func (r *Result) SchoolByName(name string) (models.School, bool) {
	for _, s := range r.Tables.Schools {
		if s.Name == name {
			return s, true
		}
	}
	return models.School{}, false
}

// Report returns the report with the given id.
func (r *Result) Report(reportID string) (models.Report, bool) {
	for _, rep := range r.Tables.Reports {
		if rep.ID == reportID {
			return rep, true
		}
	}
	return models.Report{}, false
}

// OverdueReports lists the school's reports currently classified Overdue, in report order.
func (r *Result) OverdueReports(schoolID string) []models.Report {
	var out []models.Report
	for _, rep := range r.Tables.Reports {
		if r.StatusOf(schoolID, rep.ID) == StatusOverdue {
			out = append(out, rep)
		}
	}
	return out
}
