package compliance

import (
	"math"
	"strconv"
)

// ExportHeaders are the fixed leading columns of the compliance export.
var ExportHeaders = []string{"School Name", "On-Time %", "Non-Comp %", "Overdue Avg."}

// ExportTable flattens the result into export rows: schools alphabetically,
// one status column for every report (active or not), independent of any
// on-screen sort.
func ExportTable(res *Result) (headers []string, rows [][]string) {
	headers = make([]string, 0, len(ExportHeaders)+len(res.Tables.Reports))
	headers = append(headers, ExportHeaders...)
	for _, rep := range res.Tables.Reports {
		headers = append(headers, rep.Title)
	}

	for _, school := range SortSchoolsByName(res.Tables.Schools) {
		row := make([]string, 0, len(headers))
		if m, ok := res.Metrics(school.ID); ok {
			row = append(row, school.Name, FormatRate(m.OnTimeRate), FormatRate(m.NonComplianceRate), FormatAverage(m.OverdueAverage))
		} else {
			row = append(row, school.Name, "N/A", "N/A", "N/A")
		}
		for _, rep := range res.Tables.Reports {
			row = append(row, res.StatusOf(school.ID, rep.ID).Label())
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// FormatRate renders a percentage with no decimals, rounding halves up.
func FormatRate(v float64) string {
	return strconv.FormatFloat(math.Floor(v+0.5), 'f', 0, 64)
}

// FormatAverage renders a day average with one decimal, rounding halves up.
func FormatAverage(v float64) string {
	return strconv.FormatFloat(math.Floor(v*10+0.5)/10, 'f', 1, 64)
}
