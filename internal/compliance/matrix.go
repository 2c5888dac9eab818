package compliance

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

// SortDirection orders matrix rows.
type SortDirection string

const (
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

// Fixed matrix sort keys. Any other key is treated as a report id.
const (
	SortKeySchoolName        = "schoolName"
	SortKeyOnTimeRate        = "onTimeRate"
	SortKeyNonComplianceRate = "nonComplianceRate"
	SortKeyOverdueAverage    = "overdueAverage"
)

// SortState is the single active sort of the matrix.
type SortState struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort orders schools alphabetically.
func DefaultSort() SortState {
	return SortState{Key: SortKeySchoolName, Direction: SortAscending}
}

func isMetricKey(key string) bool {
	return key == SortKeyOnTimeRate || key == SortKeyNonComplianceRate || key == SortKeyOverdueAverage
}

// NextSort returns the state after the user picks key. Picking the current key
// flips the direction; a new metric key starts descending, anything else ascending.
func NextSort(current SortState, key string) SortState {
	if current.Key == key {
		if current.Direction == SortAscending {
			return SortState{Key: key, Direction: SortDescending}
		}
		return SortState{Key: key, Direction: SortAscending}
	}
	if isMetricKey(key) {
		return SortState{Key: key, Direction: SortDescending}
	}
	return SortState{Key: key, Direction: SortAscending}
}

// ColumnKind distinguishes matrix columns.
type ColumnKind string

const (
	ColumnSchool ColumnKind = "school"
	ColumnMetric ColumnKind = "metric"
	ColumnReport ColumnKind = "report"
)

// MatrixColumn describes one matrix column.
type MatrixColumn struct {
	Key      string       `json:"key"`
	Title    string       `json:"title"`
	Kind     ColumnKind   `json:"kind"`
	Deadline *models.Date `json:"deadline,omitempty"`
}

// MatrixCell is a school's status for one active report.
type MatrixCell struct {
	ReportID string        `json:"reportId"`
	Status   DisplayStatus `json:"status"`
}

// MatrixRow is one school in the matrix.
type MatrixRow struct {
	SchoolID          string       `json:"schoolId"`
	Name              string       `json:"name"`
	OnTimeRate        float64      `json:"onTimeRate"`
	NonComplianceRate float64      `json:"nonComplianceRate"`
	OverdueAverage    float64      `json:"overdueAverage"`
	Cells             []MatrixCell `json:"cells"`
}

// Matrix is the school × active report compliance table.
type Matrix struct {
	Columns []MatrixColumn `json:"columns"`
	Rows    []MatrixRow    `json:"rows"`
	Sort    SortState      `json:"sort"`
}

// BuildMatrix lays out the live compliance matrix sorted by state.
func BuildMatrix(res *Result, state SortState) Matrix {
	if state.Key == "" {
		state = DefaultSort()
	}
	if state.Direction != SortDescending {
		state.Direction = SortAscending
	}

	columns := []MatrixColumn{
		{Key: SortKeySchoolName, Title: "School Name", Kind: ColumnSchool},
		{Key: SortKeyOnTimeRate, Title: "On-Time %", Kind: ColumnMetric},
		{Key: SortKeyNonComplianceRate, Title: "Non-Comp %", Kind: ColumnMetric},
		{Key: SortKeyOverdueAverage, Title: "Overdue Avg.", Kind: ColumnMetric},
	}
	for _, rep := range res.ActiveReports {
		deadline := rep.Deadline
		columns = append(columns, MatrixColumn{Key: rep.ID, Title: rep.Title, Kind: ColumnReport, Deadline: &deadline})
	}

	rows := make([]MatrixRow, 0, len(res.Schools))
	for _, m := range res.Schools {
		row := MatrixRow{
			SchoolID:          m.SchoolID,
			Name:              m.Name,
			OnTimeRate:        m.OnTimeRate,
			NonComplianceRate: m.NonComplianceRate,
			OverdueAverage:    m.OverdueAverage,
			Cells:             make([]MatrixCell, 0, len(res.ActiveReports)),
		}
		for _, rep := range res.ActiveReports {
			row.Cells = append(row.Cells, MatrixCell{ReportID: rep.ID, Status: res.StatusOf(m.SchoolID, rep.ID)})
		}
		rows = append(rows, row)
	}

	sortRows(res, rows, state)
	return Matrix{Columns: columns, Rows: rows, Sort: state}
}

func sortRows(res *Result, rows []MatrixRow, state SortState) {
	less := rowComparator(res, state.Key)
	if less != nil {
		sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	}
	if state.Direction == SortDescending {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
}

func rowComparator(res *Result, key string) func(a, b MatrixRow) bool {
	switch key {
	case SortKeySchoolName:
		col := collate.New(language.English)
		return func(a, b MatrixRow) bool { return col.CompareString(a.Name, b.Name) < 0 }
	case SortKeyOnTimeRate:
		return func(a, b MatrixRow) bool { return a.OnTimeRate < b.OnTimeRate }
	case SortKeyNonComplianceRate:
		return func(a, b MatrixRow) bool { return a.NonComplianceRate < b.NonComplianceRate }
	case SortKeyOverdueAverage:
		return func(a, b MatrixRow) bool { return a.OverdueAverage < b.OverdueAverage }
	}
	if _, ok := res.Report(key); !ok {
		return nil
	}
	return func(a, b MatrixRow) bool {
		return res.StatusOf(a.SchoolID, key).Priority() < res.StatusOf(b.SchoolID, key).Priority()
	}
}

// SortSchoolsByName orders schools alphabetically using English collation.
func SortSchoolsByName(schools []models.School) []models.School {
	out := make([]models.School, len(schools))
	copy(out, schools)
	col := collate.New(language.English)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}
