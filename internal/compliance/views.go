package compliance

import (
	"sort"

	"github.com/noah-isme/report-compliance-api/internal/models"
)

// Capabilities lists the read-only projections a role may open. Every view is
// computed from the same aggregation; the role only selects among them.
type Capabilities struct {
	Overview    bool `json:"overview"`
	Matrix      bool `json:"matrix"`
	Export      bool `json:"export"`
	Tagging     bool `json:"tagging"`
	OwnSchool   bool `json:"ownSchool"`
	AnySchool   bool `json:"anySchool"`
	Automation  bool `json:"automation"`
	ManageUsers bool `json:"manageUsers"`
	ManageData  bool `json:"manageData"`
}

// CapabilitiesFor returns the views available to role.
func CapabilitiesFor(role models.UserRole) Capabilities {
	switch role {
	case models.RoleAdmin:
		return Capabilities{
			Overview:    true,
			Matrix:      true,
			Export:      true,
			Tagging:     true,
			AnySchool:   true,
			Automation:  true,
			ManageUsers: true,
			ManageData:  true,
		}
	case models.RoleModerator:
		return Capabilities{
			Overview:   true,
			Matrix:     true,
			Export:     true,
			Tagging:    true,
			AnySchool:  true,
			ManageData: true,
		}
	case models.RoleSchool:
		return Capabilities{OwnSchool: true}
	default:
		return Capabilities{}
	}
}

// SchoolReportLine is one report as seen from a school's dashboard.
type SchoolReportLine struct {
	ReportID         string        `json:"reportId"`
	Title            string        `json:"title"`
	FocalPerson      string        `json:"focalPerson"`
	ModeOfSubmission string        `json:"modeOfSubmission"`
	Deadline         models.Date   `json:"deadline"`
	Status           DisplayStatus `json:"status"`
	SubmissionDate   *models.Date  `json:"submissionDate"`
	Remarks          string        `json:"remarks"`
	DaysPastDeadline int           `json:"daysPastDeadline"`
}

// SchoolView is the dashboard of a single school.
type SchoolView struct {
	School         models.School      `json:"school"`
	Metrics        SchoolMetrics      `json:"metrics"`
	Reports        []SchoolReportLine `json:"reports"`
	OverdueReports []SchoolReportLine `json:"overdueReports"`
}

// BuildSchoolView projects the result onto one school. Reports are ordered by
// deadline, earliest first. ok is false when the school is unknown.
func BuildSchoolView(res *Result, schoolID string) (view SchoolView, ok bool) {
	school, ok := res.School(schoolID)
	if !ok {
		return SchoolView{}, false
	}
	metrics, _ := res.Metrics(schoolID)
	view = SchoolView{
		School:         school,
		Metrics:        metrics,
		Reports:        make([]SchoolReportLine, 0, len(res.Tables.Reports)),
		OverdueReports: make([]SchoolReportLine, 0),
	}

	for _, rep := range res.Tables.Reports {
		cell := res.Cell(schoolID, rep.ID)
		line := SchoolReportLine{
			ReportID:         rep.ID,
			Title:            rep.Title,
			FocalPerson:      rep.FocalPerson,
			ModeOfSubmission: rep.ModeOfSubmission,
			Deadline:         rep.Deadline,
			Status:           cell.Status,
			DaysPastDeadline: cell.DaysPastDeadline,
		}
		if cell.Submission != nil {
			line.Remarks = cell.Submission.Remarks
			if s, dated := cell.State.(SubmittedOn); dated {
				d := s.Date
				line.SubmissionDate = &d
			}
		}
		view.Reports = append(view.Reports, line)
	}
	sort.SliceStable(view.Reports, func(i, j int) bool {
		return view.Reports[i].Deadline.Before(view.Reports[j].Deadline)
	})
	for _, line := range view.Reports {
		if line.Status == StatusOverdue {
			view.OverdueReports = append(view.OverdueReports, line)
		}
	}
	return view, true
}

// ReportsVisibleTo filters reports down to what user may tag. Moderators see
// their assigned reports only; administrators see everything; nobody else sees any.
func ReportsVisibleTo(user models.User, reports []models.Report) []models.Report {
	switch user.Role {
	case models.RoleAdmin:
		out := make([]models.Report, len(reports))
		copy(out, reports)
		return out
	case models.RoleModerator:
		assigned := make(map[string]struct{}, len(user.AssignedReportIDs))
		for _, id := range user.AssignedReportIDs {
			assigned[id] = struct{}{}
		}
		out := make([]models.Report, 0, len(assigned))
		for _, rep := range reports {
			if _, ok := assigned[rep.ID]; ok {
				out = append(out, rep)
			}
		}
		return out
	default:
		return []models.Report{}
	}
}

// UntaggedStatus is shown for pairs without any stored row.
const UntaggedStatus = "Pending"

// TaggingRow is one school's stored record for the selected report.
type TaggingRow struct {
	SchoolID       string        `json:"schoolId"`
	SchoolName     string        `json:"schoolName"`
	StoredStatus   string        `json:"storedStatus"`
	SubmissionDate *models.Date  `json:"submissionDate"`
	Remarks        string        `json:"remarks"`
	Status         DisplayStatus `json:"status"`
}

// TaggingView is the per-report tagging workspace.
type TaggingView struct {
	Reports  []models.Report `json:"reports"`
	Selected *models.Report  `json:"selected"`
	Rows     []TaggingRow    `json:"rows"`
}

// BuildTaggingView lists every school's stored row for one of the visible
// reports. An empty or invisible selection falls back to the first visible report.
func BuildTaggingView(res *Result, visible []models.Report, selectedID string) TaggingView {
	view := TaggingView{Reports: visible, Rows: make([]TaggingRow, 0)}
	if len(visible) == 0 {
		return view
	}
	selected := visible[0]
	for _, rep := range visible {
		if rep.ID == selectedID {
			selected = rep
			break
		}
	}
	view.Selected = &selected

	for _, school := range res.Tables.Schools {
		cell := res.Cell(school.ID, selected.ID)
		row := TaggingRow{
			SchoolID:     school.ID,
			SchoolName:   school.Name,
			StoredStatus: UntaggedStatus,
			Status:       cell.Status,
		}
		if sub := cell.Submission; sub != nil {
			row.StoredStatus = string(sub.Status)
			row.SubmissionDate = sub.SubmissionDate
			row.Remarks = sub.Remarks
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}
