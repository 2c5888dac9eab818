package compliance

import (
	"github.com/noah-isme/report-compliance-api/internal/models"
)

func day(raw string) models.Date {
	return models.MustParseDate(raw)
}

func datePtr(raw string) *models.Date {
	d := day(raw)
	return &d
}

func school(id, name string) models.School {
	return models.School{ID: id, Name: name}
}

func report(id, title, deadline string) models.Report {
	return models.Report{ID: id, Title: title, Deadline: day(deadline)}
}

func submitted(schoolID, reportID, on string) models.Submission {
	return models.Submission{SchoolID: schoolID, ReportID: reportID, Status: models.SubmissionSubmitted, SubmissionDate: datePtr(on)}
}

func notApplicable(schoolID, reportID string) models.Submission {
	return models.Submission{SchoolID: schoolID, ReportID: reportID, Status: models.SubmissionNotApplicable}
}

func schoolUser(email string, schools ...string) models.User {
	return models.User{Email: email, Role: models.RoleSchool, SchoolNames: schools}
}
