package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleModerator UserRole = "MODERATOR"
	RoleSchool    UserRole = "SCHOOL"
)

// User represents an application user stored in the users table.
// School users are linked to schools by name; moderators to the reports they may tag.
type User struct {
	ID                string         `db:"id" json:"id"`
	Email             string         `db:"email" json:"email"`
	PasswordHash      string         `db:"password_hash" json:"-"`
	FullName          string         `db:"full_name" json:"full_name"`
	Role              UserRole       `db:"role" json:"role"`
	SchoolNames       pq.StringArray `db:"school_names" json:"school_names"`
	AssignedReportIDs pq.StringArray `db:"assigned_report_ids" json:"assigned_report_ids"`
	Active            bool           `db:"active" json:"active"`
	LastLogin         *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// BelongsToSchool reports whether u is a school user registered for the named school.
func (u User) BelongsToSchool(name string) bool {
	if u.Role != RoleSchool {
		return false
	}
	for _, n := range u.SchoolNames {
		if n == name {
			return true
		}
	}
	return false
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       *UserRole
	Active     *bool
	SchoolName string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
