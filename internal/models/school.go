package models

import "time"

// School is a reporting unit within the division.
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolFilter captures filtering criteria for listing schools.
type SchoolFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}
