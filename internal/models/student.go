package models

import "time"

// StudentStatus tracks the enrollment lifecycle of a student.
type StudentStatus string

const (
	StudentStatusActive StudentStatus = "active"
	StudentStatusAlumni StudentStatus = "alumni"
)

// Student represents a learner registered under one tenant. ClassID is nil
// when the student is not enrolled in a class (graduated alumni).
type Student struct {
	ID              string        `db:"id" json:"id"`
	TenantID        string        `db:"tenant_id" json:"tenant_id"`
	UserID          *string       `db:"user_id" json:"user_id,omitempty"`
	AdmissionNumber string        `db:"admission_number" json:"admission_number"`
	FullName        string        `db:"full_name" json:"full_name"`
	ClassID         *string       `db:"class_id" json:"class_id,omitempty"`
	Status          StudentStatus `db:"status" json:"status"`
	IsScholarship   bool          `db:"is_scholarship" json:"is_scholarship"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}
