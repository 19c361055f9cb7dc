package models

import (
	"fmt"
	"time"
)

// PromotionType distinguishes class-to-class moves from graduations.
type PromotionType string

const (
	PromotionTypePromotion  PromotionType = "promotion"
	PromotionTypeGraduation PromotionType = "graduation"
)

// PromotionHistory is an append-only audit row for one student transition.
// ToClassID is nil for graduations.
type PromotionHistory struct {
	ID          string        `db:"id" json:"id"`
	TenantID    string        `db:"tenant_id" json:"tenant_id"`
	StudentID   string        `db:"student_id" json:"student_id"`
	FromClassID *string       `db:"from_class_id" json:"from_class_id,omitempty"`
	ToClassID   *string       `db:"to_class_id" json:"to_class_id,omitempty"`
	Type        PromotionType `db:"type" json:"type"`
	SessionID   *string       `db:"session_id" json:"session_id,omitempty"`
	PerformedBy string        `db:"performed_by" json:"performed_by"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// PromotionHistoryDetail joins names for list endpoints.
type PromotionHistoryDetail struct {
	PromotionHistory
	StudentName   string  `db:"student_name" json:"student_name"`
	FromClassName *string `db:"from_class_name" json:"from_class_name,omitempty"`
	ToClassName   *string `db:"to_class_name" json:"to_class_name,omitempty"`
	SessionName   *string `db:"session_name" json:"session_name,omitempty"`
}

// PromotionHistoryFilter narrows history listings.
type PromotionHistoryFilter struct {
	StudentID string
	Type      PromotionType
	Page      int
	PageSize  int
}

// Alumni is the graduated-student profile, one per (tenant, student).
type Alumni struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	GraduationYear int       `db:"graduation_year" json:"graduation_year"`
	AlumniID       string    `db:"alumni_id" json:"alumni_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FormatAlumniID builds the alumni identifier from the graduation year and
// the student's admission number.
func FormatAlumniID(year int, admissionNumber string) string {
	return fmt.Sprintf("AL/%d/%s", year, admissionNumber)
}
