package dto

import "time"

// CreateSessionRequest opens a new academic session for the tenant.
type CreateSessionRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required,gtfield=StartDate"`
}

// CreateTermRequest adds a term inside an existing session.
type CreateTermRequest struct {
	SessionID string    `json:"sessionId" binding:"required"`
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required,gtfield=StartDate"`
}

// SetCurrentTermRequest points the tenant at its active grading period.
type SetCurrentTermRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	TermID    string `json:"termId" binding:"required"`
}
