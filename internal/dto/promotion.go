package dto

// PromoteRequest moves a batch of students into a target class.
type PromoteRequest struct {
	StudentIDs    []string `json:"studentIds" binding:"required,min=1"`
	TargetClassID string   `json:"targetClassId" binding:"required"`
}

// GraduateRequest retires a batch of students to alumni status.
type GraduateRequest struct {
	StudentIDs     []string `json:"studentIds" binding:"required,min=1"`
	GraduationYear int      `json:"graduationYear" binding:"required,gte=1980"`
}

// BatchFailure records why one student in a batch was skipped. The rest of
// the batch is unaffected.
type BatchFailure struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// PromoteResult reports per-student outcomes of a batch promotion.
type PromoteResult struct {
	Promoted []string       `json:"promoted"`
	Failed   []BatchFailure `json:"failed"`
}

// GraduateResult reports per-student outcomes of a batch graduation.
type GraduateResult struct {
	Graduated []string       `json:"graduated"`
	Failed    []BatchFailure `json:"failed"`
}
