package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	appErrors "github.com/classforge/school-api/pkg/errors"
)

type academicStore interface {
	CreateSession(ctx context.Context, session *models.AcademicSession) error
	CreateTerm(ctx context.Context, term *models.Term) error
	FindSession(ctx context.Context, tenantID, id string) (*models.AcademicSession, error)
	FindTerm(ctx context.Context, tenantID, id string) (*models.Term, error)
	ListSessions(ctx context.Context, tenantID string) ([]models.AcademicSession, error)
	ListTerms(ctx context.Context, tenantID, sessionID string) ([]models.Term, error)
	SetCurrent(ctx context.Context, tenantID, sessionID, termID string) error
	GetCurrent(ctx context.Context, tenantID string) (*models.CurrentPeriod, error)
}

// AcademicService manages sessions, terms, and the tenant's current period
// pointer that fee generation depends on.
type AcademicService struct {
	academic academicStore
	audit    auditLogger
	logger   *zap.Logger
}

// NewAcademicService constructs the service.
func NewAcademicService(academic academicStore, audit auditLogger, logger *zap.Logger) *AcademicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicService{academic: academic, audit: audit, logger: logger}
}

// CreateSession opens a new academic session.
func (s *AcademicService) CreateSession(ctx context.Context, tenantID string, req dto.CreateSessionRequest) (*models.AcademicSession, error) {
	session := &models.AcademicSession{
		TenantID:  tenantID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.academic.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// CreateTerm adds a term inside an existing session.
func (s *AcademicService) CreateTerm(ctx context.Context, tenantID string, req dto.CreateTermRequest) (*models.Term, error) {
	if _, err := s.academic.FindSession(ctx, tenantID, req.SessionID); err != nil {
		return nil, notFoundOr(err, "academic session not found")
	}
	term := &models.Term{
		TenantID:  tenantID,
		SessionID: req.SessionID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.academic.CreateTerm(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// ListSessions returns all sessions for the tenant.
func (s *AcademicService) ListSessions(ctx context.Context, tenantID string) ([]models.AcademicSession, error) {
	sessions, err := s.academic.ListSessions(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// ListTerms returns terms, optionally scoped to one session.
func (s *AcademicService) ListTerms(ctx context.Context, tenantID, sessionID string) ([]models.Term, error) {
	terms, err := s.academic.ListTerms(ctx, tenantID, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// SetCurrentTerm atomically points the tenant at a (session, term) pair. The
// term must belong to the session; everything else is de-flagged in the same
// transaction.
func (s *AcademicService) SetCurrentTerm(ctx context.Context, tenantID string, req dto.SetCurrentTermRequest, actorID string) error {
	if err := s.academic.SetCurrent(ctx, tenantID, req.SessionID, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found in the given session")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current term")
	}
	s.emitAudit(ctx, tenantID, actorID, models.AuditActionSetCurrentTerm, "terms", &req.TermID, map[string]interface{}{
		"sessionId": req.SessionID,
		"termId":    req.TermID,
	})
	return nil
}

// GetCurrent returns the tenant's active period.
func (s *AcademicService) GetCurrent(ctx context.Context, tenantID string) (*models.CurrentPeriod, error) {
	period, err := s.academic.GetCurrent(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current term configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current period")
	}
	return period, nil
}

func (s *AcademicService) emitAudit(ctx context.Context, tenantID, actorID, action, resource string, resourceID *string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	log := &models.AuditLog{
		TenantID:   &tenantID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    payload,
		IPAddress:  "system",
		UserAgent:  "academic-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
