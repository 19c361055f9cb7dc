package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/repository"
	appErrors "github.com/classforge/school-api/pkg/errors"
)

type promotionStore interface {
	Promote(ctx context.Context, params repository.PromoteParams) error
	Graduate(ctx context.Context, params repository.GraduateParams) error
	ListHistory(ctx context.Context, tenantID string, filter models.PromotionHistoryFilter) ([]models.PromotionHistoryDetail, int, error)
}

type promotionClassStore interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Class, error)
}

type promotionAcademicStore interface {
	GetCurrent(ctx context.Context, tenantID string) (*models.CurrentPeriod, error)
}

// PromotionService moves batches of students between classes and retires
// them to alumni status. Each student is its own transaction; one failure
// never rolls back the rest of the batch.
type PromotionService struct {
	promotions promotionStore
	classes    promotionClassStore
	academic   promotionAcademicStore
	audit      auditLogger
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewPromotionService constructs the service.
func NewPromotionService(promotions promotionStore, classes promotionClassStore, academic promotionAcademicStore, audit auditLogger, metrics *MetricsService, logger *zap.Logger) *PromotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionService{
		promotions: promotions,
		classes:    classes,
		academic:   academic,
		audit:      audit,
		metrics:    metrics,
		logger:     logger,
	}
}

// Promote moves each listed student into the target class. The target class
// is validated once up front; per-student failures are collected, not fatal.
func (s *PromotionService) Promote(ctx context.Context, tenantID string, req dto.PromoteRequest, actorID string) (*dto.PromoteResult, error) {
	if _, err := s.classes.FindByID(ctx, tenantID, req.TargetClassID); err != nil {
		return nil, notFoundOr(err, "target class not found")
	}

	sessionID := s.currentSessionID(ctx, tenantID)
	result := &dto.PromoteResult{Promoted: []string{}, Failed: []dto.BatchFailure{}}
	for _, studentID := range req.StudentIDs {
		err := s.promotions.Promote(ctx, repository.PromoteParams{
			TenantID:      tenantID,
			StudentID:     studentID,
			TargetClassID: req.TargetClassID,
			SessionID:     sessionID,
			PerformedBy:   actorID,
		})
		if err != nil {
			result.Failed = append(result.Failed, dto.BatchFailure{
				StudentID: studentID,
				Reason:    batchFailureReason(err),
			})
			s.logger.Warn("student promotion skipped",
				zap.String("tenant_id", tenantID),
				zap.String("student_id", studentID),
				zap.Error(err))
			continue
		}
		result.Promoted = append(result.Promoted, studentID)
	}

	s.metrics.AddPromotions(len(result.Promoted))
	s.emitAudit(ctx, tenantID, actorID, models.AuditActionPromote, "students", nil, map[string]interface{}{
		"targetClassId": req.TargetClassID,
		"promoted":      len(result.Promoted),
		"failed":        len(result.Failed),
	})
	return result, nil
}

// Graduate retires each listed student to alumni status. Re-graduating an
// alumnus fails with not-found since only active students qualify.
func (s *PromotionService) Graduate(ctx context.Context, tenantID string, req dto.GraduateRequest, actorID string) (*dto.GraduateResult, error) {
	sessionID := s.currentSessionID(ctx, tenantID)
	result := &dto.GraduateResult{Graduated: []string{}, Failed: []dto.BatchFailure{}}
	for _, studentID := range req.StudentIDs {
		err := s.promotions.Graduate(ctx, repository.GraduateParams{
			TenantID:       tenantID,
			StudentID:      studentID,
			GraduationYear: req.GraduationYear,
			SessionID:      sessionID,
			PerformedBy:    actorID,
		})
		if err != nil {
			result.Failed = append(result.Failed, dto.BatchFailure{
				StudentID: studentID,
				Reason:    batchFailureReason(err),
			})
			s.logger.Warn("student graduation skipped",
				zap.String("tenant_id", tenantID),
				zap.String("student_id", studentID),
				zap.Error(err))
			continue
		}
		result.Graduated = append(result.Graduated, studentID)
	}

	s.metrics.AddGraduations(len(result.Graduated))
	s.emitAudit(ctx, tenantID, actorID, models.AuditActionGraduate, "students", nil, map[string]interface{}{
		"graduationYear": req.GraduationYear,
		"graduated":      len(result.Graduated),
		"failed":         len(result.Failed),
	})
	return result, nil
}

// History lists promotion and graduation events for the tenant.
func (s *PromotionService) History(ctx context.Context, tenantID string, filter models.PromotionHistoryFilter) ([]models.PromotionHistoryDetail, *models.Pagination, error) {
	history, total, err := s.promotions.ListHistory(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list promotion history")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return history, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// currentSessionID resolves the tenant's current session for history rows.
// Best-effort; promotions still proceed when no current period is set.
func (s *PromotionService) currentSessionID(ctx context.Context, tenantID string) *string {
	period, err := s.academic.GetCurrent(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to resolve current session for history",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return nil
	}
	return &period.SessionID
}

func batchFailureReason(err error) string {
	if errors.Is(err, sql.ErrNoRows) {
		return "student not found or not active"
	}
	return "internal error while processing student"
}

func (s *PromotionService) emitAudit(ctx context.Context, tenantID, actorID, action, resource string, resourceID *string, details map[string]interface{}) {
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
		UserAgent:  "promotion-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
