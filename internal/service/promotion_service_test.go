package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/repository"
)

type promotionStoreStub struct {
	promoteErrs  map[string]error
	graduateErrs map[string]error
	promoted     []repository.PromoteParams
	graduated    []repository.GraduateParams
	history      []models.PromotionHistoryDetail
}

func newPromotionStoreStub() *promotionStoreStub {
	return &promotionStoreStub{
		promoteErrs:  map[string]error{},
		graduateErrs: map[string]error{},
	}
}

func (s *promotionStoreStub) Promote(ctx context.Context, params repository.PromoteParams) error {
	if err, ok := s.promoteErrs[params.StudentID]; ok {
		return err
	}
	s.promoted = append(s.promoted, params)
	return nil
}

func (s *promotionStoreStub) Graduate(ctx context.Context, params repository.GraduateParams) error {
	if err, ok := s.graduateErrs[params.StudentID]; ok {
		return err
	}
	s.graduated = append(s.graduated, params)
	return nil
}

func (s *promotionStoreStub) ListHistory(ctx context.Context, tenantID string, filter models.PromotionHistoryFilter) ([]models.PromotionHistoryDetail, int, error) {
	return s.history, len(s.history), nil
}

func newPromotionFixture() (*PromotionService, *promotionStoreStub, *auditStub) {
	store := newPromotionStoreStub()
	classes := &classStoreStub{classes: map[string]*models.Class{
		"jss2-a": {ID: "jss2-a", TenantID: "tenant-1", Name: "JSS2 A"},
	}}
	academic := &academicStoreStub{current: &models.CurrentPeriod{SessionID: "sess-1", TermID: "term-1"}}
	audit := &auditStub{}
	svc := NewPromotionService(store, classes, academic, audit, nil, nil)
	return svc, store, audit
}

func TestPromoteBatchIsolation(t *testing.T) {
	svc, store, audit := newPromotionFixture()
	store.promoteErrs["s2"] = sql.ErrNoRows

	result, err := svc.Promote(context.Background(), "tenant-1", dto.PromoteRequest{
		StudentIDs:    []string{"s1", "s2", "s3"},
		TargetClassID: "jss2-a",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s3"}, result.Promoted)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "s2", result.Failed[0].StudentID)
	require.Equal(t, "student not found or not active", result.Failed[0].Reason)

	require.Len(t, store.promoted, 2)
	require.Equal(t, "sess-1", *store.promoted[0].SessionID)
	require.Len(t, audit.logs, 1)
}

func TestPromoteUnknownTargetClass(t *testing.T) {
	svc, _, _ := newPromotionFixture()

	_, err := svc.Promote(context.Background(), "tenant-1", dto.PromoteRequest{
		StudentIDs:    []string{"s1"},
		TargetClassID: "nope",
	}, "admin-1")
	require.Error(t, err)
}

func TestPromoteInternalErrorReason(t *testing.T) {
	svc, store, _ := newPromotionFixture()
	store.promoteErrs["s1"] = errors.New("deadlock detected")

	result, err := svc.Promote(context.Background(), "tenant-1", dto.PromoteRequest{
		StudentIDs:    []string{"s1"},
		TargetClassID: "jss2-a",
	}, "admin-1")
	require.NoError(t, err)
	require.Empty(t, result.Promoted)
	require.Equal(t, "internal error while processing student", result.Failed[0].Reason)
}

func TestGraduateBatch(t *testing.T) {
	svc, store, _ := newPromotionFixture()
	store.graduateErrs["s2"] = sql.ErrNoRows

	result, err := svc.Graduate(context.Background(), "tenant-1", dto.GraduateRequest{
		StudentIDs:     []string{"s1", "s2"},
		GraduationYear: 2025,
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, result.Graduated)
	require.Len(t, result.Failed, 1)

	require.Len(t, store.graduated, 1)
	require.Equal(t, 2025, store.graduated[0].GraduationYear)
	require.Equal(t, "admin-1", store.graduated[0].PerformedBy)
}

func TestGraduateWithoutCurrentPeriod(t *testing.T) {
	store := newPromotionStoreStub()
	svc := NewPromotionService(store, &classStoreStub{}, &academicStoreStub{}, nil, nil, nil)

	result, err := svc.Graduate(context.Background(), "tenant-1", dto.GraduateRequest{
		StudentIDs:     []string{"s1"},
		GraduationYear: 2025,
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, result.Graduated)
	require.Nil(t, store.graduated[0].SessionID)
}

func TestPromotionHistoryPagination(t *testing.T) {
	svc, store, _ := newPromotionFixture()
	store.history = []models.PromotionHistoryDetail{
		{PromotionHistory: models.PromotionHistory{ID: "ph-1", Type: models.PromotionTypePromotion}},
	}

	history, pagination, err := svc.History(context.Background(), "tenant-1", models.PromotionHistoryFilter{Page: 0, PageSize: 0})
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 50, pagination.PageSize)
	require.Equal(t, 1, pagination.TotalCount)
}
