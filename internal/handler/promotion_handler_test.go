package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/middleware"
	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/repository"
	"github.com/classforge/school-api/internal/service"
)

type promotionStoreMock struct {
	failFor   map[string]error
	promoted  []string
	graduated []string
}

func (m *promotionStoreMock) Promote(ctx context.Context, params repository.PromoteParams) error {
	if err, ok := m.failFor[params.StudentID]; ok {
		return err
	}
	m.promoted = append(m.promoted, params.StudentID)
	return nil
}

func (m *promotionStoreMock) Graduate(ctx context.Context, params repository.GraduateParams) error {
	if err, ok := m.failFor[params.StudentID]; ok {
		return err
	}
	m.graduated = append(m.graduated, params.StudentID)
	return nil
}

func (m *promotionStoreMock) ListHistory(ctx context.Context, tenantID string, filter models.PromotionHistoryFilter) ([]models.PromotionHistoryDetail, int, error) {
	return nil, 0, nil
}

type classStoreMock struct{}

func (m *classStoreMock) FindByID(ctx context.Context, tenantID, id string) (*models.Class, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id, TenantID: tenantID}, nil
}

type academicStoreMock struct{}

func (m *academicStoreMock) GetCurrent(ctx context.Context, tenantID string) (*models.CurrentPeriod, error) {
	return &models.CurrentPeriod{SessionID: "sess-1", TermID: "term-1"}, nil
}

func newPromotionTestHandler(store *promotionStoreMock) *PromotionHandler {
	svc := service.NewPromotionService(store, &classStoreMock{}, &academicStoreMock{}, nil, nil, nil)
	return NewPromotionHandler(svc)
}

func promotionTestContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", TenantID: "tenant-1", Role: models.RoleAdmin})
	return c, w
}

func TestPromotionHandlerPromotePartialFailure(t *testing.T) {
	store := &promotionStoreMock{failFor: map[string]error{"s2": sql.ErrNoRows}}
	handler := newPromotionTestHandler(store)

	c, w := promotionTestContext(t, http.MethodPost, "/promotion/promote", dto.PromoteRequest{
		StudentIDs:    []string{"s1", "s2", "s3"},
		TargetClassID: "jss2-a",
	})
	handler.Promote(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.PromoteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, []string{"s1", "s3"}, envelope.Data.Promoted)
	require.Len(t, envelope.Data.Failed, 1)
	assert.Equal(t, "s2", envelope.Data.Failed[0].StudentID)
}

func TestPromotionHandlerPromoteInvalidBody(t *testing.T) {
	handler := newPromotionTestHandler(&promotionStoreMock{})

	c, w := promotionTestContext(t, http.MethodPost, "/promotion/promote", map[string]interface{}{
		"studentIds": []string{},
	})
	handler.Promote(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromotionHandlerPromoteUnknownClass(t *testing.T) {
	handler := newPromotionTestHandler(&promotionStoreMock{})

	c, w := promotionTestContext(t, http.MethodPost, "/promotion/promote", dto.PromoteRequest{
		StudentIDs:    []string{"s1"},
		TargetClassID: "missing",
	})
	handler.Promote(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPromotionHandlerGraduate(t *testing.T) {
	store := &promotionStoreMock{}
	handler := newPromotionTestHandler(store)

	c, w := promotionTestContext(t, http.MethodPost, "/promotion/graduate", dto.GraduateRequest{
		StudentIDs:     []string{"s1", "s2"},
		GraduationYear: 2025,
	})
	handler.Graduate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1", "s2"}, store.graduated)
}

func TestPromotionHandlerGraduateRejectsAncientYear(t *testing.T) {
	handler := newPromotionTestHandler(&promotionStoreMock{})

	c, w := promotionTestContext(t, http.MethodPost, "/promotion/graduate", dto.GraduateRequest{
		StudentIDs:     []string{"s1"},
		GraduationYear: 1900,
	})
	handler.Graduate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
