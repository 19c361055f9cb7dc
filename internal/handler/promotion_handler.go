package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/service"
	appErrors "github.com/classforge/school-api/pkg/errors"
	"github.com/classforge/school-api/pkg/response"
)

// PromotionHandler exposes promotion and graduation endpoints.
type PromotionHandler struct {
	promotions *service.PromotionService
}

// NewPromotionHandler constructs handler.
func NewPromotionHandler(promotions *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

// Promote godoc
// @Summary Move a batch of students into a target class
// @Tags Promotion
// @Accept json
// @Produce json
// @Param payload body dto.PromoteRequest true "Promotion payload"
// @Success 200 {object} response.Envelope
// @Router /promotion/promote [post]
func (h *PromotionHandler) Promote(c *gin.Context) {
	var req dto.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID, actorID := tenantScope(c)
	result, err := h.promotions.Promote(c.Request.Context(), tenantID, req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Graduate godoc
// @Summary Retire a batch of students to alumni status
// @Tags Promotion
// @Accept json
// @Produce json
// @Param payload body dto.GraduateRequest true "Graduation payload"
// @Success 200 {object} response.Envelope
// @Router /promotion/graduate [post]
func (h *PromotionHandler) Graduate(c *gin.Context) {
	var req dto.GraduateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID, actorID := tenantScope(c)
	result, err := h.promotions.Graduate(c.Request.Context(), tenantID, req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List promotion and graduation events
// @Tags Promotion
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param type query string false "promotion or graduation"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /promotion/history [get]
func (h *PromotionHandler) History(c *gin.Context) {
	filter := models.PromotionHistoryFilter{
		StudentID: c.Query("studentId"),
		Type:      models.PromotionType(c.Query("type")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 50),
	}
	tenantID, _ := tenantScope(c)
	history, pagination, err := h.promotions.History(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, pagination)
}
