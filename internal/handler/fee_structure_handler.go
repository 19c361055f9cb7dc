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

// FeeStructureHandler exposes fee structure endpoints.
type FeeStructureHandler struct {
	fees *service.FeeService
}

// NewFeeStructureHandler constructs handler.
func NewFeeStructureHandler(fees *service.FeeService) *FeeStructureHandler {
	return &FeeStructureHandler{fees: fees}
}

// Setup godoc
// @Summary Create or update a class fee structure and reconcile student records
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.SetupFeeStructureRequest true "Fee structure payload"
// @Success 200 {object} response.Envelope
// @Router /fee-structure/setup [post]
func (h *FeeStructureHandler) Setup(c *gin.Context) {
	var req dto.SetupFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID, actorID := tenantScope(c)
	result, err := h.fees.SetupStructure(c.Request.Context(), tenantID, req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List fee structures
// @Tags Fees
// @Produce json
// @Param classId query string false "Filter by class"
// @Param termId query string false "Filter by term"
// @Param academicSessionId query string false "Filter by session"
// @Success 200 {object} response.Envelope
// @Router /fee-structure [get]
func (h *FeeStructureHandler) List(c *gin.Context) {
	filter := models.FeeStructureFilter{
		ClassID:   c.Query("classId"),
		TermID:    c.Query("termId"),
		SessionID: c.Query("academicSessionId"),
	}
	tenantID, _ := tenantScope(c)
	structures, err := h.fees.ListStructures(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structures, nil)
}
