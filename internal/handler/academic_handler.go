package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/service"
	appErrors "github.com/classforge/school-api/pkg/errors"
	"github.com/classforge/school-api/pkg/response"
)

// AcademicHandler exposes session and term endpoints.
type AcademicHandler struct {
	academic *service.AcademicService
}

// NewAcademicHandler constructs handler.
func NewAcademicHandler(academic *service.AcademicService) *AcademicHandler {
	return &AcademicHandler{academic: academic}
}

// CreateSession godoc
// @Summary Create an academic session
// @Tags Academic
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *AcademicHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID, _ := tenantScope(c)
	session, err := h.academic.CreateSession(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// ListSessions godoc
// @Summary List academic sessions
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *AcademicHandler) ListSessions(c *gin.Context) {
	tenantID, _ := tenantScope(c)
	sessions, err := h.academic.ListSessions(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// CreateTerm godoc
// @Summary Create a term inside a session
// @Tags Academic
// @Accept json
// @Produce json
// @Param payload body dto.CreateTermRequest true "Term payload"
// @Success 201 {object} response.Envelope
// @Router /terms [post]
func (h *AcademicHandler) CreateTerm(c *gin.Context) {
	var req dto.CreateTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID, _ := tenantScope(c)
	term, err := h.academic.CreateTerm(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, term)
}

// ListTerms godoc
// @Summary List terms
// @Tags Academic
// @Produce json
// @Param sessionId query string false "Filter by session"
// @Success 200 {object} response.Envelope
// @Router /terms [get]
func (h *AcademicHandler) ListTerms(c *gin.Context) {
	tenantID, _ := tenantScope(c)
	terms, err := h.academic.ListTerms(c.Request.Context(), tenantID, c.Query("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms, nil)
}

// SetCurrentTerm godoc
// @Summary Point the school at its active session and term
// @Tags Academic
// @Accept json
// @Produce json
// @Param payload body dto.SetCurrentTermRequest true "Current period payload"
// @Success 204 "No Content"
// @Router /terms/current [put]
func (h *AcademicHandler) SetCurrentTerm(c *gin.Context) {
	var req dto.SetCurrentTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID, actorID := tenantScope(c)
	if err := h.academic.SetCurrentTerm(c.Request.Context(), tenantID, req, actorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetCurrentTerm godoc
// @Summary Return the school's active session and term
// @Tags Academic
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /terms/current [get]
func (h *AcademicHandler) GetCurrentTerm(c *gin.Context) {
	tenantID, _ := tenantScope(c)
	period, err := h.academic.GetCurrent(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}
