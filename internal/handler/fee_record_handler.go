package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/service"
	appErrors "github.com/classforge/school-api/pkg/errors"
	"github.com/classforge/school-api/pkg/jobs"
	"github.com/classforge/school-api/pkg/response"
	"github.com/classforge/school-api/pkg/storage"
)

// JobTypeGenerateMissing identifies the queued maintenance run.
const JobTypeGenerateMissing = "fee.generate_missing"

// GenerateMissingPayload is the queued job payload for async maintenance runs.
type GenerateMissingPayload struct {
	TenantID string
	ActorID  string
}

// FeeRecordHandler exposes fee record and maintenance endpoints.
type FeeRecordHandler struct {
	fees    *service.FeeService
	queue   *jobs.Queue
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
}

// NewFeeRecordHandler constructs handler.
func NewFeeRecordHandler(fees *service.FeeService, queue *jobs.Queue, store *storage.LocalStorage, signer *storage.SignedURLSigner) *FeeRecordHandler {
	return &FeeRecordHandler{fees: fees, queue: queue, storage: store, signer: signer}
}

// List godoc
// @Summary List fee records with student identity
// @Tags Fees
// @Produce json
// @Param classId query string false "Filter by class"
// @Param studentId query string false "Filter by student"
// @Param termId query string false "Filter by term"
// @Param academicSessionId query string false "Filter by session"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fee-records [get]
func (h *FeeRecordHandler) List(c *gin.Context) {
	filter := models.FeeRecordFilter{
		ClassID:   c.Query("classId"),
		StudentID: c.Query("studentId"),
		TermID:    c.Query("termId"),
		SessionID: c.Query("academicSessionId"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 50),
	}
	tenantID, _ := tenantScope(c)
	records, pagination, err := h.fees.ListRecords(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// GenerateMissing godoc
// @Summary Create missing fee records for the current period
// @Tags Fees
// @Produce json
// @Param async query bool false "Run in the background"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /fee-records/generate-missing [post]
func (h *FeeRecordHandler) GenerateMissing(c *gin.Context) {
	tenantID, actorID := tenantScope(c)

	if c.Query("async") == "true" && h.queue != nil {
		jobID := uuid.NewString()
		err := h.queue.Enqueue(jobs.Job{
			ID:      jobID,
			Type:    JobTypeGenerateMissing,
			Payload: GenerateMissingPayload{TenantID: tenantID, ActorID: actorID},
		})
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue maintenance run"))
			return
		}
		response.JSON(c, http.StatusAccepted, gin.H{"jobId": jobID, "status": "queued"}, nil)
		return
	}

	result, err := h.fees.GenerateMissing(c.Request.Context(), tenantID, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RepairScholarships godoc
// @Summary Zero expected amounts on scholarship students' fee records
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fee-records/repair-scholarships [post]
func (h *FeeRecordHandler) RepairScholarships(c *gin.Context) {
	tenantID, actorID := tenantScope(c)
	result, err := h.fees.RepairScholarships(c.Request.Context(), tenantID, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RecordPayment godoc
// @Summary Append a payment to a fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee record id"
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /fee-records/{id}/payments [post]
func (h *FeeRecordHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenantID, actorID := tenantScope(c)
	record, err := h.fees.RecordPayment(c.Request.Context(), tenantID, c.Param("id"), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// SetClearance godoc
// @Summary Toggle the exam-clearance flag on a fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee record id"
// @Param payload body dto.SetClearanceRequest true "Clearance payload"
// @Success 204 "No Content"
// @Router /fee-records/{id}/clearance [patch]
func (h *FeeRecordHandler) SetClearance(c *gin.Context) {
	var req dto.SetClearanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsClearedForExam == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "isClearedForExam is required"))
		return
	}
	tenantID, actorID := tenantScope(c)
	if err := h.fees.SetClearance(c.Request.Context(), tenantID, c.Param("id"), *req.IsClearedForExam, actorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Render a class fee statement and return a signed download link
// @Tags Fees
// @Produce json
// @Param classId query string true "Class"
// @Param termId query string true "Term"
// @Param academicSessionId query string true "Session"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /fee-records/export [post]
func (h *FeeRecordHandler) Export(c *gin.Context) {
	filter := models.FeeRecordFilter{
		ClassID:   c.Query("classId"),
		TermID:    c.Query("termId"),
		SessionID: c.Query("academicSessionId"),
	}
	format := c.DefaultQuery("format", "csv")
	tenantID, actorID := tenantScope(c)
	result, err := h.fees.ExportStatement(c.Request.Context(), tenantID, filter, format, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download streams a previously exported statement. The signed token is the
// only credential; links expire with the signer TTL.
func (h *FeeRecordHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	if h.signer == nil || h.storage == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "statement exports not configured"))
		return
	}

	_, relPath, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link"))
		return
	}

	file, err := h.storage.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "statement no longer available"))
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	switch filepath.Ext(relPath) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(relPath))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
