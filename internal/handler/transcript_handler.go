package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/internal/service"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/response"
)

type transcriptService interface {
	Request(ctx context.Context, requestedBy, studentID int64, req models.TranscriptRequest) (*models.TranscriptJob, error)
	Get(ctx context.Context, id string) (*models.TranscriptJob, error)
	Download(ctx context.Context, token string) (*service.TranscriptDownload, error)
}

// TranscriptHandler exposes transcript export endpoints.
type TranscriptHandler struct {
	service transcriptService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(svc transcriptService) *TranscriptHandler {
	return &TranscriptHandler{service: svc}
}

// Request godoc
// @Summary Queue a transcript export
// @Tags Transcripts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param payload body models.TranscriptRequest true "Level and format"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/transcripts [post]
func (h *TranscriptHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid transcript payload"))
		return
	}
	job, err := h.service.Request(c.Request.Context(), claims.UserID, studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Get godoc
// @Summary Transcript job status
// @Tags Transcripts
// @Produce json
// @Security BearerAuth
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /transcripts/{jobId} [get]
func (h *TranscriptHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	job, err := h.service.Get(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !isTeacher(claims) && !isStudent(claims, job.StudentID) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.OK(c, job)
}

// Download godoc
// @Summary Download a rendered transcript
// @Description The signed token is returned on the completed job.
// @Tags Transcripts
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /transcripts/download [get]
func (h *TranscriptHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token is required"))
		return
	}
	download, err := h.service.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read transcript"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.FileName),
		"Cache-Control":       "no-store",
	})
}
