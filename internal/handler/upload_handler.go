package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/service"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/response"
)

// multipart framing and the other form fields ride on top of the file itself
const multipartOverhead = 1 << 20

type uploadService interface {
	List(ctx context.Context, filter models.UploadFilter) ([]models.UploadDetail, error)
	Get(ctx context.Context, id string) (*models.UploadDetail, error)
	Upload(ctx context.Context, req service.UploadRequest) (*models.UploadDetail, error)
	SignedLink(ctx context.Context, id string) (*dto.UploadLink, error)
	Open(ctx context.Context, token string) (*models.UploadDetail, *os.File, error)
	Delete(ctx context.Context, id string) error
}

// UploadHandler exposes submission file endpoints.
type UploadHandler struct {
	uploads   uploadService
	maxSize   int64
	apiPrefix string
}

// NewUploadHandler constructs UploadHandler. apiPrefix is used to build download URLs.
func NewUploadHandler(uploads uploadService, maxSize int64, apiPrefix string) *UploadHandler {
	if maxSize <= 0 {
		maxSize = service.DefaultMaxUploadSize
	}
	return &UploadHandler{uploads: uploads, maxSize: maxSize, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// List godoc
// @Summary List uploads
// @Tags Uploads
// @Produce json
// @Param submissionId query string false "Filter by submission"
// @Param groupId query string false "Filter by group"
// @Param assignmentId query string false "Filter by assignment"
// @Success 200 {object} response.Envelope
// @Router /uploads [get]
func (h *UploadHandler) List(c *gin.Context) {
	filter := models.UploadFilter{
		SubmissionID: strings.TrimSpace(c.Query("submissionId")),
		GroupID:      strings.TrimSpace(c.Query("groupId")),
		AssignmentID: strings.TrimSpace(c.Query("assignmentId")),
	}
	uploads, err := h.uploads.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, uploads, nil)
}

// Get godoc
// @Summary Get upload metadata
// @Tags Uploads
// @Produce json
// @Param id path string true "Upload ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/{id} [get]
func (h *UploadHandler) Get(c *gin.Context) {
	upload, err := h.uploads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, upload, nil)
}

// Upload godoc
// @Summary Attach a file to a submission
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param submissionId formData string true "Submission ID"
// @Param uploadedBy formData string false "Uploader name"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("file exceeds %d bytes", h.maxSize)))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	upload, err := h.uploads.Upload(c.Request.Context(), service.UploadRequest{
		SubmissionID: c.PostForm("submissionId"),
		UploadedBy:   c.PostForm("uploadedBy"),
		FileName:     header.Filename,
		Size:         header.Size,
		Content:      file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, upload)
}

// Link godoc
// @Summary Issue a signed download link
// @Tags Uploads
// @Produce json
// @Param id path string true "Upload ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/{id}/link [get]
func (h *UploadHandler) Link(c *gin.Context) {
	link, err := h.uploads.SignedLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	link.URL = h.apiPrefix + "/uploads/download?token=" + url.QueryEscape(link.Token)
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a file through a signed link
// @Tags Uploads
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /uploads/download [get]
func (h *UploadHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	upload, file, err := h.uploads.Open(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	size := upload.FileSize
	if info, statErr := file.Stat(); statErr == nil {
		size = info.Size()
	}
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", upload.FileName),
		"Cache-Control":       "private, no-store",
	}
	c.DataFromReader(http.StatusOK, size, upload.MimeType, file, headers)
}

// Delete godoc
// @Summary Delete upload and its file
// @Tags Uploads
// @Param id path string true "Upload ID"
// @Success 204
// @Router /uploads/{id} [delete]
func (h *UploadHandler) Delete(c *gin.Context) {
	if err := h.uploads.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
