package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/storage"
)

// DefaultMaxUploadSize applies when no limit is configured.
const DefaultMaxUploadSize int64 = 20 * 1024 * 1024

const maxFileNameLength = 100

type uploadRepository interface {
	List(ctx context.Context, filter models.UploadFilter) ([]models.UploadDetail, error)
	FindByID(ctx context.Context, id string) (*models.UploadDetail, error)
	Create(ctx context.Context, upload *models.Upload) error
	Delete(ctx context.Context, id string) error
	CountSince(ctx context.Context, since time.Time) (int, error)
}

type submissionLookup interface {
	FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error)
}

type fileStore interface {
	Save(relPath string, r io.Reader, limit int64) (int64, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
}

type fileRemover interface {
	Delete(relPath string) error
}

// removeFiles deletes stored files whose upload rows are already gone. A
// failure leaves an orphaned file behind and is only logged.
func removeFiles(files fileRemover, logger *zap.Logger, paths []string) {
	if files == nil {
		return
	}
	for _, path := range paths {
		if err := files.Delete(path); err != nil {
			logger.Warn("failed to remove upload file", zap.String("path", path), zap.Error(err))
		}
	}
}

type linkSigner interface {
	Generate(uploadID string) (string, time.Time, error)
	Parse(token string) (string, error)
}

// UploadServiceConfig bounds accepted files. An empty allow list accepts every type.
type UploadServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
}

// UploadRequest is a file attached to a submission. Size is the size the
// client announced; the stored size is measured while copying.
type UploadRequest struct {
	SubmissionID string
	UploadedBy   string
	FileName     string
	Size         int64
	Content      io.Reader
}

// UploadService stores submission files on disk and hands out signed download links.
type UploadService struct {
	repo        uploadRepository
	submissions submissionLookup
	store       fileStore
	signer      linkSigner
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         UploadServiceConfig
}

// NewUploadService constructs the upload service.
func NewUploadService(repo uploadRepository, submissions submissionLookup, store fileStore, signer linkSigner, metrics *MetricsService, logger *zap.Logger, cfg UploadServiceConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxUploadSize
	}
	return &UploadService{
		repo:        repo,
		submissions: submissions,
		store:       store,
		signer:      signer,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// List returns upload metadata.
func (s *UploadService) List(ctx context.Context, filter models.UploadFilter) ([]models.UploadDetail, error) {
	uploads, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to list uploads")
	}
	if uploads == nil {
		uploads = []models.UploadDetail{}
	}
	return uploads, nil
}

// Get returns upload metadata.
func (s *UploadService) Get(ctx context.Context, id string) (*models.UploadDetail, error) {
	upload, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "upload not found", "", "failed to load upload")
	}
	return upload, nil
}

// CountSince counts uploads received at or after since.
func (s *UploadService) CountSince(ctx context.Context, since time.Time) (int, error) {
	count, err := s.repo.CountSince(ctx, since)
	if err != nil {
		return 0, storeFailure(err, "", "", "failed to count uploads")
	}
	return count, nil
}

// Upload validates and stores a file for a submission.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*models.UploadDetail, error) {
	req.SubmissionID = strings.TrimSpace(req.SubmissionID)
	if req.SubmissionID == "" {
		return nil, invalid("submissionId is required")
	}
	if req.Content == nil {
		return nil, invalid("file is required")
	}
	if req.Size > s.cfg.MaxFileSize {
		return nil, s.tooLarge()
	}
	if _, err := s.submissions.FindByID(ctx, req.SubmissionID); err != nil {
		return nil, storeFailure(err, "submission not found", "", "failed to load submission")
	}

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(req.Content, s.cfg.MaxFileSize+1)); err != nil {
		return nil, appErrors.Internal(err, "failed to read upload")
	}
	if int64(buf.Len()) > s.cfg.MaxFileSize {
		return nil, s.tooLarge()
	}
	if buf.Len() == 0 {
		return nil, invalid("file is empty")
	}

	detected := mimetype.Detect(buf.Bytes())
	if !s.allowed(detected) {
		return nil, invalid(fmt.Sprintf("file type %s is not allowed", detected.String()))
	}

	name := sanitizeFileName(req.FileName)
	relPath := path.Join(sanitizeFileName(req.SubmissionID), uuid.NewString()+"-"+name)
	size, err := s.store.Save(relPath, bytes.NewReader(buf.Bytes()), s.cfg.MaxFileSize)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, s.tooLarge()
		}
		return nil, appErrors.Internal(err, "failed to store upload")
	}

	upload := &models.Upload{
		SubmissionID: req.SubmissionID,
		FileName:     name,
		FilePath:     relPath,
		FileSize:     size,
		MimeType:     mediaType(detected),
		UploadedBy:   sanitizeText(req.UploadedBy),
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		if rmErr := s.store.Delete(relPath); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", relPath), zap.Error(rmErr))
		}
		return nil, storeFailure(err, "", "submission no longer exists", "failed to save upload")
	}

	s.metrics.RecordUpload(size)
	s.logger.Info("upload stored",
		zap.String("upload_id", upload.ID),
		zap.String("submission_id", upload.SubmissionID),
		zap.String("mime_type", upload.MimeType),
		zap.Int64("size", size))
	return s.Get(ctx, upload.ID)
}

// SignedLink issues a time-limited download token for an upload.
func (s *UploadService) SignedLink(ctx context.Context, id string) (*dto.UploadLink, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, storeFailure(err, "upload not found", "", "failed to load upload")
	}
	token, expiresAt, err := s.signer.Generate(id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download link")
	}
	return &dto.UploadLink{UploadID: id, Token: token, ExpiresAt: expiresAt}, nil
}

// Open resolves a download token to the upload and its file. The caller
// closes the file.
func (s *UploadService) Open(ctx context.Context, token string) (*models.UploadDetail, *os.File, error) {
	id, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrExpiredToken) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	upload, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, storeFailure(err, "upload not found", "", "failed to load upload")
	}
	file, err := s.store.Open(upload.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "upload file is missing")
		}
		return nil, nil, appErrors.Internal(err, "failed to open upload")
	}
	return upload, file, nil
}

// Delete removes the metadata and then the stored file.
func (s *UploadService) Delete(ctx context.Context, id string) error {
	upload, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeFailure(err, "upload not found", "", "failed to load upload")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeFailure(err, "upload not found", "", "failed to delete upload")
	}
	if err := s.store.Delete(upload.FilePath); err != nil {
		s.logger.Warn("failed to remove upload file", zap.String("upload_id", id), zap.Error(err))
	}
	return nil
}

func (s *UploadService) allowed(detected *mimetype.MIME) bool {
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for m := detected; m != nil; m = m.Parent() {
		for _, allowed := range s.cfg.AllowedMIMEs {
			if m.Is(allowed) {
				return true
			}
		}
	}
	return false
}

func (s *UploadService) tooLarge() error {
	return appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSize))
}

// mediaType drops parameters such as charset.
func mediaType(m *mimetype.MIME) string {
	value := m.String()
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	clean := strings.Trim(b.String(), ".")
	if len(clean) > maxFileNameLength {
		clean = clean[len(clean)-maxFileNameLength:]
	}
	if clean == "" {
		return "file"
	}
	return clean
}
