package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/storage"
)

type mockUploadRepo struct {
	uploads   map[string]models.UploadDetail
	createErr error
}

func (m *mockUploadRepo) List(ctx context.Context, filter models.UploadFilter) ([]models.UploadDetail, error) {
	out := []models.UploadDetail{}
	for _, u := range m.uploads {
		if filter.SubmissionID != "" && u.SubmissionID != filter.SubmissionID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUploadRepo) FindByID(ctx context.Context, id string) (*models.UploadDetail, error) {
	if u, ok := m.uploads[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUploadRepo) Create(ctx context.Context, upload *models.Upload) error {
	if m.createErr != nil {
		return m.createErr
	}
	upload.ID = fmt.Sprintf("u%d", len(m.uploads)+1)
	m.uploads[upload.ID] = models.UploadDetail{Upload: *upload}
	return nil
}

func (m *mockUploadRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.uploads[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.uploads, id)
	return nil
}

func (m *mockUploadRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	count := 0
	for _, u := range m.uploads {
		if !u.UploadedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type stubSigner struct{}

func (stubSigner) Generate(uploadID string) (string, time.Time, error) {
	return "tok-" + uploadID, fixedNow.Add(15 * time.Minute), nil
}

func (stubSigner) Parse(token string) (string, error) {
	switch {
	case token == "expired":
		return "", storage.ErrExpiredToken
	case strings.HasPrefix(token, "tok-"):
		return strings.TrimPrefix(token, "tok-"), nil
	default:
		return "", storage.ErrInvalidToken
	}
}

type uploadFixture struct {
	svc   *UploadService
	repo  *mockUploadRepo
	store *storage.LocalStorage
}

func newUploadFixture(t *testing.T, cfg UploadServiceConfig) uploadFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := &mockUploadRepo{uploads: map[string]models.UploadDetail{}}
	submissions := newMockSubmissionRepo()
	submissions.submissions["sub1"] = models.SubmissionDetail{Submission: models.Submission{ID: "sub1", AssignmentID: "a1", GroupID: "g1"}}
	svc := NewUploadService(repo, submissions, store, stubSigner{}, nil, zap.NewNop(), cfg)
	return uploadFixture{svc: svc, repo: repo, store: store}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadServiceStoresFile(t *testing.T) {
	f := newUploadFixture(t, UploadServiceConfig{MaxFileSize: 1024, AllowedMIMEs: []string{"image/png", "text/plain"}})

	upload, err := f.svc.Upload(context.Background(), UploadRequest{
		SubmissionID: "sub1",
		UploadedBy:   "Ada",
		FileName:     "../../Team Poster.png",
		Content:      bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)
	assert.Equal(t, "Team_Poster.png", upload.FileName)
	assert.Equal(t, "image/png", upload.MimeType)
	assert.EqualValues(t, len(pngHeader), upload.FileSize)
	assert.True(t, strings.HasPrefix(upload.FilePath, "sub1/"))

	file, err := f.store.Open(upload.FilePath)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestUploadServiceRejects(t *testing.T) {
	f := newUploadFixture(t, UploadServiceConfig{MaxFileSize: 16, AllowedMIMEs: []string{"image/png"}})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, UploadRequest{SubmissionID: "sub1", FileName: "big.txt", Content: strings.NewReader(strings.Repeat("x", 17))})
	assert.Equal(t, appErrors.ErrTooLarge.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Upload(ctx, UploadRequest{SubmissionID: "sub1", FileName: "big.txt", Size: 99, Content: strings.NewReader("x")})
	assert.Equal(t, appErrors.ErrTooLarge.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Upload(ctx, UploadRequest{SubmissionID: "sub1", FileName: "notes.txt", Content: strings.NewReader("plain notes")})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Upload(ctx, UploadRequest{SubmissionID: "sub1", FileName: "empty.png", Content: strings.NewReader("")})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Upload(ctx, UploadRequest{SubmissionID: "ghost", FileName: "a.png", Content: bytes.NewReader(pngHeader)})
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)

	assert.Empty(t, f.repo.uploads)
}

func TestUploadServiceRemovesFileWhenRecordFails(t *testing.T) {
	f := newUploadFixture(t, UploadServiceConfig{MaxFileSize: 1024})
	f.repo.createErr = fmt.Errorf("disk full")

	_, err := f.svc.Upload(context.Background(), UploadRequest{SubmissionID: "sub1", FileName: "a.png", Content: bytes.NewReader(pngHeader)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	entries, err := f.store.Open("sub1")
	if err == nil {
		names, _ := entries.Readdirnames(-1)
		entries.Close()
		assert.Empty(t, names)
	}
}

func TestUploadServiceSignedDownload(t *testing.T) {
	f := newUploadFixture(t, UploadServiceConfig{MaxFileSize: 1024})
	ctx := context.Background()

	upload, err := f.svc.Upload(ctx, UploadRequest{SubmissionID: "sub1", FileName: "a.png", Content: bytes.NewReader(pngHeader)})
	require.NoError(t, err)

	link, err := f.svc.SignedLink(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, upload.ID, link.UploadID)

	found, file, err := f.svc.Open(ctx, link.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, upload.ID, found.ID)

	_, _, err = f.svc.Open(ctx, "expired")
	assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)
	assert.Contains(t, err.Error(), "expired")

	_, _, err = f.svc.Open(ctx, "garbage")
	assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)

	_, err = f.svc.SignedLink(ctx, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestUploadServiceDeleteRemovesFile(t *testing.T) {
	f := newUploadFixture(t, UploadServiceConfig{MaxFileSize: 1024})
	ctx := context.Background()

	upload, err := f.svc.Upload(ctx, UploadRequest{SubmissionID: "sub1", FileName: "a.png", Content: bytes.NewReader(pngHeader)})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, upload.ID))
	_, err = f.store.Open(upload.FilePath)
	assert.Error(t, err)

	err = f.svc.Delete(ctx, upload.ID)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFileName("C:\\Users\\ada\\report.pdf"))
	assert.Equal(t, "file", sanitizeFileName("../.."))
	assert.Equal(t, "file", sanitizeFileName(""))
	assert.Equal(t, "hllo.txt", sanitizeFileName("héllo.txt"))
}
