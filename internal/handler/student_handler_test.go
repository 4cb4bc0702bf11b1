package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/service"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type fakeStudentSrv struct {
	lastFilter models.StudentFilter
	lastCreate service.CreateStudentRequest
	lastUpdate service.UpdateStudentRequest
	bulkCount  int
	imported   string
	deleted    string
	err        error
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	students := []models.StudentDetail{{Student: models.Student{ID: "s1", Name: "Ada"}}}
	if filter.PageSize > 0 {
		return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
	}
	return students, nil, nil
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.StudentDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.StudentDetail{Student: models.Student{ID: id, Name: "Ada"}}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.CreateStudentRequest) (*models.StudentDetail, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.StudentDetail{Student: models.Student{ID: "s-new", Name: req.Name}}, nil
}

func (f *fakeStudentSrv) BulkCreate(_ context.Context, reqs []service.CreateStudentRequest) (*dto.BulkResult, error) {
	f.bulkCount = len(reqs)
	return &dto.BulkResult{Created: len(reqs)}, f.err
}

func (f *fakeStudentSrv) ImportCSV(_ context.Context, r io.Reader) (*dto.BulkResult, error) {
	raw, _ := io.ReadAll(r)
	f.imported = string(raw)
	return &dto.BulkResult{Created: strings.Count(f.imported, "\n") - 1}, f.err
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.UpdateStudentRequest) (*models.StudentDetail, error) {
	f.lastUpdate = req
	return &models.StudentDetail{Student: models.Student{ID: id}}, f.err
}

func (f *fakeStudentSrv) UpdateAvatar(_ context.Context, id string, req service.UpdateAvatarRequest) (*models.StudentDetail, error) {
	return &models.StudentDetail{Student: models.Student{ID: id, Avatar: req.Avatar}}, f.err
}

func (f *fakeStudentSrv) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

func studentRouter(srv *fakeStudentSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewStudentHandler(srv)
	r := gin.New()
	r.GET("/students", h.List)
	r.POST("/students", h.Create)
	r.POST("/students/bulk", h.BulkCreate)
	r.POST("/students/import", h.Import)
	r.PUT("/students/:id", h.Update)
	r.PATCH("/students/:id/avatar", h.UpdateAvatar)
	r.DELETE("/students/:id", h.Delete)
	return r
}

func TestStudentHandlerListWithoutLimitReturnsEverything(t *testing.T) {
	srv := &fakeStudentSrv{}
	rec := httptest.NewRecorder()
	studentRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students?search=%20ada%20&groupId=g1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", srv.lastFilter.Search)
	assert.Equal(t, "g1", srv.lastFilter.GroupID)
	assert.Zero(t, srv.lastFilter.PageSize)
	assert.NotContains(t, rec.Body.String(), "pagination")
}

func TestStudentHandlerListPaginates(t *testing.T) {
	srv := &fakeStudentSrv{}
	rec := httptest.NewRecorder()
	studentRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students?page=2&limit=10", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 10, srv.lastFilter.PageSize)
	assert.Contains(t, rec.Body.String(), `"pagination":{"page":2,"page_size":10,"total_count":1}`)
}

func TestStudentHandlerListRejectsBadPage(t *testing.T) {
	rec := httptest.NewRecorder()
	studentRouter(&fakeStudentSrv{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students?page=0&limit=10", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerCreate(t *testing.T) {
	srv := &fakeStudentSrv{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"name":"Grace","groupId":"g1","xp":20}`))
	req.Header.Set("Content-Type", "application/json")
	studentRouter(srv).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Grace", srv.lastCreate.Name)
	require.NotNil(t, srv.lastCreate.GroupID)
	assert.Equal(t, "g1", *srv.lastCreate.GroupID)
	assert.Equal(t, 20, srv.lastCreate.XP)
}

func TestStudentHandlerCreateRejectsMalformedJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	studentRouter(&fakeStudentSrv{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "invalid payload", envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Code)
}

func TestStudentHandlerCreateConflict(t *testing.T) {
	srv := &fakeStudentSrv{err: appErrors.Clone(appErrors.ErrConstraint, "group g9 does not exist")}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"name":"Grace","groupId":"g9"}`))
	req.Header.Set("Content-Type", "application/json")
	studentRouter(srv).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStudentHandlerBulkCreate(t *testing.T) {
	srv := &fakeStudentSrv{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students/bulk", strings.NewReader(`[{"name":"A"},{"name":"B"}]`))
	req.Header.Set("Content-Type", "application/json")
	studentRouter(srv).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, srv.bulkCount)
}

func TestStudentHandlerImportCSV(t *testing.T) {
	srv := &fakeStudentSrv{}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "students.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("name,group\nAda,Red\nGrace,Blue\n"))
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	studentRouter(srv).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, srv.imported, "Ada,Red")
}

func TestStudentHandlerImportRequiresFile(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/students/import", strings.NewReader(""))
	studentRouter(&fakeStudentSrv{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerUpdateKeepsNullGroup(t *testing.T) {
	srv := &fakeStudentSrv{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/students/s1", strings.NewReader(`{"groupId":null}`))
	req.Header.Set("Content-Type", "application/json")
	studentRouter(srv).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.lastUpdate.GroupID.Set)
	assert.Nil(t, srv.lastUpdate.GroupID.Value)
	assert.Nil(t, srv.lastUpdate.Name)
}

func TestStudentHandlerAvatarAndDelete(t *testing.T) {
	srv := &fakeStudentSrv{}
	router := studentRouter(srv)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/students/s1/avatar", strings.NewReader(`{"avatar":"🦊"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "🦊")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/students/s1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "s1", srv.deleted)
}
