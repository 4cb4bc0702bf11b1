package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/pkg/config"
	"github.com/noah-isme/classquest-api/pkg/database"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error string                 `json:"error"`
	Code  string                 `json:"code"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	return newTestAppWithStorage(t, t.TempDir())
}

func newTestAppWithStorage(t *testing.T, storageDir string) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	cfg := &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		HTTP:      config.HTTPConfig{RequestTimeout: 5 * time.Second},
		Uploads: config.UploadsConfig{
			StorageDir:       storageDir,
			MaxFileSizeBytes: 1 << 20,
			SignedURLSecret:  "test-secret",
			SignedURLTTL:     time.Minute,
		},
		Assignments: config.AssignmentsConfig{ClosingWindow: 48 * time.Hour},
	}
	a, err := New(cfg, db, nil, zap.NewNop())
	require.NoError(t, err)
	return a
}

func call(t *testing.T, a *App, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decode(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestClassroomFlow(t *testing.T) {
	a := newTestApp(t)

	rec, env := call(t, a, http.MethodPost, "/api/v1/groups", map[string]interface{}{"name": "Aurora", "color": "#f97316", "emoji": "🔥"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	groupID := decode(t, env.Data)["id"].(string)
	require.NotEmpty(t, groupID)

	var studentIDs []string
	for _, name := range []string{"Noor", "Milan"} {
		rec, env = call(t, a, http.MethodPost, "/api/v1/students", map[string]interface{}{"name": name, "groupId": groupID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		student := decode(t, env.Data)
		assert.Equal(t, groupID, student["groupId"])
		assert.EqualValues(t, 1, student["level"])
		studentIDs = append(studentIDs, student["id"].(string))
	}

	rec, _ = call(t, a, http.MethodPost, "/api/v1/students", map[string]interface{}{"name": "Ghost", "groupId": "missing"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	due := time.Now().Add(10 * 24 * time.Hour).UTC().Format(time.RFC3339)
	rec, env = call(t, a, http.MethodPost, "/api/v1/assignments", map[string]interface{}{"title": "Prototype", "dueDate": due, "difficulty": "Hard"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assignment := decode(t, env.Data)
	assignmentID := assignment["id"].(string)
	assert.Equal(t, "Open", assignment["status"])
	assert.EqualValues(t, 1, assignment["totalGroups"])
	assert.EqualValues(t, 100, assignment["xpReward"])

	rec, env = call(t, a, http.MethodPost, "/api/v1/submissions", map[string]interface{}{"assignmentId": assignmentID, "groupId": groupID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submission := decode(t, env.Data)
	submissionID := submission["id"].(string)
	assert.Equal(t, "NotAssessed", submission["status"])

	rec, _ = call(t, a, http.MethodPost, "/api/v1/submissions", map[string]interface{}{"assignmentId": assignmentID, "groupId": groupID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	scores := map[string]map[string]float64{}
	for _, category := range []string{"communication", "taskDivision", "documentation", "professionalism"} {
		scores[category] = map[string]float64{studentIDs[0]: 8, studentIDs[1]: 9}
	}
	rec, env = call(t, a, http.MethodPut, "/api/v1/submissions/"+submissionID, map[string]interface{}{"scores": scores, "feedback": "Strong work"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assessed := decode(t, env.Data)
	assert.Equal(t, "Assessed", assessed["status"])
	assert.EqualValues(t, 100, assessed["progress"])

	rec, _ = call(t, a, http.MethodPut, "/api/v1/submissions/"+submissionID, map[string]interface{}{
		"scores": map[string]map[string]float64{"communication": {studentIDs[0]: 11}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = call(t, a, http.MethodGet, "/api/v1/leaderboard/groups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode(t, env.Data)
	require.Len(t, board["entries"], 1)
	assert.Equal(t, false, env.Meta["cache_hit"])

	rec, env = call(t, a, http.MethodGet, "/api/v1/dashboard/teacher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	teacher := decode(t, env.Data)
	assert.EqualValues(t, 2, teacher["totalStudents"])
	assert.EqualValues(t, 0, teacher["pendingAssessments"])

	rec, env = call(t, a, http.MethodGet, "/api/v1/dashboard/students/"+studentIDs[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, env.Data)["groupRank"])

	rec, env = call(t, a, http.MethodDelete, "/api/v1/groups/"+groupID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "group still has members", env.Error)
}

func TestUploadRoundTrip(t *testing.T) {
	a := newTestApp(t)

	_, env := call(t, a, http.MethodPost, "/api/v1/groups", map[string]interface{}{"name": "Nebula"})
	groupID := decode(t, env.Data)["id"].(string)
	_, env = call(t, a, http.MethodPost, "/api/v1/assignments", map[string]interface{}{"title": "Report", "dueDate": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)})
	assignmentID := decode(t, env.Data)["id"].(string)
	_, env = call(t, a, http.MethodPost, "/api/v1/submissions", map[string]interface{}{"assignmentId": assignmentID, "groupId": groupID})
	submissionID := decode(t, env.Data)["id"].(string)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("submissionId", submissionID))
	require.NoError(t, writer.WriteField("uploadedBy", "Lotte"))
	part, err := writer.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("our final report"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	upload := decode(t, env.Data)
	uploadID := upload["id"].(string)
	assert.Equal(t, "text/plain", upload["mimeType"])

	rec, env = call(t, a, http.MethodGet, fmt.Sprintf("/api/v1/uploads/%s/link", uploadID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	link := decode(t, env.Data)["url"].(string)

	rec = httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, link, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "our final report", rec.Body.String())

	rec = httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/download?token=forged", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, a, http.MethodDelete, "/api/v1/uploads/"+uploadID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = call(t, a, http.MethodGet, "/api/v1/uploads/"+uploadID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportsAndRootRoutes(t *testing.T) {
	a := newTestApp(t)
	_, err := a.SeedDemo(context.Background(), zap.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/students?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Noor de Vries")

	rec, env := call(t, a, http.MethodGet, "/api/v1/students?limit=5&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var students []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &students))
	assert.Len(t, students, 3)

	rec, _ = call(t, a, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = call(t, a, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, a, http.MethodGet, "/api/v1/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)

	rec = httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	seeded, err := a.SeedDemo(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, seeded)
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	}))
	return files
}

func TestDeletingSubmissionRemovesStoredFiles(t *testing.T) {
	dir := t.TempDir()
	a := newTestAppWithStorage(t, dir)

	_, env := call(t, a, http.MethodPost, "/api/v1/groups", map[string]interface{}{"name": "Tidal"})
	groupID := decode(t, env.Data)["id"].(string)
	_, env = call(t, a, http.MethodPost, "/api/v1/assignments", map[string]interface{}{"title": "Poster", "dueDate": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)})
	assignmentID := decode(t, env.Data)["id"].(string)
	_, env = call(t, a, http.MethodPost, "/api/v1/submissions", map[string]interface{}{"assignmentId": assignmentID, "groupId": groupID})
	submissionID := decode(t, env.Data)["id"].(string)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("submissionId", submissionID))
	part, err := writer.CreateFormFile("file", "poster.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("draft poster"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	a.Engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, storedFiles(t, dir), 1)

	rec, _ = call(t, a, http.MethodDelete, "/api/v1/submissions/"+submissionID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = call(t, a, http.MethodGet, "/api/v1/uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
	assert.Empty(t, storedFiles(t, dir))
}

func TestGroupLeaderboardKeepsCreationOrderOnTies(t *testing.T) {
	a := newTestApp(t)
	for _, name := range []string{"Zeta", "Alpha", "Mira"} {
		rec, _ := call(t, a, http.MethodPost, "/api/v1/groups", map[string]interface{}{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec, env := call(t, a, http.MethodGet, "/api/v1/leaderboard/groups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var board struct {
		Entries []struct {
			Rank  int `json:"rank"`
			Group struct {
				Name string `json:"name"`
			} `json:"group"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Entries, 3)
	for i, name := range []string{"Zeta", "Alpha", "Mira"} {
		assert.Equal(t, i+1, board.Entries[i].Rank)
		assert.Equal(t, name, board.Entries[i].Group.Name)
	}
}
