package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"exam_eval_backend/internal/config"
	"exam_eval_backend/pkg/database"
	"exam_eval_backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// newTestApp assembles the router over an in-memory database, local storage
// and a fake AI endpoint, without the metrics and rate-limit middlewares.
func newTestApp(t *testing.T, aiURL string) *App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}
	cfg.Storage = config.StorageConfig{Type: "local", LocalPath: t.TempDir(), MaxFileSizeMB: 10}
	cfg.AI = config.AIConfig{BaseURL: aiURL, APIKey: "test-key", Model: "test-model", TimeoutSeconds: 5}
	cfg.Frontend = config.FrontendConfig{BaseURL: "http://localhost:3000"}

	router := gin.New()
	app := &App{Config: config.NewStore(cfg), Router: router, DB: db}

	repos := app.initRepositories(db)
	services := app.initServices(repos, app.Config)
	controllers := app.initControllers(services, db)
	app.registerRoutes(router, controllers, app.Config)

	return app
}

func fakeAI(marks float64, feedback string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": fmt.Sprintf(`{"marks_obtained": %g, "feedback": %q}`, marks, feedback),
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func doJSON(t *testing.T, app *App, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, app *App, path, token string, fields map[string]string, fileField string, fileNames []string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, name := range fileNames {
		fw, err := w.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("scanned page bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func signupAndLogin(t *testing.T, app *App, name, email, role string) string {
	t.Helper()

	w := doJSON(t, app, http.MethodPost, "/api/signup", "", gin.H{
		"fullname": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSubmissionLifecycleOverHTTP(t *testing.T) {
	ai := fakeAI(80, "well structured answers")
	defer ai.Close()
	app := newTestApp(t, ai.URL)

	teacher := signupAndLogin(t, app, "Teacher One", "teacher@example.com", "teacher")
	student := signupAndLogin(t, app, "Student One", "student@example.com", "student")

	// Student submits two scanned pages.
	w := doMultipart(t, app, "/api/upload-answer", student, map[string]string{
		"exam_name":         "Math Final",
		"subject":           "Mathematics",
		"roll_number":       "R-101",
		"answer_sheet_type": "descriptive",
		"notes":             "wrote in blue ink",
	}, "files", []string{"page1.jpg", "page2.jpg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "2 file(s) uploaded successfully", body["message"])
	subID := fmt.Sprintf("%v", body["submission_id"])

	// It shows up in the teacher's pending queue.
	w = doJSON(t, app, http.MethodGet, "/api/pending-answers", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending, _ := decodeBody(t, w)["pending"].([]interface{})
	require.Len(t, pending, 1)

	// Evaluation before any key is uploaded fails and stays retryable.
	w = doJSON(t, app, http.MethodPost, "/api/ai-evaluate/"+subID, teacher, nil)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Contains(t, decodeBody(t, w)["error"], "answer key")

	w = doMultipart(t, app, "/api/upload-key", teacher, map[string]string{
		"exam_name":   "Math Final",
		"subject":     "Mathematics",
		"total_marks": "100",
		"key_type":    "descriptive",
	}, "file", []string{"key.pdf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Retry now succeeds.
	w = doJSON(t, app, http.MethodPost, "/api/ai-evaluate/"+subID, teacher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, 80.0, body["marks_obtained"])
	assert.Equal(t, 100.0, body["total_marks"])
	assert.Equal(t, "well structured answers", body["feedback"])

	// A second evaluation of the same submission is refused.
	w = doJSON(t, app, http.MethodPost, "/api/ai-evaluate/"+subID, teacher, nil)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// The student sees the evaluated result.
	w = doJSON(t, app, http.MethodGet, "/api/get-student-submissions", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	subs, _ := decodeBody(t, w)["submissions"].([]interface{})
	require.Len(t, subs, 1)
	sub := subs[0].(map[string]interface{})
	assert.Equal(t, "evaluated", sub["status"])
	assert.Equal(t, 80.0, sub["marks_obtained"])

	// Dashboard shapes for both roles.
	w = doJSON(t, app, http.MethodGet, "/api/dashboard-stats", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, 1.0, body["total_exams"])
	assert.Equal(t, 1.0, body["total_submissions"])
	assert.Equal(t, 1.0, body["evaluated"])
	assert.Equal(t, 0.0, body["pending"])

	w = doJSON(t, app, http.MethodGet, "/api/dashboard-stats", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, 80.0, body["average_score"])

	// The exam list is derived from uploaded keys.
	w = doJSON(t, app, http.MethodGet, "/api/get-exams", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	exams, _ := decodeBody(t, w)["exams"].([]interface{})
	require.Len(t, exams, 1)
}

func TestSignupValidationAndDuplicates(t *testing.T) {
	app := newTestApp(t, "http://unused")

	w := doJSON(t, app, http.MethodPost, "/api/signup", "", gin.H{
		"fullname": "Student One", "email": "student@example.com", "password": "secret123", "role": "student",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Same address again, different case.
	w = doJSON(t, app, http.MethodPost, "/api/signup", "", gin.H{
		"fullname": "Student Two", "email": "Student@Example.com", "password": "secret123", "role": "student",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["error"])

	// Short password and bogus role are rejected by binding.
	w = doJSON(t, app, http.MethodPost, "/api/signup", "", gin.H{
		"fullname": "Student Three", "email": "three@example.com", "password": "short", "role": "student",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, app, http.MethodPost, "/api/signup", "", gin.H{
		"fullname": "Student Four", "email": "four@example.com", "password": "secret123", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginResponseAndFailures(t *testing.T) {
	app := newTestApp(t, "http://unused")

	token := signupAndLogin(t, app, "Teacher One", "teacher@example.com", "teacher")
	require.NotEmpty(t, token)

	w := doJSON(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email": "teacher@example.com", "password": "secret123", "role": "teacher",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Welcome, Teacher One", body["message"])
	assert.Equal(t, "Teacher One", body["name"])
	assert.Equal(t, "http://localhost:3000/teacher-dashboard.html", body["redirect"])

	// Wrong password and wrong role both come back as the same 401.
	w = doJSON(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email": "teacher@example.com", "password": "wrongpass", "role": "teacher",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email": "teacher@example.com", "password": "secret123", "role": "student",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAndRoleGuards(t *testing.T) {
	app := newTestApp(t, "http://unused")

	student := signupAndLogin(t, app, "Student One", "student@example.com", "student")
	teacher := signupAndLogin(t, app, "Teacher One", "teacher@example.com", "teacher")

	// No token at all.
	w := doJSON(t, app, http.MethodGet, "/api/pending-answers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token.
	w = doJSON(t, app, http.MethodGet, "/api/pending-answers", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Students cannot reach teacher routes and vice versa.
	w = doJSON(t, app, http.MethodGet, "/api/pending-answers", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, app, http.MethodGet, "/api/get-student-submissions", teacher, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The token also works as a query parameter, for browser file links.
	req := httptest.NewRequest(http.MethodGet, "/api/get-exams?token="+teacher, nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadAnswerRejectsBadFiles(t *testing.T) {
	app := newTestApp(t, "http://unused")
	student := signupAndLogin(t, app, "Student One", "student@example.com", "student")

	fields := map[string]string{
		"exam_name":   "Math Final",
		"subject":     "Mathematics",
		"roll_number": "R-101",
	}

	w := doMultipart(t, app, "/api/upload-answer", student, fields, "files", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doMultipart(t, app, "/api/upload-answer", student, fields, "files", []string{"notes.txt"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["error"])
}

func TestEvaluateByRollNumberAndUnknownRef(t *testing.T) {
	ai := fakeAI(45, "partially correct")
	defer ai.Close()
	app := newTestApp(t, ai.URL)

	teacher := signupAndLogin(t, app, "Teacher One", "teacher@example.com", "teacher")
	student := signupAndLogin(t, app, "Student One", "student@example.com", "student")

	w := doMultipart(t, app, "/api/upload-key", teacher, map[string]string{
		"exam_name":   "Math Final",
		"subject":     "Mathematics",
		"total_marks": "50",
		"key_type":    "descriptive",
	}, "file", []string{"key.pdf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doMultipart(t, app, "/api/upload-answer", student, map[string]string{
		"exam_name":   "Math Final",
		"subject":     "Mathematics",
		"roll_number": "R-205",
	}, "files", []string{"page1.jpg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A non-numeric ref resolves through the roll number.
	w = doJSON(t, app, http.MethodPost, "/api/ai-evaluate/R-205", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 45.0, decodeBody(t, w)["marks_obtained"])

	w = doJSON(t, app, http.MethodPost, "/api/ai-evaluate/R-999", teacher, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, app, http.MethodPost, "/api/ai-evaluate/424242", teacher, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvaluateUpstreamFailureReturnsBadGateway(t *testing.T) {
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer ai.Close()
	app := newTestApp(t, ai.URL)

	teacher := signupAndLogin(t, app, "Teacher One", "teacher@example.com", "teacher")
	student := signupAndLogin(t, app, "Student One", "student@example.com", "student")

	w := doMultipart(t, app, "/api/upload-key", teacher, map[string]string{
		"exam_name":   "Math Final",
		"subject":     "Mathematics",
		"total_marks": "100",
		"key_type":    "descriptive",
	}, "file", []string{"key.pdf"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doMultipart(t, app, "/api/upload-answer", student, map[string]string{
		"exam_name":   "Math Final",
		"subject":     "Mathematics",
		"roll_number": "R-101",
	}, "files", []string{"page1.jpg"})
	require.Equal(t, http.StatusOK, w.Code)
	subID := fmt.Sprintf("%v", decodeBody(t, w)["submission_id"])

	w = doJSON(t, app, http.MethodPost, "/api/ai-evaluate/"+subID, teacher, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	// The submission is still pending and retryable.
	w = doJSON(t, app, http.MethodGet, "/api/pending-answers", teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending, _ := decodeBody(t, w)["pending"].([]interface{})
	assert.Len(t, pending, 1)
}

func TestLoginStorageFailureIsNotUnauthorized(t *testing.T) {
	app := newTestApp(t, "http://unused")

	signupAndLogin(t, app, "Teacher One", "teacher@example.com", "teacher")

	sqlDB, err := app.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// A backend failure must not masquerade as bad credentials.
	w := doJSON(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email": "teacher@example.com", "password": "secret123", "role": "teacher",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
}

func TestConfigReloadDuringRequests(t *testing.T) {
	app := newTestApp(t, "http://unused")
	teacher := signupAndLogin(t, app, "Teacher One", "teacher@example.com", "teacher")

	base := app.Config.Load()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			// Fresh struct each swap, same values, so tokens stay valid while
			// the race detector watches the handoff.
			next := *base
			app.Reload(&next)
		}
	}()

	for i := 0; i < 50; i++ {
		w := doJSON(t, app, http.MethodGet, "/api/get-exams", teacher, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	<-done

	w := doJSON(t, app, http.MethodPost, "/api/login", "", gin.H{
		"email": "teacher@example.com", "password": "secret123", "role": "teacher",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, "http://unused")

	w := doJSON(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["app"])
	assert.Equal(t, "ok", body["database"])
}
