package service

import (
	"bytes"
	"encoding/json"
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/repository"
	"exam_eval_backend/pkg/database"
	"exam_eval_backend/pkg/logger"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type testEnv struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Store      *config.Store
	Users      *repository.UserRepository
	Keys       *repository.AnswerKeyRepository
	Subs       *repository.SubmissionRepository
	Storage    *StorageService
	AI         *AIService
	Submission *SubmissionService
	AnswerKey  *AnswerKeyService
	Dashboard  *DashboardService
	Auth       *AuthService
}

// newTestEnv wires the full service stack over an in-memory database, local
// disk storage and the given AI endpoint.
func newTestEnv(t *testing.T, aiURL string) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{}
	cfg.Storage = config.StorageConfig{
		Type:          "local",
		LocalPath:     t.TempDir(),
		MaxFileSizeMB: 10,
	}
	cfg.AI = config.AIConfig{
		BaseURL:        aiURL,
		APIKey:         "test-key",
		Model:          "test-model",
		TimeoutSeconds: 5,
	}
	cfg.JWT = config.JWTConfig{
		Secret:     "test-secret",
		ExpireTime: time.Hour,
	}

	store := config.NewStore(cfg)
	env := &testEnv{
		DB:      db,
		Cfg:     cfg,
		Store:   store,
		Users:   repository.NewUserRepository(db),
		Keys:    repository.NewAnswerKeyRepository(db),
		Subs:    repository.NewSubmissionRepository(db),
		Storage: NewStorageService(cfg),
	}
	env.AI = NewAIService(cfg.AI, env.Storage)
	env.Submission = NewSubmissionService(env.Subs, env.Keys, env.Storage, env.AI, store)
	env.AnswerKey = NewAnswerKeyService(env.Keys, env.Storage, store)
	env.Dashboard = NewDashboardService(env.Subs, env.Keys)
	env.Auth = NewAuthService(env.Users, store)
	return env
}

// aiVerdict serves a chat completion whose message content is the JSON verdict.
func aiVerdict(marks float64, feedback string) http.HandlerFunc {
	return aiContent(fmt.Sprintf(`{"marks_obtained": %g, "feedback": %q}`, marks, feedback))
}

func aiContent(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{
					"message": map[string]interface{}{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// makeFiles builds real multipart file headers the way gin hands them to
// controllers.
func makeFiles(t *testing.T, content []byte, names ...string) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(64<<20))
	return req.MultipartForm.File["files"]
}
