package app

import (
	"context"
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/controller"
	"exam_eval_backend/internal/repository"
	"exam_eval_backend/internal/service"
	"exam_eval_backend/pkg/database"
	"exam_eval_backend/pkg/logger"
	"exam_eval_backend/pkg/monitoring"
	"exam_eval_backend/pkg/security"
	"exam_eval_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Store
	Router *gin.Engine
	DB     *gorm.DB
}

type repositories struct {
	user       *repository.UserRepository
	answerKey  *repository.AnswerKeyRepository
	submission *repository.SubmissionRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	ai         *service.AIService
	answerKey  *service.AnswerKeyService
	submission *service.SubmissionService
	dashboard  *service.DashboardService
}

type controllers struct {
	auth       *controller.AuthController
	answerKey  *controller.AnswerKeyController
	submission *controller.SubmissionController
	dashboard  *controller.DashboardController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		answerKey:  repository.NewAnswerKeyRepository(db),
		submission: repository.NewSubmissionRepository(db),
	}
}

// initServices builds the service layer. Storage and AI take a startup
// snapshot of the config; the rest read live values through the store.
func (a *App) initServices(repos *repositories, store *config.Store) *services {
	s := &services{}
	cfg := store.Load()

	s.storage = service.NewStorageService(cfg)
	s.ai = service.NewAIService(cfg.AI, s.storage)
	s.auth = service.NewAuthService(repos.user, store)
	s.answerKey = service.NewAnswerKeyService(repos.answerKey, s.storage, store)
	s.submission = service.NewSubmissionService(repos.submission, repos.answerKey, s.storage, s.ai, store)
	s.dashboard = service.NewDashboardService(repos.submission, repos.answerKey)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, a.Config),
		answerKey:  controller.NewAnswerKeyController(s.answerKey),
		submission: controller.NewSubmissionController(s.submission),
		dashboard:  controller.NewDashboardController(s.dashboard),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	if cfg.AI.APIKey == "" {
		logger.Log.Warn("AI API key is not configured, evaluation endpoints will fail until it is set")
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: config.NewStore(cfg),
		DB:     db,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, app.Config)
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("exam-evaluator", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, app.Config)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// Reload publishes a freshly loaded config through the store's atomic swap.
// Handlers that Load per request pick up the new values; middlewares, storage
// and the AI client keep their startup settings.
func (a *App) Reload(newCfg *config.Config) {
	a.Config.Swap(newCfg)
	logger.Log.Info("Configuration reloaded")
}

func (a *App) Run() {
	cfg := a.Config.Load()
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
