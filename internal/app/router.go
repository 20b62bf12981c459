package app

import (
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/middleware"
	"exam_eval_backend/internal/model"
	"exam_eval_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, store *config.Store) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// Public routes
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/signup", c.auth.Signup)
		public.POST("/login", c.auth.Login)
	}

	// Authenticated routes; identity and role always come from the token
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(store))
	{
		authGroup.GET("/get-exams", c.answerKey.GetExams)
		authGroup.GET("/dashboard-stats", c.dashboard.Stats)

		student := authGroup.Group("/")
		student.Use(middleware.RoleMiddleware(model.Student))
		{
			student.POST("/upload-answer", c.submission.UploadAnswer)
			student.GET("/get-student-submissions", c.submission.ListMine)
		}

		teacher := authGroup.Group("/")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("/upload-key", c.answerKey.UploadKey)
			teacher.GET("/student-submissions", c.submission.ListAll)
			teacher.GET("/pending-answers", c.submission.ListPending)
			teacher.POST("/ai-evaluate/:ref", c.submission.Evaluate)
		}
	}
}
