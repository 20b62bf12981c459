package controller

import (
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/service"
	"exam_eval_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Teachers get platform-wide counts; students get their own
// @Description counts and average percentage score
// @Tags dashboard
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/dashboard-stats [get]
func (c *DashboardController) Stats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx, "missing token")
		return
	}

	if claims.Role == model.Teacher {
		stats, err := c.DashboardService.TeacherStats()
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		util.Success(ctx, gin.H{
			"total_exams":       stats.TotalExams,
			"total_submissions": stats.TotalSubmissions,
			"evaluated":         stats.Evaluated,
			"pending":           stats.Pending,
		})
		return
	}

	stats, err := c.DashboardService.StudentStats(claims.Email)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"total_submissions": stats.TotalSubmissions,
		"evaluated":         stats.Evaluated,
		"pending":           stats.Pending,
		"average_score":     stats.AverageScore,
	})
}
