package controller

import (
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/service"
	"exam_eval_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnswerKeyController struct {
	KeyService *service.AnswerKeyService
}

func NewAnswerKeyController(keyService *service.AnswerKeyService) *AnswerKeyController {
	return &AnswerKeyController{KeyService: keyService}
}

type UploadKeyRequest struct {
	ExamName   string `form:"exam_name" binding:"required"`
	Subject    string `form:"subject" binding:"required"`
	TotalMarks int    `form:"total_marks" binding:"required,gt=0"`
	KeyType    string `form:"key_type" binding:"required,oneof=descriptive mcq"`
}

// UploadKey godoc
// @Summary Upload an answer key
// @Description Teacher uploads the reference document for one exam/subject pair
// @Tags keys
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "Key document (image or PDF)"
// @Param   exam_name formData string true "Exam name"
// @Param   subject formData string true "Subject"
// @Param   total_marks formData int true "Total marks"
// @Param   key_type formData string true "Key type" Enums(descriptive, mcq)
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/upload-key [post]
func (c *AnswerKeyController) UploadKey(ctx *gin.Context) {
	var req UploadKeyRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx, "missing token")
		return
	}

	in := service.UploadKeyInput{
		ExamName:     req.ExamName,
		Subject:      req.Subject,
		TotalMarks:   req.TotalMarks,
		KeyType:      model.KeyType(req.KeyType),
		TeacherEmail: claims.Email,
	}

	if _, err := c.KeyService.UploadKey(ctx.Request.Context(), in, file); err != nil {
		switch {
		case isValidationErr(err):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"message": "Answer key and exam details uploaded successfully"})
}

// GetExams godoc
// @Summary List available exams
// @Description Distinct exam/subject pairs derived from uploaded answer keys
// @Tags keys
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/get-exams [get]
func (c *AnswerKeyController) GetExams(ctx *gin.Context) {
	exams, err := c.KeyService.ListExams()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"exams": exams})
}
