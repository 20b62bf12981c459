package controller

import (
	"errors"
	"exam_eval_backend/internal/service"
	"exam_eval_backend/internal/util"
	"fmt"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

func isValidationErr(err error) bool {
	return errors.Is(err, util.ErrNoFilesUploaded) ||
		errors.Is(err, util.ErrFileTooLarge) ||
		errors.Is(err, util.ErrInvalidFileType)
}

type UploadAnswerRequest struct {
	ExamName        string `form:"exam_name" binding:"required"`
	Subject         string `form:"subject" binding:"required"`
	RollNumber      string `form:"roll_number" binding:"required"`
	Notes           string `form:"notes"`
	AnswerSheetType string `form:"answer_sheet_type"`
}

// UploadAnswer godoc
// @Summary Upload an answer sheet
// @Description Student uploads 1..N scanned pages for one exam attempt
// @Tags submissions
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   files formData file true "Answer sheet pages (images or PDFs)"
// @Param   exam_name formData string true "Exam name"
// @Param   subject formData string true "Subject"
// @Param   roll_number formData string true "Roll number"
// @Param   notes formData string false "Notes for the evaluator"
// @Param   answer_sheet_type formData string false "descriptive or omr"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/upload-answer [post]
func (c *SubmissionController) UploadAnswer(ctx *gin.Context) {
	var req UploadAnswerRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		util.BadRequest(ctx, "multipart form is required")
		return
	}
	files := form.File["files"]

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx, "missing token")
		return
	}

	in := service.CreateSubmissionInput{
		StudentEmail:    claims.Email,
		ExamName:        req.ExamName,
		Subject:         req.Subject,
		RollNumber:      req.RollNumber,
		AnswerSheetType: req.AnswerSheetType,
		Notes:           req.Notes,
	}

	sub, err := c.SubmissionService.CreateSubmission(ctx.Request.Context(), in, files)
	if err != nil {
		if isValidationErr(err) {
			util.BadRequest(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"message":       fmt.Sprintf("%d file(s) uploaded successfully", len(sub.FileURLs)),
		"submission_id": sub.ID,
	})
}

// ListAll godoc
// @Summary List all submissions
// @Description Teacher view of every submission, newest first
// @Tags submissions
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/student-submissions [get]
func (c *SubmissionController) ListAll(ctx *gin.Context) {
	subs, err := c.SubmissionService.ListAll()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"submissions": subs})
}

// ListMine godoc
// @Summary List the calling student's submissions
// @Description Filtered by the authenticated student's email, newest first
// @Tags submissions
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/get-student-submissions [get]
func (c *SubmissionController) ListMine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx, "missing token")
		return
	}

	subs, err := c.SubmissionService.ListByStudent(claims.Email)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"submissions": subs})
}

// ListPending godoc
// @Summary List pending submissions
// @Description The teacher evaluation queue, newest first
// @Tags submissions
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/pending-answers [get]
func (c *SubmissionController) ListPending(ctx *gin.Context) {
	subs, err := c.SubmissionService.ListPending()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"pending": subs})
}

// Evaluate godoc
// @Summary Run AI evaluation of a submission
// @Description Scores one pending submission against its matching answer key.
// @Description A missing key or a failed AI call leaves the submission pending
// @Description and retryable.
// @Tags submissions
// @Produce  json
// @Security ApiKeyAuth
// @Param   ref path string true "Submission id or roll number"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/ai-evaluate/{ref} [post]
func (c *SubmissionController) Evaluate(ctx *gin.Context) {
	ref := ctx.Param("ref")

	sub, err := c.SubmissionService.EvaluateByRef(ctx.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSubmissionNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrAlreadyEvaluated):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrNoMatchingKey):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrEvaluationService):
			util.BadGateway(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"message":        fmt.Sprintf("Evaluation complete for submission %d", sub.ID),
		"marks_obtained": *sub.MarksObtained,
		"total_marks":    *sub.TotalMarks,
		"feedback":       *sub.Feedback,
	})
}
