package service

import (
	"context"
	"errors"
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/repository"
	"exam_eval_backend/internal/util"
	"exam_eval_backend/pkg/logger"
	"exam_eval_backend/pkg/monitoring"
	"fmt"
	"math"
	"mime/multipart"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionService owns the submission lifecycle: creation with file intake,
// listing, and the single pending→evaluated transition. Every failure on the
// evaluation path leaves the submission pending so it can be retried; nothing
// ever moves a submission back to pending once evaluated.
type SubmissionService struct {
	SubRepo *repository.SubmissionRepository
	KeyRepo *repository.AnswerKeyRepository
	Storage *StorageService
	AI      *AIService
	Cfg     *config.Store
}

func NewSubmissionService(
	subRepo *repository.SubmissionRepository,
	keyRepo *repository.AnswerKeyRepository,
	storage *StorageService,
	ai *AIService,
	cfg *config.Store,
) *SubmissionService {
	return &SubmissionService{
		SubRepo: subRepo,
		KeyRepo: keyRepo,
		Storage: storage,
		AI:      ai,
		Cfg:     cfg,
	}
}

type CreateSubmissionInput struct {
	StudentEmail    string
	ExamName        string
	Subject         string
	RollNumber      string
	AnswerSheetType string
	Notes           string
}

// CreateSubmission validates and stores each uploaded page, then persists the
// submission with status pending. No evaluation is triggered here.
func (s *SubmissionService) CreateSubmission(ctx context.Context, in CreateSubmissionInput, files []*multipart.FileHeader) (*model.Submission, error) {
	if len(files) == 0 {
		return nil, util.ErrNoFilesUploaded
	}

	sheetType := model.SheetDescriptive
	if in.AnswerSheetType == string(model.SheetOMR) {
		sheetType = model.SheetOMR
	}

	maxSize := s.Cfg.Load().Storage.MaxFileSizeBytes()
	for _, file := range files {
		if file.Size <= 0 || file.Size > maxSize {
			return nil, util.ErrFileTooLarge
		}
		if !util.AllowedFile(file.Filename) {
			return nil, util.ErrInvalidFileType
		}
	}

	fileURLs := make([]string, 0, len(files))
	for _, file := range files {
		src, err := file.Open()
		if err != nil {
			return nil, err
		}

		stored := path.Join("answers", string(sheetType), util.StoredName(file.Filename))
		url, err := s.Storage.Upload(ctx, stored, src, file.Size, util.ContentTypeByExt(file.Filename))
		src.Close()
		if err != nil {
			return nil, err
		}
		fileURLs = append(fileURLs, url)
	}

	sub := &model.Submission{
		StudentEmail:    in.StudentEmail,
		ExamName:        in.ExamName,
		Subject:         in.Subject,
		RollNumber:      in.RollNumber,
		AnswerSheetType: sheetType,
		Notes:           in.Notes,
		FileURLs:        fileURLs,
		Status:          model.StatusPending,
	}
	if err := s.SubRepo.Create(sub); err != nil {
		return nil, err
	}

	monitoring.UploadCounter.WithLabelValues("answer_sheet").Inc()
	return sub, nil
}

func (s *SubmissionService) ListAll() ([]model.Submission, error) {
	return s.SubRepo.FindAll()
}

func (s *SubmissionService) ListByStudent(email string) ([]model.Submission, error) {
	return s.SubRepo.FindByStudent(email)
}

func (s *SubmissionService) ListPending() ([]model.Submission, error) {
	return s.SubRepo.FindPending()
}

// EvaluateByRef resolves an evaluation target: a numeric ref is a submission
// id, anything else is a roll number whose newest pending submission is taken.
func (s *SubmissionService) EvaluateByRef(ctx context.Context, ref string) (*model.Submission, error) {
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return s.Evaluate(ctx, uint(id))
	}

	sub, err := s.SubRepo.FindLatestPendingByRoll(ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}
	return s.Evaluate(ctx, sub.ID)
}

// Evaluate runs the at-most-once evaluation of a pending submission.
//
// A missing key or a failed AI call leaves the submission pending and
// retryable; only a successful verdict performs the conditional
// pending→evaluated update, and exactly one of two concurrent callers can win
// that update.
func (s *SubmissionService) Evaluate(ctx context.Context, id uint) (*model.Submission, error) {
	sub, err := s.SubRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSubmissionNotFound
		}
		return nil, err
	}

	if sub.Status != model.StatusPending {
		monitoring.EvaluationCounter.WithLabelValues("already_evaluated").Inc()
		return nil, util.ErrAlreadyEvaluated
	}

	key, err := s.KeyRepo.FindByExam(sub.ExamName, sub.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			monitoring.EvaluationCounter.WithLabelValues("no_key").Inc()
			return nil, util.ErrNoMatchingKey
		}
		return nil, err
	}

	// No submission lock is held across this call; the conditional update
	// below is the only guard on the state transition.
	verdict, err := s.AI.EvaluateAnswerSheet(ctx, key, sub)
	if err != nil {
		logger.Log.Warn("AI evaluation failed",
			zap.Uint("submission_id", sub.ID),
			zap.String("exam", sub.ExamName),
			zap.Error(err),
		)
		monitoring.EvaluationCounter.WithLabelValues("service_error").Inc()
		return nil, fmt.Errorf("%w: %v", util.ErrEvaluationService, err)
	}

	marks := clampMarks(verdict.MarksObtained, key.TotalMarks)
	now := time.Now()

	ok, err := s.SubRepo.MarkEvaluated(sub.ID, marks, key.TotalMarks, verdict.Feedback, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the transition race; the winner's marks stand.
		monitoring.EvaluationCounter.WithLabelValues("already_evaluated").Inc()
		return nil, util.ErrAlreadyEvaluated
	}

	monitoring.EvaluationCounter.WithLabelValues("evaluated").Inc()

	sub.Status = model.StatusEvaluated
	sub.MarksObtained = &marks
	sub.TotalMarks = &key.TotalMarks
	sub.Feedback = &verdict.Feedback
	sub.EvaluatedAt = &now
	return sub, nil
}

// clampMarks forces an out-of-range model verdict back into [0, total].
func clampMarks(v float64, total int) int {
	marks := int(math.Round(v))
	if marks < 0 {
		return 0
	}
	if marks > total {
		return total
	}
	return marks
}
