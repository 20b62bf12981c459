package service

import (
	"context"
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/repository"
	"exam_eval_backend/internal/util"
	"exam_eval_backend/pkg/monitoring"
	"mime/multipart"
	"path"
)

type AnswerKeyService struct {
	KeyRepo *repository.AnswerKeyRepository
	Storage *StorageService
	Cfg     *config.Store
}

func NewAnswerKeyService(keyRepo *repository.AnswerKeyRepository, storage *StorageService, cfg *config.Store) *AnswerKeyService {
	return &AnswerKeyService{
		KeyRepo: keyRepo,
		Storage: storage,
		Cfg:     cfg,
	}
}

type UploadKeyInput struct {
	ExamName     string
	Subject      string
	TotalMarks   int
	KeyType      model.KeyType
	TeacherEmail string
}

// UploadKey stores the key document under keys/ and persists its record.
func (s *AnswerKeyService) UploadKey(ctx context.Context, in UploadKeyInput, file *multipart.FileHeader) (*model.AnswerKey, error) {
	if file == nil {
		return nil, util.ErrNoFilesUploaded
	}
	if file.Size <= 0 || file.Size > s.Cfg.Load().Storage.MaxFileSizeBytes() {
		return nil, util.ErrFileTooLarge
	}
	if !util.AllowedFile(file.Filename) {
		return nil, util.ErrInvalidFileType
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	stored := util.StoredName(file.Filename)
	url, err := s.Storage.Upload(ctx, path.Join("keys", stored), src, file.Size, util.ContentTypeByExt(file.Filename))
	if err != nil {
		return nil, err
	}

	key := &model.AnswerKey{
		ExamName:     in.ExamName,
		Subject:      in.Subject,
		TotalMarks:   in.TotalMarks,
		KeyType:      in.KeyType,
		Filename:     stored,
		FileURL:      url,
		TeacherEmail: in.TeacherEmail,
	}
	if err := s.KeyRepo.Create(key); err != nil {
		return nil, err
	}

	monitoring.UploadCounter.WithLabelValues("answer_key").Inc()
	return key, nil
}

func (s *AnswerKeyService) ListExams() ([]model.ExamInfo, error) {
	return s.KeyRepo.DistinctExams()
}
