package repository

import (
	"exam_eval_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerKeyRepository struct {
	DB *gorm.DB
}

func NewAnswerKeyRepository(db *gorm.DB) *AnswerKeyRepository {
	return &AnswerKeyRepository{DB: db}
}

func (r *AnswerKeyRepository) Create(key *model.AnswerKey) error {
	return r.DB.Create(key).Error
}

// FindByExam resolves the key matching (exam, subject); when more than one
// exists the newest upload wins.
func (r *AnswerKeyRepository) FindByExam(examName, subject string) (*model.AnswerKey, error) {
	var key model.AnswerKey
	err := r.DB.Where("exam_name = ? AND subject = ?", examName, subject).
		Order("created_at DESC, id DESC").
		First(&key).Error
	return &key, err
}

func (r *AnswerKeyRepository) DistinctExams() ([]model.ExamInfo, error) {
	var exams []model.ExamInfo
	err := r.DB.Model(&model.AnswerKey{}).
		Distinct("exam_name", "subject").
		Order("exam_name").
		Scan(&exams).Error
	return exams, err
}
