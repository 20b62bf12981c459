package repository

import (
	"exam_eval_backend/internal/model"
	"strings"
	"time"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(sub *model.Submission) error {
	return r.DB.Create(sub).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.First(&sub, id).Error
	return &sub, err
}

// FindAll returns every submission, newest first. The id tiebreak keeps the
// order stable when timestamps are coarse.
func (r *SubmissionRepository) FindAll() ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Order("created_at DESC, id DESC").Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) FindByStudent(email string) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("student_email = ?", strings.ToLower(email)).
		Order("created_at DESC, id DESC").
		Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) FindPending() ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("status = ?", model.StatusPending).
		Order("created_at DESC, id DESC").
		Find(&subs).Error
	return subs, err
}

// FindLatestPendingByRoll resolves a roll number to its newest pending
// submission. Roll numbers are not unique across exams.
func (r *SubmissionRepository) FindLatestPendingByRoll(rollNumber string) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.Where("roll_number = ? AND status = ?", rollNumber, model.StatusPending).
		Order("created_at DESC, id DESC").
		First(&sub).Error
	return &sub, err
}

// MarkEvaluated performs the pending→evaluated transition as a conditional
// update. It returns false when the submission was no longer pending, so two
// concurrent evaluations of the same id cannot both succeed.
func (r *SubmissionRepository) MarkEvaluated(id uint, marks, totalMarks int, feedback string, when time.Time) (bool, error) {
	res := r.DB.Model(&model.Submission{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":         model.StatusEvaluated,
			"marks_obtained": marks,
			"total_marks":    totalMarks,
			"feedback":       feedback,
			"evaluated_at":   when,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *SubmissionRepository) Count() (int64, error) {
	var n int64
	err := r.DB.Model(&model.Submission{}).Count(&n).Error
	return n, err
}

func (r *SubmissionRepository) CountByStatus(status model.SubmissionStatus) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Submission{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *SubmissionRepository) CountByStudent(email string) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Submission{}).
		Where("student_email = ?", strings.ToLower(email)).
		Count(&n).Error
	return n, err
}

func (r *SubmissionRepository) CountByStudentAndStatus(email string, status model.SubmissionStatus) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Submission{}).
		Where("student_email = ? AND status = ?", strings.ToLower(email), status).
		Count(&n).Error
	return n, err
}

// EvaluatedTotals sums marks over the student's evaluated submissions for the
// average-percentage computation.
func (r *SubmissionRepository) EvaluatedTotals(email string) (marks int64, total int64, err error) {
	row := r.DB.Model(&model.Submission{}).
		Select("COALESCE(SUM(marks_obtained), 0), COALESCE(SUM(total_marks), 0)").
		Where("student_email = ? AND status = ?", strings.ToLower(email), model.StatusEvaluated).
		Row()
	err = row.Scan(&marks, &total)
	return marks, total, err
}
