package service

import (
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/repository"
)

type DashboardService struct {
	SubRepo *repository.SubmissionRepository
	KeyRepo *repository.AnswerKeyRepository
}

func NewDashboardService(subRepo *repository.SubmissionRepository, keyRepo *repository.AnswerKeyRepository) *DashboardService {
	return &DashboardService{
		SubRepo: subRepo,
		KeyRepo: keyRepo,
	}
}

type TeacherStats struct {
	TotalExams       int64 `json:"total_exams"`
	TotalSubmissions int64 `json:"total_submissions"`
	Evaluated        int64 `json:"evaluated"`
	Pending          int64 `json:"pending"`
}

type StudentStats struct {
	TotalSubmissions int64   `json:"total_submissions"`
	Evaluated        int64   `json:"evaluated"`
	Pending          int64   `json:"pending"`
	AverageScore     float64 `json:"average_score"`
}

// TeacherStats aggregates counts across all keys and submissions. Exams are
// distinct (exam, subject) pairs, not key uploads.
func (s *DashboardService) TeacherStats() (*TeacherStats, error) {
	exams, err := s.KeyRepo.DistinctExams()
	if err != nil {
		return nil, err
	}

	total, err := s.SubRepo.Count()
	if err != nil {
		return nil, err
	}
	evaluated, err := s.SubRepo.CountByStatus(model.StatusEvaluated)
	if err != nil {
		return nil, err
	}
	pending, err := s.SubRepo.CountByStatus(model.StatusPending)
	if err != nil {
		return nil, err
	}

	return &TeacherStats{
		TotalExams:       int64(len(exams)),
		TotalSubmissions: total,
		Evaluated:        evaluated,
		Pending:          pending,
	}, nil
}

// StudentStats aggregates one student's submissions. The average score is the
// percentage over evaluated submissions only, and 0 when none are evaluated.
func (s *DashboardService) StudentStats(email string) (*StudentStats, error) {
	total, err := s.SubRepo.CountByStudent(email)
	if err != nil {
		return nil, err
	}
	evaluated, err := s.SubRepo.CountByStudentAndStatus(email, model.StatusEvaluated)
	if err != nil {
		return nil, err
	}
	pending, err := s.SubRepo.CountByStudentAndStatus(email, model.StatusPending)
	if err != nil {
		return nil, err
	}

	stats := &StudentStats{
		TotalSubmissions: total,
		Evaluated:        evaluated,
		Pending:          pending,
	}

	if evaluated > 0 {
		marks, totalMarks, err := s.SubRepo.EvaluatedTotals(email)
		if err != nil {
			return nil, err
		}
		if totalMarks > 0 {
			stats.AverageScore = float64(marks) / float64(totalMarks) * 100
		}
	}

	return stats, nil
}
