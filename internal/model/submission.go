package model

import "time"

type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusEvaluated SubmissionStatus = "evaluated"
	// StatusFailed is reserved for a future hard-failure policy; every failure
	// path today leaves the submission pending so it can be retried.
	StatusFailed SubmissionStatus = "failed"
)

type SheetType string

const (
	SheetDescriptive SheetType = "descriptive"
	SheetOMR         SheetType = "omr"
)

// Submission is one student's uploaded answer-sheet pages for one exam attempt.
//
// Status starts at pending and moves at most once to a terminal state; it never
// reverts. MarksObtained and Feedback are set if and only if Status is evaluated,
// and MarksObtained always lies in [0, TotalMarks].
type Submission struct {
	BaseModel
	StudentEmail    string           `gorm:"size:100;not null;index" json:"student"`
	ExamName        string           `gorm:"size:200;not null" json:"exam_name"`
	Subject         string           `gorm:"size:100;not null" json:"subject"`
	RollNumber      string           `gorm:"size:50;not null;index" json:"roll_number"`
	AnswerSheetType SheetType        `gorm:"type:varchar(20);not null" json:"answer_sheet_type"`
	Notes           string           `gorm:"type:text" json:"notes"`
	FileURLs        []string         `gorm:"serializer:json;not null" json:"file_urls"`
	Status          SubmissionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	MarksObtained   *int             `json:"marks_obtained"`
	TotalMarks      *int             `json:"total_marks"`
	Feedback        *string          `gorm:"type:text" json:"feedback"`
	EvaluatedAt     *time.Time       `json:"evaluated_at"`
}

func (Submission) TableName() string {
	return "submissions"
}
