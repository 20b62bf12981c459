package model

type KeyType string

const (
	KeyDescriptive KeyType = "descriptive"
	KeyMCQ         KeyType = "mcq"
)

// AnswerKey is the teacher-provided reference document for one exam/subject pair.
// Submissions are matched to a key by (ExamName, Subject) equality; when several
// keys exist for the same pair, the newest one wins.
type AnswerKey struct {
	BaseModel
	ExamName     string  `gorm:"size:200;not null;index:idx_keys_exam" json:"exam_name"`
	Subject      string  `gorm:"size:100;not null;index:idx_keys_exam" json:"subject"`
	TotalMarks   int     `gorm:"not null" json:"total_marks"`
	KeyType      KeyType `gorm:"type:varchar(20);not null" json:"key_type"`
	Filename     string  `gorm:"size:255;not null" json:"filename"`
	FileURL      string  `gorm:"size:500;not null" json:"file_url"`
	TeacherEmail string  `gorm:"size:100;not null" json:"teacher"`
}

func (AnswerKey) TableName() string {
	return "answer_keys"
}

// ExamInfo is one distinct (exam, subject) pair derived from uploaded keys.
type ExamInfo struct {
	ExamName string `json:"exam_name"`
	Subject  string `json:"subject"`
}
