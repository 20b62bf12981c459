package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
)

type User struct {
	BaseModel
	FullName string   `gorm:"size:100;not null" json:"fullname"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"` // stored lowercase
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"type:varchar(20);not null" json:"role"`
}

func (User) TableName() string {
	return "users"
}
