package model

// Instructor 讲师表 — 对应 instructors，证件号为自然键
type Instructor struct {
	InstructorID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"instructor_id"`
	Document     string `gorm:"type:varchar(20);not null;uniqueIndex"           json:"document"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Instructor) TableName() string { return "instructors" }
