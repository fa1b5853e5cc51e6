package model

import "time"

// Cohort 班级表 — 对应 cohorts，班级编号为自然键
type Cohort struct {
	CohortID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"cohort_id"`
	Number    string    `gorm:"type:varchar(20);not null;uniqueIndex"           json:"number"`
	ProgramID string    `gorm:"type:uuid;not null"                             json:"program_id"`
	StartDate time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null"                             json:"end_date"`
	IsActive  bool      `gorm:"not null;default:true"                          json:"is_active"`
	SoftDeleteModel

	// 关联
	Program *Program `gorm:"foreignKey:ProgramID;references:ProgramID" json:"program,omitempty"`
}

// TableName 指定表名
func (Cohort) TableName() string { return "cohorts" }
