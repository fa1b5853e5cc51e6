package model

// Program 培养专业表 — 对应 programs
type Program struct {
	ProgramID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"program_id"`
	Code      string `gorm:"type:varchar(30);not null;uniqueIndex"           json:"code"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Program) TableName() string { return "programs" }

// Competency 能力项表 — 对应 competencies，(program_id, code) 唯一
type Competency struct {
	CompetencyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"competency_id"`
	ProgramID    string `gorm:"type:uuid;not null"                             json:"program_id"`
	Code         string `gorm:"type:varchar(30);not null"                      json:"code"`
	Name         string `gorm:"type:varchar(300);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Competency) TableName() string { return "competencies" }

// LearningOutcome 学习成果表 — 对应 learning_outcomes，(competency_id, ordinal) 唯一
type LearningOutcome struct {
	LearningOutcomeID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"learning_outcome_id"`
	CompetencyID      string `gorm:"type:uuid;not null"                             json:"competency_id"`
	Ordinal           int    `gorm:"type:smallint;not null"                         json:"ordinal"` // 从 1 开始
	Description       string `gorm:"type:text;not null"                             json:"description"`
	BaseModel
}

// TableName 指定表名
func (LearningOutcome) TableName() string { return "learning_outcomes" }
