package model

import "time"

// RecurringSlot 周期时段表 — 对应 recurring_slots
//
// weekly_hours 为冗余列，每次创建 / 更新时由起止时间重新计算，不接受外部输入。
type RecurringSlot struct {
	SlotID            string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	Kind              string    `gorm:"type:varchar(20);not null"                      json:"kind"` // CLASS | SUPPORT | RESERVATION
	Weekday           int       `gorm:"type:smallint;not null"                         json:"weekday"` // 1-6
	StartTime         string    `gorm:"type:time;not null"                             json:"start_time"`
	EndTime           string    `gorm:"type:time;not null"                             json:"end_time"`
	ValidFrom         time.Time `gorm:"type:date;not null"                             json:"valid_from"`
	ValidTo           time.Time `gorm:"type:date;not null"                             json:"valid_to"`
	WeeklyHours       float64   `gorm:"type:numeric(5,2);not null"                     json:"weekly_hours"`
	IsActive          bool      `gorm:"not null;default:true"                          json:"is_active"`
	InstructorID      string    `gorm:"type:uuid;not null"                             json:"instructor_id"`
	CohortID          *string   `gorm:"type:uuid"                                      json:"cohort_id,omitempty"`
	CompetencyID      *string   `gorm:"type:uuid"                                      json:"competency_id,omitempty"`
	LearningOutcomeID *string   `gorm:"type:uuid"                                      json:"learning_outcome_id,omitempty"`
	RoomID            *string   `gorm:"type:uuid"                                      json:"room_id,omitempty"`
	Topic             string    `gorm:"type:varchar(200)"                              json:"topic,omitempty"`
	SupportType       string    `gorm:"type:varchar(100)"                              json:"support_type,omitempty"`
	Reason            string    `gorm:"type:varchar(200)"                              json:"reason,omitempty"`
	Notes             string    `gorm:"type:text"                                      json:"notes,omitempty"`
	VersionedModel

	// 关联
	Instructor *Instructor `gorm:"foreignKey:InstructorID;references:InstructorID" json:"instructor,omitempty"`
	Cohort     *Cohort     `gorm:"foreignKey:CohortID;references:CohortID"         json:"cohort,omitempty"`
	Room       *Room       `gorm:"foreignKey:RoomID;references:RoomID"             json:"room,omitempty"`
}

// TableName 指定表名
func (RecurringSlot) TableName() string { return "recurring_slots" }
