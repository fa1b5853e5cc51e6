package dto

import (
	"phias/backend/internal/schedule"
)

// ── 周期时段模块 DTO ──

// CreateSlotRequest 创建时段请求
type CreateSlotRequest struct {
	Kind              string `json:"kind"                binding:"required,oneof=CLASS SUPPORT RESERVATION"`
	Weekday           int    `json:"weekday"             binding:"required,min=1,max=6"`
	StartTime         string `json:"start_time"          binding:"required"` // "08:00"
	EndTime           string `json:"end_time"            binding:"required"` // "10:00"
	ValidFrom         string `json:"valid_from"          binding:"required"` // "2026-01-05"
	ValidTo           string `json:"valid_to"            binding:"required"`
	CohortID          string `json:"cohort_id,omitempty"`
	CompetencyID      string `json:"competency_id,omitempty"`
	LearningOutcomeID string `json:"learning_outcome_id,omitempty"`
	InstructorID      string `json:"instructor_id"       binding:"required"`
	RoomID            string `json:"room_id,omitempty"`
	Topic             string `json:"topic,omitempty"     binding:"omitempty,max=200"`
	SupportType       string `json:"support_type,omitempty"`
	Reason            string `json:"reason,omitempty"    binding:"omitempty,max=200"`
	Notes             string `json:"notes,omitempty"     binding:"omitempty,max=500"`
}

// ToSlot 解析为领域时段（未做引用校验）
func (r *CreateSlotRequest) ToSlot() (schedule.Slot, error) {
	start, err := schedule.ParseClock(r.StartTime)
	if err != nil {
		return schedule.Slot{}, err
	}
	end, err := schedule.ParseClock(r.EndTime)
	if err != nil {
		return schedule.Slot{}, err
	}
	from, err := schedule.ParseISODate(r.ValidFrom)
	if err != nil {
		return schedule.Slot{}, err
	}
	to, err := schedule.ParseISODate(r.ValidTo)
	if err != nil {
		return schedule.Slot{}, err
	}
	return schedule.Slot{
		Kind:              schedule.Kind(r.Kind),
		Weekday:           schedule.Weekday(r.Weekday),
		Start:             start,
		End:               end,
		ValidFrom:         from,
		ValidTo:           to,
		Active:            true,
		CohortID:          r.CohortID,
		CompetencyID:      r.CompetencyID,
		LearningOutcomeID: r.LearningOutcomeID,
		InstructorID:      r.InstructorID,
		RoomID:            r.RoomID,
		Topic:             r.Topic,
		SupportType:       r.SupportType,
		Reason:            r.Reason,
		Notes:             r.Notes,
	}, nil
}

// NewCreateSlotRequest 由领域时段构造创建请求
func NewCreateSlotRequest(s schedule.Slot) CreateSlotRequest {
	return CreateSlotRequest{
		Kind:              string(s.Kind),
		Weekday:           int(s.Weekday),
		StartTime:         s.Start.String(),
		EndTime:           s.End.String(),
		ValidFrom:         s.ValidFrom.String(),
		ValidTo:           s.ValidTo.String(),
		CohortID:          s.CohortID,
		CompetencyID:      s.CompetencyID,
		LearningOutcomeID: s.LearningOutcomeID,
		InstructorID:      s.InstructorID,
		RoomID:            s.RoomID,
		Topic:             s.Topic,
		SupportType:       s.SupportType,
		Reason:            s.Reason,
		Notes:             s.Notes,
	}
}

// UpdateSlotRequest 更新时段请求；kind 出现且与原值不同时被拒绝
type UpdateSlotRequest struct {
	Kind      *string `json:"kind,omitempty"`
	ValidFrom *string `json:"valid_from,omitempty"`
	ValidTo   *string `json:"valid_to,omitempty"`
	Weekday   *int    `json:"weekday,omitempty"    binding:"omitempty,min=1,max=6"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Notes     *string `json:"notes,omitempty"      binding:"omitempty,max=500"`
	Version   int     `json:"version,omitempty"`
}

// SetActiveRequest 启用 / 停用请求
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SlotListRequest 时段列表查询参数
type SlotListRequest struct {
	Mode            string `form:"mode"             binding:"omitempty,oneof=cohort instructor room"`
	ID              string `form:"id"               binding:"required_with=Mode"`
	IncludeInactive bool   `form:"include_inactive"`
}

// SlotResponse 时段信息响应
type SlotResponse struct {
	ID                string  `json:"id"`
	Kind              string  `json:"kind"`
	Weekday           int     `json:"weekday"`
	WeekdayName       string  `json:"weekday_name"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	ValidFrom         string  `json:"valid_from"`
	ValidTo           string  `json:"valid_to"`
	WeeklyHours       float64 `json:"weekly_hours"`
	Active            bool    `json:"active"`
	Version           int     `json:"version"`
	CohortID          string  `json:"cohort_id,omitempty"`
	CohortName        string  `json:"cohort_name,omitempty"`
	CompetencyID      string  `json:"competency_id,omitempty"`
	LearningOutcomeID string  `json:"learning_outcome_id,omitempty"`
	InstructorID      string  `json:"instructor_id"`
	InstructorName    string  `json:"instructor_name,omitempty"`
	RoomID            string  `json:"room_id,omitempty"`
	RoomName          string  `json:"room_name,omitempty"`
	Topic             string  `json:"topic,omitempty"`
	SupportType       string  `json:"support_type,omitempty"`
	Reason            string  `json:"reason,omitempty"`
	Notes             string  `json:"notes,omitempty"`
	Label             string  `json:"label,omitempty"`
}

// NewSlotResponse 领域时段 → 响应
func NewSlotResponse(s schedule.Slot) SlotResponse {
	return SlotResponse{
		ID:                s.ID,
		Kind:              string(s.Kind),
		Weekday:           int(s.Weekday),
		WeekdayName:       s.Weekday.String(),
		StartTime:         s.Start.String(),
		EndTime:           s.End.String(),
		ValidFrom:         s.ValidFrom.String(),
		ValidTo:           s.ValidTo.String(),
		WeeklyHours:       schedule.RoundHours(s.WeeklyHours()),
		Active:            s.Active,
		Version:           s.Version,
		CohortID:          s.CohortID,
		CohortName:        s.CohortName,
		CompetencyID:      s.CompetencyID,
		LearningOutcomeID: s.LearningOutcomeID,
		InstructorID:      s.InstructorID,
		InstructorName:    s.InstructorName,
		RoomID:            s.RoomID,
		RoomName:          s.RoomName,
		Topic:             s.Topic,
		SupportType:       s.SupportType,
		Reason:            s.Reason,
		Notes:             s.Notes,
		Label:             s.Label,
	}
}

// ToSlot 响应 → 领域时段（远程存储客户端使用）
func (r SlotResponse) ToSlot() (schedule.Slot, error) {
	req := CreateSlotRequest{
		Kind:      r.Kind,
		Weekday:   r.Weekday,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		ValidFrom: r.ValidFrom,
		ValidTo:   r.ValidTo,
	}
	s, err := req.ToSlot()
	if err != nil {
		return schedule.Slot{}, err
	}
	s.ID = r.ID
	s.Active = r.Active
	s.Version = r.Version
	s.CohortID, s.CohortName = r.CohortID, r.CohortName
	s.CompetencyID = r.CompetencyID
	s.LearningOutcomeID = r.LearningOutcomeID
	s.InstructorID, s.InstructorName = r.InstructorID, r.InstructorName
	s.RoomID, s.RoomName = r.RoomID, r.RoomName
	s.Topic = r.Topic
	s.SupportType = r.SupportType
	s.Reason = r.Reason
	s.Notes = r.Notes
	s.Label = r.Label
	return s, nil
}

// CreateSlotResponse 创建成功响应
type CreateSlotResponse struct {
	ID string `json:"id"`
}
