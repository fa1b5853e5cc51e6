package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"phias/backend/internal/model"
	pkgerrors "phias/backend/pkg/errors"
)

// SlotFilter 时段列表筛选条件，非空字段按 AND 组合
type SlotFilter struct {
	CohortID        string
	InstructorID    string
	RoomID          string
	IncludeInactive bool
}

// OverlapQuery 冲突查询：同星期、时间重叠、有效期重叠，且讲师或教室相同
type OverlapQuery struct {
	Weekday      int
	StartTime    string
	EndTime      string
	ValidFrom    time.Time
	ValidTo      time.Time
	InstructorID string
	RoomID       *string
	ExcludeID    string
}

// SlotRepository 周期时段数据访问接口
type SlotRepository interface {
	Create(ctx context.Context, slot *model.RecurringSlot) error
	GetByID(ctx context.Context, id string) (*model.RecurringSlot, error)
	List(ctx context.Context, filter SlotFilter) ([]model.RecurringSlot, error)
	Update(ctx context.Context, slot *model.RecurringSlot) error
	SetActive(ctx context.Context, id string, active bool, version int) error
	FindOverlapping(ctx context.Context, q OverlapQuery) ([]model.RecurringSlot, error)
}

type slotRepo struct {
	db *gorm.DB
}

// NewSlotRepo 创建 SlotRepository 实例
func NewSlotRepo(db *gorm.DB) SlotRepository {
	return &slotRepo{db: db}
}

func (r *slotRepo) Create(ctx context.Context, slot *model.RecurringSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *slotRepo) GetByID(ctx context.Context, id string) (*model.RecurringSlot, error) {
	var slot model.RecurringSlot
	err := r.db.WithContext(ctx).
		Preload("Instructor").
		Preload("Cohort").
		Preload("Room").
		Where("slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepo) List(ctx context.Context, filter SlotFilter) ([]model.RecurringSlot, error) {
	var slots []model.RecurringSlot
	db := r.db.WithContext(ctx)

	if !filter.IncludeInactive {
		db = db.Where("is_active = ?", true)
	}
	if filter.CohortID != "" {
		db = db.Where("cohort_id = ?", filter.CohortID)
	}
	if filter.InstructorID != "" {
		db = db.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.RoomID != "" {
		db = db.Where("room_id = ?", filter.RoomID)
	}

	err := db.Preload("Instructor").
		Preload("Cohort").
		Preload("Room").
		Order("weekday ASC, start_time ASC").
		Find(&slots).Error
	return slots, err
}

// Update 只允许修改有效期、星期、起止时间、备注；version 不匹配返回 ErrOptimisticLock
func (r *slotRepo) Update(ctx context.Context, slot *model.RecurringSlot) error {
	oldVersion := slot.Version
	result := r.db.WithContext(ctx).
		Model(&model.RecurringSlot{}).
		Where("slot_id = ? AND version = ?", slot.SlotID, oldVersion).
		Updates(map[string]interface{}{
			"weekday":      slot.Weekday,
			"start_time":   slot.StartTime,
			"end_time":     slot.EndTime,
			"valid_from":   slot.ValidFrom,
			"valid_to":     slot.ValidTo,
			"weekly_hours": slot.WeeklyHours,
			"notes":        slot.Notes,
			"updated_by":   slot.UpdatedBy,
			"updated_at":   gorm.Expr("NOW()"),
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.VersionConflict("recurring_slot", slot.SlotID, oldVersion)
	}
	slot.Version = oldVersion + 1
	return nil
}

// SetActive 停用 / 启用；version<=0 时不校验版本
func (r *slotRepo) SetActive(ctx context.Context, id string, active bool, version int) error {
	db := r.db.WithContext(ctx).Model(&model.RecurringSlot{})
	if version > 0 {
		db = db.Where("slot_id = ? AND version = ?", id, version)
	} else {
		db = db.Where("slot_id = ?", id)
	}
	result := db.Updates(map[string]interface{}{
		"is_active":  active,
		"updated_at": gorm.Expr("NOW()"),
		"version":    gorm.Expr("version + 1"),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if version > 0 {
			return pkgerrors.VersionConflict("recurring_slot", id, version)
		}
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *slotRepo) FindOverlapping(ctx context.Context, q OverlapQuery) ([]model.RecurringSlot, error) {
	var slots []model.RecurringSlot
	db := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("weekday = ?", q.Weekday).
		Where("start_time < ? AND end_time > ?", q.EndTime, q.StartTime).
		Where("valid_from <= ? AND valid_to >= ?", q.ValidTo, q.ValidFrom)

	if q.RoomID != nil {
		db = db.Where("(instructor_id = ? OR room_id = ?)", q.InstructorID, *q.RoomID)
	} else {
		db = db.Where("instructor_id = ?", q.InstructorID)
	}
	if q.ExcludeID != "" {
		db = db.Where("slot_id <> ?", q.ExcludeID)
	}

	err := db.Order("weekday ASC, start_time ASC").Find(&slots).Error
	return slots, err
}
