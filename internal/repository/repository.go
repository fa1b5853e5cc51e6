package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Slot       SlotRepository
	Room       RoomRepository
	Instructor InstructorRepository
	Cohort     CohortRepository
	Curriculum CurriculumRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Slot:       NewSlotRepo(db),
		Room:       NewRoomRepo(db),
		Instructor: NewInstructorRepo(db),
		Cohort:     NewCohortRepo(db),
		Curriculum: NewCurriculumRepo(db),
	}
}

// BeginTx 开启事务；调用方负责 Commit / Rollback。
// 未绑定数据库连接的聚合（单元测试中的 mock）返回 nil 事务。
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 副本；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
