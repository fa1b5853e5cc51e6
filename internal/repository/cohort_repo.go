package repository

import (
	"context"

	"gorm.io/gorm"

	"phias/backend/internal/model"
)

// CohortRepository 班级数据访问接口
type CohortRepository interface {
	Create(ctx context.Context, cohort *model.Cohort) error
	GetByID(ctx context.Context, id string) (*model.Cohort, error)
	List(ctx context.Context, includeInactive bool) ([]model.Cohort, error)
}

type cohortRepo struct {
	db *gorm.DB
}

// NewCohortRepo 创建 CohortRepository 实例
func NewCohortRepo(db *gorm.DB) CohortRepository {
	return &cohortRepo{db: db}
}

func (r *cohortRepo) Create(ctx context.Context, cohort *model.Cohort) error {
	return r.db.WithContext(ctx).Create(cohort).Error
}

func (r *cohortRepo) GetByID(ctx context.Context, id string) (*model.Cohort, error) {
	var cohort model.Cohort
	err := r.db.WithContext(ctx).
		Preload("Program").
		Where("cohort_id = ?", id).
		First(&cohort).Error
	if err != nil {
		return nil, err
	}
	return &cohort, nil
}

func (r *cohortRepo) List(ctx context.Context, includeInactive bool) ([]model.Cohort, error) {
	var cohorts []model.Cohort
	db := r.db.WithContext(ctx)

	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}

	err := db.Preload("Program").
		Order("start_date DESC, number ASC").
		Find(&cohorts).Error
	return cohorts, err
}
