package repository

import (
	"context"

	"gorm.io/gorm"

	"phias/backend/internal/model"
)

// CurriculumRepository 专业 / 能力项 / 学习成果数据访问接口
type CurriculumRepository interface {
	CreateProgram(ctx context.Context, program *model.Program) error
	CreateCompetency(ctx context.Context, competency *model.Competency) error
	CreateLearningOutcome(ctx context.Context, outcome *model.LearningOutcome) error
	ListCompetencies(ctx context.Context, programID string) ([]model.Competency, error)
	ListLearningOutcomes(ctx context.Context, competencyID string) ([]model.LearningOutcome, error)
}

type curriculumRepo struct {
	db *gorm.DB
}

// NewCurriculumRepo 创建 CurriculumRepository 实例
func NewCurriculumRepo(db *gorm.DB) CurriculumRepository {
	return &curriculumRepo{db: db}
}

func (r *curriculumRepo) CreateProgram(ctx context.Context, program *model.Program) error {
	return r.db.WithContext(ctx).Create(program).Error
}

func (r *curriculumRepo) CreateCompetency(ctx context.Context, competency *model.Competency) error {
	return r.db.WithContext(ctx).Create(competency).Error
}

func (r *curriculumRepo) CreateLearningOutcome(ctx context.Context, outcome *model.LearningOutcome) error {
	return r.db.WithContext(ctx).Create(outcome).Error
}

func (r *curriculumRepo) ListCompetencies(ctx context.Context, programID string) ([]model.Competency, error) {
	var competencies []model.Competency
	err := r.db.WithContext(ctx).
		Where("program_id = ?", programID).
		Order("code ASC").
		Find(&competencies).Error
	return competencies, err
}

func (r *curriculumRepo) ListLearningOutcomes(ctx context.Context, competencyID string) ([]model.LearningOutcome, error) {
	var outcomes []model.LearningOutcome
	err := r.db.WithContext(ctx).
		Where("competency_id = ?", competencyID).
		Order("ordinal ASC").
		Find(&outcomes).Error
	return outcomes, err
}
