package service

import (
	"context"

	"go.uber.org/zap"

	"phias/backend/internal/model"
	"phias/backend/internal/repository"
	"phias/backend/internal/store"
)

// ReferenceService 讲师 / 教室 / 班级 / 课程体系查询
type ReferenceService interface {
	ListInstructors(ctx context.Context) ([]store.Instructor, error)
	ListRooms(ctx context.Context) ([]store.Room, error)
	ListCohorts(ctx context.Context) ([]store.Cohort, error)
	ListCompetencies(ctx context.Context, programID string) ([]store.Competency, error)
	ListLearningOutcomes(ctx context.Context, competencyID string) ([]store.LearningOutcome, error)
}

type referenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewReferenceService 创建 ReferenceService 实例
func NewReferenceService(repo *repository.Repository, logger *zap.Logger) ReferenceService {
	return &referenceService{repo: repo, logger: logger}
}

// 停用记录也一并返回，由调用方按 Active 过滤
func (s *referenceService) ListInstructors(ctx context.Context) ([]store.Instructor, error) {
	rows, err := s.repo.Instructor.List(ctx, true)
	if err != nil {
		s.logger.Error("列出讲师失败", zap.Error(err))
		return nil, err
	}
	result := make([]store.Instructor, 0, len(rows))
	for _, r := range rows {
		result = append(result, store.Instructor{
			ID:       r.InstructorID,
			Document: r.Document,
			Name:     r.Name,
			Active:   r.IsActive,
		})
	}
	return result, nil
}

func (s *referenceService) ListRooms(ctx context.Context) ([]store.Room, error) {
	rows, err := s.repo.Room.List(ctx, true)
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, err
	}
	result := make([]store.Room, 0, len(rows))
	for _, r := range rows {
		result = append(result, store.Room{
			ID:       r.RoomID,
			Code:     r.Code,
			Name:     r.Name,
			Capacity: r.Capacity,
			Active:   r.IsActive,
		})
	}
	return result, nil
}

func (s *referenceService) ListCohorts(ctx context.Context) ([]store.Cohort, error) {
	rows, err := s.repo.Cohort.List(ctx, true)
	if err != nil {
		s.logger.Error("列出班级失败", zap.Error(err))
		return nil, err
	}
	result := make([]store.Cohort, 0, len(rows))
	for _, r := range rows {
		result = append(result, toCohort(r))
	}
	return result, nil
}

func (s *referenceService) ListCompetencies(ctx context.Context, programID string) ([]store.Competency, error) {
	rows, err := s.repo.Curriculum.ListCompetencies(ctx, programID)
	if err != nil {
		s.logger.Error("列出能力项失败", zap.String("program_id", programID), zap.Error(err))
		return nil, err
	}
	result := make([]store.Competency, 0, len(rows))
	for _, r := range rows {
		result = append(result, store.Competency{
			ID:        r.CompetencyID,
			ProgramID: r.ProgramID,
			Code:      r.Code,
			Name:      r.Name,
		})
	}
	return result, nil
}

func (s *referenceService) ListLearningOutcomes(ctx context.Context, competencyID string) ([]store.LearningOutcome, error) {
	rows, err := s.repo.Curriculum.ListLearningOutcomes(ctx, competencyID)
	if err != nil {
		s.logger.Error("列出学习成果失败", zap.String("competency_id", competencyID), zap.Error(err))
		return nil, err
	}
	result := make([]store.LearningOutcome, 0, len(rows))
	for _, r := range rows {
		result = append(result, store.LearningOutcome{
			ID:           r.LearningOutcomeID,
			CompetencyID: r.CompetencyID,
			Ordinal:      r.Ordinal,
			Description:  r.Description,
		})
	}
	return result, nil
}

func toCohort(m model.Cohort) store.Cohort {
	c := store.Cohort{
		ID:        m.CohortID,
		Number:    m.Number,
		ProgramID: m.ProgramID,
		Active:    m.IsActive,
	}
	if m.Program != nil {
		c.ProgramName = m.Program.Name
	}
	return c
}
