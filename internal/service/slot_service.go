package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"phias/backend/internal/model"
	"phias/backend/internal/repository"
	"phias/backend/internal/schedule"
	"phias/backend/internal/store"
	pkgerrors "phias/backend/pkg/errors"
)

// ── 时段模块业务错误 ──
//
// 均包装 store 包的哨兵错误，本地与远程存储的调用方可统一用 errors.Is 判断。

var (
	ErrSlotNotFound      = fmt.Errorf("时段不存在: %w", store.ErrNotFound)
	ErrSlotConflict      = fmt.Errorf("时段冲突: %w", store.ErrConflict)
	ErrSlotStale         = fmt.Errorf("%w: %w", pkgerrors.ErrOptimisticLock, store.ErrConflict)
	ErrSlotKindImmutable = fmt.Errorf("时段类型不可修改: %w", store.ErrInvalidInput)
	ErrSlotInvalid       = fmt.Errorf("时段数据无效: %w", store.ErrInvalidInput)
	ErrReferenceNotFound = fmt.Errorf("引用的数据不存在或已停用: %w", store.ErrInvalidInput)
	ErrReferenceMismatch = fmt.Errorf("引用的数据不匹配: %w", store.ErrInvalidInput)
)

// ConflictError 与已有时段冲突的详情
type ConflictError struct {
	Conflicts []schedule.Slot
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s %s-%s", c.ID, c.Weekday, c.Start, c.End))
	}
	return fmt.Sprintf("与已有时段冲突（同一讲师或教室）: %s", strings.Join(parts, "; "))
}

func (e *ConflictError) Unwrap() error { return ErrSlotConflict }

// ── 调用方身份 ──

type callerKey struct{}

// WithCaller 在 ctx 中记录操作人，写入 created_by / updated_by
func WithCaller(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, callerKey{}, userID)
}

func callerFrom(ctx context.Context) *string {
	if id, ok := ctx.Value(callerKey{}).(string); ok && id != "" {
		return &id
	}
	return nil
}

// SlotService 周期时段业务接口（本地存储的权威实现，负责冲突检测）
type SlotService interface {
	Create(ctx context.Context, slot schedule.Slot) (schedule.Slot, error)
	GetByID(ctx context.Context, id string) (schedule.Slot, error)
	List(ctx context.Context, filter store.Filter) ([]schedule.Slot, error)
	Update(ctx context.Context, id string, u store.SlotUpdate) (schedule.Slot, error)
	SetActive(ctx context.Context, id string, active bool) (schedule.Slot, error)
}

type slotService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(repo *repository.Repository, logger *zap.Logger) SlotService {
	return &slotService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *slotService) Create(ctx context.Context, slot schedule.Slot) (schedule.Slot, error) {
	if err := slot.Validate(); err != nil {
		return schedule.Slot{}, fmt.Errorf("%w: %v", ErrSlotInvalid, err)
	}
	if err := s.checkReferences(ctx, slot); err != nil {
		return schedule.Slot{}, err
	}

	m := fromDomainSlot(slot)
	m.IsActive = true
	m.CreatedBy = callerFrom(ctx)
	m.UpdatedBy = m.CreatedBy

	// 冲突检查与写入放在同一事务中
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return schedule.Slot{}, err
	}
	txRepo := s.repo.WithTx(tx)

	if err := s.checkConflicts(ctx, txRepo, m); err != nil {
		rollback(tx)
		return schedule.Slot{}, err
	}
	if err := txRepo.Slot.Create(ctx, m); err != nil {
		rollback(tx)
		s.logger.Error("创建时段失败", zap.Error(err))
		return schedule.Slot{}, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return schedule.Slot{}, err
		}
	}

	s.logger.Info("时段已创建",
		zap.String("slot_id", m.SlotID),
		zap.String("kind", m.Kind),
		zap.Int("weekday", m.Weekday),
	)
	return s.GetByID(ctx, m.SlotID)
}

// ────────────────────── GetByID ──────────────────────

func (s *slotService) GetByID(ctx context.Context, id string) (schedule.Slot, error) {
	m, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return schedule.Slot{}, ErrSlotNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		return schedule.Slot{}, err
	}
	return toDomainSlot(m)
}

// ────────────────────── List ──────────────────────

func (s *slotService) List(ctx context.Context, filter store.Filter) ([]schedule.Slot, error) {
	if !filter.Mode.Valid() {
		return nil, fmt.Errorf("%w: 未知的查询视角 %q", store.ErrInvalidInput, filter.Mode)
	}
	if filter.Mode != store.ModeAll && filter.ID == "" {
		return nil, fmt.Errorf("%w: 查询视角 %s 缺少 id", store.ErrInvalidInput, filter.Mode)
	}

	rf := repository.SlotFilter{IncludeInactive: filter.IncludeInactive}
	switch filter.Mode {
	case store.ModeCohort:
		rf.CohortID = filter.ID
	case store.ModeInstructor:
		rf.InstructorID = filter.ID
	case store.ModeRoom:
		rf.RoomID = filter.ID
	}

	models, err := s.repo.Slot.List(ctx, rf)
	if err != nil {
		s.logger.Error("列出时段失败", zap.Error(err))
		return nil, err
	}

	result := make([]schedule.Slot, 0, len(models))
	for i := range models {
		slot, err := toDomainSlot(&models[i])
		if err != nil {
			s.logger.Error("时段数据损坏", zap.String("id", models[i].SlotID), zap.Error(err))
			return nil, err
		}
		result = append(result, slot)
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *slotService) Update(ctx context.Context, id string, u store.SlotUpdate) (schedule.Slot, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return schedule.Slot{}, err
	}
	if u.Kind != nil && *u.Kind != current.Kind {
		return schedule.Slot{}, ErrSlotKindImmutable
	}

	updated := u.Apply(current)
	if err := updated.Validate(); err != nil {
		return schedule.Slot{}, fmt.Errorf("%w: %v", ErrSlotInvalid, err)
	}

	m := fromDomainSlot(updated)
	m.SlotID = id
	m.Version = current.Version
	if u.Version > 0 {
		m.Version = u.Version
	}
	m.UpdatedBy = callerFrom(ctx)

	if updated.Active {
		if err := s.checkConflicts(ctx, s.repo, m); err != nil {
			return schedule.Slot{}, err
		}
	}

	if err := s.repo.Slot.Update(ctx, m); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return schedule.Slot{}, ErrSlotStale
		}
		s.logger.Error("更新时段失败", zap.String("id", id), zap.Error(err))
		return schedule.Slot{}, err
	}
	return s.GetByID(ctx, id)
}

// ────────────────────── SetActive ──────────────────────

func (s *slotService) SetActive(ctx context.Context, id string, active bool) (schedule.Slot, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return schedule.Slot{}, err
	}
	if current.Active == active {
		return current, nil
	}

	// 重新启用前需确认期间没有新建冲突时段
	if active {
		m := fromDomainSlot(current)
		m.SlotID = id
		if err := s.checkConflicts(ctx, s.repo, m); err != nil {
			return schedule.Slot{}, err
		}
	}

	if err := s.repo.Slot.SetActive(ctx, id, active, current.Version); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return schedule.Slot{}, ErrSlotStale
		}
		s.logger.Error("切换时段状态失败", zap.String("id", id), zap.Error(err))
		return schedule.Slot{}, err
	}
	s.logger.Info("时段状态已切换", zap.String("slot_id", id), zap.Bool("active", active))
	return s.GetByID(ctx, id)
}

// ── 内部辅助方法 ──

// checkReferences 校验引用存在且一致：能力项属于班级所在专业，学习成果属于能力项
func (s *slotService) checkReferences(ctx context.Context, slot schedule.Slot) error {
	instructor, err := s.repo.Instructor.GetByID(ctx, slot.InstructorID)
	if err != nil {
		return s.referenceErr(err, "讲师", slot.InstructorID)
	}
	if !instructor.IsActive {
		return fmt.Errorf("%w: 讲师 %s", ErrReferenceNotFound, slot.InstructorID)
	}

	if slot.RoomID != "" {
		room, err := s.repo.Room.GetByID(ctx, slot.RoomID)
		if err != nil {
			return s.referenceErr(err, "教室", slot.RoomID)
		}
		if !room.IsActive {
			return fmt.Errorf("%w: 教室 %s", ErrReferenceNotFound, slot.RoomID)
		}
	}

	if slot.CohortID == "" {
		return nil
	}
	cohort, err := s.repo.Cohort.GetByID(ctx, slot.CohortID)
	if err != nil {
		return s.referenceErr(err, "班级", slot.CohortID)
	}
	if slot.CompetencyID == "" {
		return nil
	}

	competencies, err := s.repo.Curriculum.ListCompetencies(ctx, cohort.ProgramID)
	if err != nil {
		return err
	}
	if !containsCompetency(competencies, slot.CompetencyID) {
		return fmt.Errorf("%w: 能力项 %s 不属于班级 %s 的专业", ErrReferenceMismatch, slot.CompetencyID, cohort.Number)
	}
	if slot.LearningOutcomeID == "" {
		return nil
	}

	outcomes, err := s.repo.Curriculum.ListLearningOutcomes(ctx, slot.CompetencyID)
	if err != nil {
		return err
	}
	if !containsOutcome(outcomes, slot.LearningOutcomeID) {
		return fmt.Errorf("%w: 学习成果 %s 不属于能力项 %s", ErrReferenceMismatch, slot.LearningOutcomeID, slot.CompetencyID)
	}
	return nil
}

func (s *slotService) referenceErr(err error, field, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrReferenceNotFound, field, id)
	}
	s.logger.Error("查询引用数据失败", zap.String("field", field), zap.String("id", id), zap.Error(err))
	return err
}

// checkConflicts 同一讲师或教室、同星期、时间与有效期均重叠的启用时段视为冲突
func (s *slotService) checkConflicts(ctx context.Context, repo *repository.Repository, m *model.RecurringSlot) error {
	overlapping, err := repo.Slot.FindOverlapping(ctx, repository.OverlapQuery{
		Weekday:      m.Weekday,
		StartTime:    m.StartTime,
		EndTime:      m.EndTime,
		ValidFrom:    m.ValidFrom,
		ValidTo:      m.ValidTo,
		InstructorID: m.InstructorID,
		RoomID:       m.RoomID,
		ExcludeID:    m.SlotID,
	})
	if err != nil {
		s.logger.Error("冲突检测失败", zap.Error(err))
		return err
	}
	if len(overlapping) == 0 {
		return nil
	}

	conflicts := make([]schedule.Slot, 0, len(overlapping))
	for i := range overlapping {
		c, err := toDomainSlot(&overlapping[i])
		if err != nil {
			return err
		}
		conflicts = append(conflicts, c)
	}
	s.logger.Info("时段冲突", zap.Int("conflicts", len(conflicts)), zap.String("instructor_id", m.InstructorID))
	return &ConflictError{Conflicts: conflicts}
}

func rollback(tx *gorm.DB) {
	if tx != nil {
		tx.Rollback()
	}
}

func containsCompetency(list []model.Competency, id string) bool {
	for _, c := range list {
		if c.CompetencyID == id {
			return true
		}
	}
	return false
}

func containsOutcome(list []model.LearningOutcome, id string) bool {
	for _, o := range list {
		if o.LearningOutcomeID == id {
			return true
		}
	}
	return false
}

// ── 模型转换 ──

func fromDomainSlot(s schedule.Slot) *model.RecurringSlot {
	return &model.RecurringSlot{
		SlotID:            s.ID,
		Kind:              string(s.Kind),
		Weekday:           int(s.Weekday),
		StartTime:         s.Start.String(),
		EndTime:           s.End.String(),
		ValidFrom:         s.ValidFrom.Time(),
		ValidTo:           s.ValidTo.Time(),
		WeeklyHours:       s.WeeklyHours(),
		IsActive:          s.Active,
		InstructorID:      s.InstructorID,
		CohortID:          optional(s.CohortID),
		CompetencyID:      optional(s.CompetencyID),
		LearningOutcomeID: optional(s.LearningOutcomeID),
		RoomID:            optional(s.RoomID),
		Topic:             s.Topic,
		SupportType:       s.SupportType,
		Reason:            s.Reason,
		Notes:             s.Notes,
	}
}

func toDomainSlot(m *model.RecurringSlot) (schedule.Slot, error) {
	start, err := schedule.ParseClock(m.StartTime)
	if err != nil {
		return schedule.Slot{}, err
	}
	end, err := schedule.ParseClock(m.EndTime)
	if err != nil {
		return schedule.Slot{}, err
	}

	s := schedule.Slot{
		ID:                m.SlotID,
		Kind:              schedule.Kind(m.Kind),
		Weekday:           schedule.Weekday(m.Weekday),
		Start:             start,
		End:               end,
		ValidFrom:         schedule.DateOf(m.ValidFrom),
		ValidTo:           schedule.DateOf(m.ValidTo),
		Active:            m.IsActive,
		Version:           m.Version,
		InstructorID:      m.InstructorID,
		CohortID:          deref(m.CohortID),
		CompetencyID:      deref(m.CompetencyID),
		LearningOutcomeID: deref(m.LearningOutcomeID),
		RoomID:            deref(m.RoomID),
		Topic:             m.Topic,
		SupportType:       m.SupportType,
		Reason:            m.Reason,
		Notes:             m.Notes,
	}
	if m.Instructor != nil {
		s.InstructorName = m.Instructor.Name
	}
	if m.Cohort != nil {
		s.CohortName = m.Cohort.Number
	}
	if m.Room != nil {
		s.RoomName = m.Room.Name
	}
	s.Label = slotLabel(s)
	return s, nil
}

// slotLabel 网格块标题：主题优先，否则按类型取辅导类型或预约事由
func slotLabel(s schedule.Slot) string {
	if s.Topic != "" {
		return s.Topic
	}
	switch s.Kind {
	case schedule.KindSupport:
		return s.SupportType
	case schedule.KindReservation:
		return s.Reason
	}
	return s.CohortName
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
