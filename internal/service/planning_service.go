package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"phias/backend/config"
	"phias/backend/internal/dto"
	"phias/backend/internal/schedule"
	"phias/backend/internal/store"
)

// ── 规划模块业务错误 ──

var (
	ErrInvalidPeriod = errors.New("统计区间无效：开始日期晚于结束日期")
	ErrGridConfig    = errors.New("周视图网格配置错误")
)

// PlanningService 工时汇总、周视图与发生日期
type PlanningService interface {
	Hours(ctx context.Context, req *dto.HoursRequest) (*dto.HoursResponse, error)
	Grid(ctx context.Context, req *dto.GridRequest) (*dto.GridResponse, error)
	Occurrences(ctx context.Context, req *dto.OccurrencesRequest) (*dto.OccurrencesResponse, error)
}

type planningService struct {
	st     store.Store
	grid   schedule.GridOptions
	logger *zap.Logger
}

// NewPlanningService 创建 PlanningService 实例
func NewPlanningService(st store.Store, cfg *config.GridConfig, logger *zap.Logger) PlanningService {
	return &planningService{st: st, grid: GridOptionsFrom(cfg), logger: logger}
}

// GridOptionsFrom 由配置构造网格参数
func GridOptionsFrom(cfg *config.GridConfig) schedule.GridOptions {
	return schedule.GridOptions{
		OriginHour: cfg.OriginHour,
		EndHour:    cfg.EndHour,
		Thresholds: schedule.Thresholds{
			Participant: cfg.ParticipantThreshold,
			Location:    cfg.LocationThreshold,
			StartTime:   cfg.StartTimeThreshold,
		},
		StackOverlaps: cfg.StackOverlaps,
	}
}

// ────────────────────── Hours ──────────────────────

func (s *planningService) Hours(ctx context.Context, req *dto.HoursRequest) (*dto.HoursResponse, error) {
	from, to, err := parsePeriod(req.From, req.To)
	if err != nil {
		return nil, err
	}

	slots, err := s.st.ListSlots(ctx, store.Filter{Mode: store.Mode(req.Mode), ID: req.ID})
	if err != nil {
		s.logger.Error("加载时段失败", zap.String("mode", req.Mode), zap.String("id", req.ID), zap.Error(err))
		return nil, err
	}

	summary := schedule.AggregateHours(slots, from, to)
	labels := make(map[string]string, len(slots))
	for _, slot := range slots {
		labels[slot.ID] = slot.Label
	}

	resp := &dto.HoursResponse{
		From:                 from.String(),
		To:                   to.String(),
		Total:                schedule.RoundHours(summary.Total),
		ByKind:               make(map[string]float64, len(summary.ByKind)),
		OccurrencesByWeekday: make([]dto.WeekdayCount, 0, len(schedule.Weekdays)),
		Slots:                make([]dto.SlotHoursResponse, 0, len(summary.Slots)),
	}
	for kind, hours := range summary.ByKind {
		resp.ByKind[string(kind)] = schedule.RoundHours(hours)
	}
	for _, w := range schedule.Weekdays {
		resp.OccurrencesByWeekday = append(resp.OccurrencesByWeekday, dto.WeekdayCount{
			Weekday: int(w),
			Name:    w.String(),
			Count:   summary.OccurrencesByWeekday[w],
		})
	}
	for _, sh := range summary.Slots {
		resp.Slots = append(resp.Slots, dto.SlotHoursResponse{
			SlotID:      sh.SlotID,
			Kind:        string(sh.Kind),
			Weekday:     int(sh.Weekday),
			Label:       labels[sh.SlotID],
			Occurrences: sh.Occurrences,
			Hours:       schedule.RoundHours(sh.Hours),
		})
	}
	return resp, nil
}

// ────────────────────── Grid ──────────────────────

func (s *planningService) Grid(ctx context.Context, req *dto.GridRequest) (*dto.GridResponse, error) {
	mode := store.Mode(req.Mode)
	slots, err := s.st.ListSlots(ctx, store.Filter{Mode: mode, ID: req.ID})
	if err != nil {
		s.logger.Error("加载时段失败", zap.String("mode", req.Mode), zap.String("id", req.ID), zap.Error(err))
		return nil, err
	}

	grid, err := schedule.BuildGrid(slots, s.grid)
	if err != nil {
		if errors.Is(err, schedule.ErrBeforeGridOrigin) {
			s.logger.Error("网格起点晚于时段开始时间", zap.Int("origin_hour", s.grid.OriginHour), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrGridConfig, err)
		}
		return nil, err
	}

	resp := &dto.GridResponse{
		OriginHour:    grid.OriginHour,
		EndHour:       grid.EndHour,
		HeightMinutes: grid.HeightMinutes,
		Columns:       make([]dto.GridColumnResponse, 0, len(grid.Columns)),
	}
	for _, col := range grid.Columns {
		blocks := make([]dto.GridBlockResponse, 0, len(col.Blocks))
		for _, b := range col.Blocks {
			blocks = append(blocks, toGridBlock(b, mode))
		}
		resp.Columns = append(resp.Columns, dto.GridColumnResponse{
			Weekday: int(col.Weekday),
			Name:    col.Weekday.String(),
			Blocks:  blocks,
		})
	}
	return resp, nil
}

// toGridBlock 按展示级别裁剪块内文字；参与方取当前视角的"对方"
func toGridBlock(b schedule.Block, mode store.Mode) dto.GridBlockResponse {
	resp := dto.GridBlockResponse{
		SlotID:           b.Slot.ID,
		Kind:             string(b.Slot.Kind),
		Label:            b.Slot.Label,
		TopOffsetMinutes: b.TopOffsetMinutes,
		HeightMinutes:    b.HeightMinutes,
		Lane:             b.Lane,
		Lanes:            b.Lanes,
		Detail:           b.Detail.String(),
	}
	if b.Detail.ShowParticipant() {
		if mode == store.ModeInstructor {
			resp.Participant = b.Slot.CohortName
		} else {
			resp.Participant = b.Slot.InstructorName
		}
	}
	if b.Detail.ShowLocation() && mode != store.ModeRoom {
		resp.Location = b.Slot.RoomName
	}
	if b.Detail.ShowStartTime() {
		resp.StartTime = b.Slot.Start.String()
	}
	return resp
}

// ────────────────────── Occurrences ──────────────────────

func (s *planningService) Occurrences(ctx context.Context, req *dto.OccurrencesRequest) (*dto.OccurrencesResponse, error) {
	from, to, err := parsePeriod(req.From, req.To)
	if err != nil {
		return nil, err
	}

	slot, err := s.st.GetSlot(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}

	dates, err := schedule.OccurrenceDates(slot, from, to)
	if err != nil {
		s.logger.Error("展开发生日期失败", zap.String("slot_id", slot.ID), zap.Error(err))
		return nil, err
	}

	resp := &dto.OccurrencesResponse{
		SlotID: slot.ID,
		From:   from.String(),
		To:     to.String(),
		Count:  len(dates),
		Hours:  schedule.RoundHours(float64(len(dates)) * slot.WeeklyHours()),
		Dates:  make([]string, 0, len(dates)),
	}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, d.String())
	}
	return resp, nil
}

func parsePeriod(rawFrom, rawTo string) (schedule.Date, schedule.Date, error) {
	from, err := schedule.ParseISODate(rawFrom)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, err
	}
	to, err := schedule.ParseISODate(rawTo)
	if err != nil {
		return schedule.Date{}, schedule.Date{}, err
	}
	if to.Before(from) {
		return schedule.Date{}, schedule.Date{}, ErrInvalidPeriod
	}
	return from, to, nil
}
