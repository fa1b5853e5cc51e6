package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"phias/backend/internal/dto"
	"phias/backend/internal/schedule"
	"phias/backend/internal/store"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSlots = errors.New("该视角下暂无启用的时段")
)

// ExportService 导出业务接口
//
// 每个启用的时段导出为一个带 RRULE 的 VEVENT：
// DTSTART 为有效期内第一次发生的日期与开始时间（带 TZID），UNTIL 为有效期最后一天的结束时刻。
type ExportService interface {
	// ExportICS 导出 iCalendar (.ics)
	ExportICS(ctx context.Context, req *dto.ICSRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	st     store.Store
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例；时区无效时退回 UTC
func NewExportService(st store.Store, timezone string, logger *zap.Logger) ExportService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("无效的排课时区，使用 UTC", zap.String("timezone", timezone), zap.Error(err))
		loc = time.UTC
	}
	return &exportService{st: st, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportICS — 导出周期时段为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, req *dto.ICSRequest) (*bytes.Buffer, string, error) {
	mode := store.Mode(req.Mode)
	slots, err := s.st.ListSlots(ctx, store.Filter{Mode: mode, ID: req.ID})
	if err != nil {
		s.logger.Error("加载时段失败", zap.String("mode", req.Mode), zap.String("id", req.ID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//phias//horarios//ES")
	cal.SetXWRCalName(fmt.Sprintf("Horario %s %s", mode, req.ID))
	cal.SetXWRTimezone(s.loc.String())

	stamp := time.Now().UTC()
	count := 0
	for _, slot := range slots {
		if !slot.Active {
			continue
		}
		added, err := s.addEvent(cal, slot, stamp)
		if err != nil {
			s.logger.Error("生成日历事件失败", zap.String("slot_id", slot.ID), zap.Error(err))
			return nil, "", err
		}
		if added {
			count++
		}
	}
	if count == 0 {
		return nil, "", ErrExportNoSlots
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("horario_%s_%s.ics", mode, req.ID)
	s.logger.Info("日历导出完成", zap.String("mode", req.Mode), zap.String("id", req.ID), zap.Int("events", count))
	return buf, filename, nil
}

// addEvent 有效期内不存在任何一次发生时跳过
func (s *exportService) addEvent(cal *ics.Calendar, slot schedule.Slot, stamp time.Time) (bool, error) {
	first, ok := schedule.FirstOccurrence(slot)
	if !ok {
		return false, nil
	}
	rule, err := schedule.RRule(slot, s.loc)
	if err != nil {
		return false, err
	}

	start := time.Date(first.Year, first.Month, first.Day, slot.Start.Hour, slot.Start.Minute, 0, 0, s.loc)
	end := time.Date(first.Year, first.Month, first.Day, slot.End.Hour, slot.End.Minute, 0, 0, s.loc)
	tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{s.loc.String()}}

	ev := cal.AddEvent(slot.ID + "@phias")
	ev.SetDtStampTime(stamp)
	ev.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalLayout), tzid)
	ev.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsLocalLayout), tzid)
	ev.AddRrule(rule)
	ev.SetSummary(eventSummary(slot))
	if slot.RoomName != "" {
		ev.SetLocation(slot.RoomName)
	}
	if desc := eventDescription(slot); desc != "" {
		ev.SetDescription(desc)
	}
	return true, nil
}

const icsLocalLayout = "20060102T150405"

var kindTitles = map[schedule.Kind]string{
	schedule.KindClass:       "Clase",
	schedule.KindSupport:     "Apoyo",
	schedule.KindReservation: "Reserva",
}

func eventSummary(slot schedule.Slot) string {
	title := kindTitles[slot.Kind]
	if slot.Label != "" {
		return title + ": " + slot.Label
	}
	return title
}

func eventDescription(slot schedule.Slot) string {
	var lines []string
	if slot.InstructorName != "" {
		lines = append(lines, "Instructor: "+slot.InstructorName)
	}
	if slot.CohortName != "" {
		lines = append(lines, "Ficha: "+slot.CohortName)
	}
	if slot.Notes != "" {
		lines = append(lines, slot.Notes)
	}
	return strings.Join(lines, "\n")
}
