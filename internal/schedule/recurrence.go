package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Window 闭区间日期窗口 [Start, End]
type Window struct {
	Start Date
	End   Date
}

// CountOccurrences 统计闭区间 [start, end] 内星期为 w 的日期个数。
// 采用 "整周数 + 余数天" 的闭式计算，end 早于 start 时返回 0。
func CountOccurrences(w Weekday, start, end Date) int {
	if !w.Valid() || end.Before(start) {
		return 0
	}
	days := start.DaysUntil(end) + 1
	count := days / 7
	if rem := days % 7; rem > 0 {
		offset := (int(w.Time()) - int(start.Time().Weekday()) + 7) % 7
		if offset < rem {
			count++
		}
	}
	return count
}

// EffectiveWindow 时段有效期与查询窗口的交集；无交集时返回 false，
// 调用方应视为 0 次发生而非错误。
func EffectiveWindow(slot Slot, queryStart, queryEnd Date) (Window, bool) {
	start := slot.ValidFrom
	if queryStart.After(start) {
		start = queryStart
	}
	end := slot.ValidTo
	if queryEnd.Before(end) {
		end = queryEnd
	}
	if end.Before(start) {
		return Window{}, false
	}
	return Window{Start: start, End: end}, true
}

// FirstOccurrence 有效期内第一次发生的日期
func FirstOccurrence(slot Slot) (Date, bool) {
	if !slot.Weekday.Valid() || slot.ValidTo.Before(slot.ValidFrom) {
		return Date{}, false
	}
	offset := (int(slot.Weekday.Time()) - int(slot.ValidFrom.Time().Weekday()) + 7) % 7
	first := slot.ValidFrom.AddDays(offset)
	if first.After(slot.ValidTo) {
		return Date{}, false
	}
	return first, true
}

// ── RRULE 展开 ──

var rruleWeekdays = map[Weekday]rrule.Weekday{
	Monday:    rrule.MO,
	Tuesday:   rrule.TU,
	Wednesday: rrule.WE,
	Thursday:  rrule.TH,
	Friday:    rrule.FR,
	Saturday:  rrule.SA,
}

// OccurrenceDates 展开时段在查询窗口内的具体日期
func OccurrenceDates(slot Slot, queryStart, queryEnd Date) ([]Date, error) {
	win, ok := EffectiveWindow(slot, queryStart, queryEnd)
	if !ok {
		return nil, nil
	}
	wd, ok := rruleWeekdays[slot.Weekday]
	if !ok {
		return nil, fmt.Errorf("无效的星期: %d", slot.Weekday)
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{wd},
		Dtstart:   win.Start.Time(),
		Until:     win.End.Time(),
	})
	if err != nil {
		return nil, fmt.Errorf("构建 RRULE 失败: %w", err)
	}

	times := r.All()
	dates := make([]Date, 0, len(times))
	for _, t := range times {
		dates = append(dates, DateOf(t))
	}
	return dates, nil
}

// RRule 生成时段的 RRULE 文本（FREQ=WEEKLY;BYDAY=..;UNTIL=..），UNTIL 取有效期最后一天的结束时刻
func RRule(slot Slot, loc *time.Location) (string, error) {
	wd, ok := rruleWeekdays[slot.Weekday]
	if !ok {
		return "", fmt.Errorf("无效的星期: %d", slot.Weekday)
	}
	if loc == nil {
		loc = time.UTC
	}
	until := time.Date(slot.ValidTo.Year, slot.ValidTo.Month, slot.ValidTo.Day,
		slot.End.Hour, slot.End.Minute, 0, 0, loc)

	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{wd},
		Until:     until,
	}
	return opt.RRuleString(), nil
}
