package schedule

import "math"

// SlotHours 单个时段在统计周期内的明细
type SlotHours struct {
	SlotID      string
	Kind        Kind
	Weekday     Weekday
	Occurrences int
	Hours       float64
}

// HoursSummary 工时汇总
//
// Total 只累计 CLASS 与 SUPPORT（预约不算工作量），RESERVATION 仍在 ByKind 中单独统计。
// OccurrencesByWeekday 是统计周期本身包含的各星期天数，用于向用户说明
// "本月有 N 个周一、M 个周二……"。
type HoursSummary struct {
	Total                float64
	ByKind               map[Kind]float64
	OccurrencesByWeekday map[Weekday]int
	Slots                []SlotHours
}

// AggregateHours 计算一组时段在 [periodStart, periodEnd] 内的排课工时。
// 中间值不做任何舍入，展示时再调用 RoundHours。停用的时段不计入。
func AggregateHours(slots []Slot, periodStart, periodEnd Date) HoursSummary {
	summary := HoursSummary{
		ByKind:               make(map[Kind]float64, len(Kinds)),
		OccurrencesByWeekday: make(map[Weekday]int, len(Weekdays)),
	}
	for _, k := range Kinds {
		summary.ByKind[k] = 0
	}
	for _, w := range Weekdays {
		summary.OccurrencesByWeekday[w] = CountOccurrences(w, periodStart, periodEnd)
	}

	for _, slot := range slots {
		if !slot.Active {
			continue
		}
		occurrences := 0
		if win, ok := EffectiveWindow(slot, periodStart, periodEnd); ok {
			occurrences = CountOccurrences(slot.Weekday, win.Start, win.End)
		}
		hours := float64(occurrences) * slot.WeeklyHours()
		summary.ByKind[slot.Kind] += hours
		summary.Slots = append(summary.Slots, SlotHours{
			SlotID:      slot.ID,
			Kind:        slot.Kind,
			Weekday:     slot.Weekday,
			Occurrences: occurrences,
			Hours:       hours,
		})
	}

	for _, k := range Kinds {
		if k.IsLabor() {
			summary.Total += summary.ByKind[k]
		}
	}
	return summary
}

// RoundHours 展示用的一位小数舍入
func RoundHours(v float64) float64 {
	return math.Round(v*10) / 10
}
