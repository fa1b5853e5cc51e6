package schedule

import (
	"errors"
	"fmt"
	"sort"
)

// ── 周视图网格布局 ──────────────────────────────────────────
//
// 网格以固定的最早小时为原点，每个时段块的位置与高度以分钟表示。
// 块越矮能展示的文字越少，Disclosure 给出按高度分级的展示策略。
// 同一列中时间重叠的块默认分配并排的"泳道"，StackOverlaps 可恢复为直接叠放。
// ─────────────────────────────────────────────────────────────

// ErrBeforeGridOrigin 时段早于网格起点：属于配置错误，原点需覆盖完整的营业时间
var ErrBeforeGridOrigin = errors.New("时段开始时间早于网格起点")

// Block 时段在网格中的位置
type Block struct {
	Slot             Slot
	TopOffsetMinutes int
	HeightMinutes    int
	Lane             int // 从 0 开始
	Lanes            int // 所在重叠簇的泳道总数
	Detail           DetailLevel
}

// Layout 计算时段相对网格原点的偏移与高度
func Layout(slot Slot, originHour int) (Block, error) {
	top := (slot.Start.Hour-originHour)*60 + slot.Start.Minute
	if top < 0 {
		return Block{}, fmt.Errorf("%w: %s 早于 %02d:00", ErrBeforeGridOrigin, slot.Start, originHour)
	}
	return Block{
		Slot:             slot,
		TopOffsetMinutes: top,
		HeightMinutes:    slot.DurationMinutes(),
		Lanes:            1,
	}, nil
}

// ── 渐进展示 ──

// DetailLevel 时段块的文字展示级别
type DetailLevel int

const (
	DetailLabel       DetailLevel = iota // 仅主标签
	DetailParticipant                    // + 参与方（讲师 / 班级）
	DetailLocation                       // + 教室
	DetailFull                           // + 开始时间
)

func (l DetailLevel) String() string {
	switch l {
	case DetailParticipant:
		return "participant"
	case DetailLocation:
		return "location"
	case DetailFull:
		return "full"
	default:
		return "label"
	}
}

// ShowParticipant 是否展示参与方
func (l DetailLevel) ShowParticipant() bool { return l >= DetailParticipant }

// ShowLocation 是否展示教室
func (l DetailLevel) ShowLocation() bool { return l >= DetailLocation }

// ShowStartTime 是否展示开始时间
func (l DetailLevel) ShowStartTime() bool { return l >= DetailFull }

// Thresholds 各展示级别所需的最小高度（分钟）
type Thresholds struct {
	Participant int
	Location    int
	StartTime   int
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{Participant: 45, Location: 75, StartTime: 105}
}

// Disclosure 按块高度决定展示级别（阶梯函数）
func Disclosure(heightMinutes int, th Thresholds) DetailLevel {
	switch {
	case heightMinutes >= th.StartTime:
		return DetailFull
	case heightMinutes >= th.Location:
		return DetailLocation
	case heightMinutes >= th.Participant:
		return DetailParticipant
	default:
		return DetailLabel
	}
}

// ── 网格 ──

// GridOptions 网格参数
type GridOptions struct {
	OriginHour    int
	EndHour       int
	Thresholds    Thresholds
	StackOverlaps bool
}

// Column 某一星期的列
type Column struct {
	Weekday Weekday
	Blocks  []Block
}

// Grid 周视图网格，列固定为 周一..周六
type Grid struct {
	OriginHour    int
	EndHour       int
	HeightMinutes int
	Columns       []Column
}

// BuildGrid 将一组时段投影到周视图网格
func BuildGrid(slots []Slot, opts GridOptions) (Grid, error) {
	grid := Grid{
		OriginHour:    opts.OriginHour,
		EndHour:       opts.EndHour,
		HeightMinutes: (opts.EndHour - opts.OriginHour) * 60,
		Columns:       make([]Column, 0, len(Weekdays)),
	}

	byDay := make(map[Weekday][]Block, len(Weekdays))
	for _, slot := range slots {
		if !slot.Weekday.Valid() {
			continue
		}
		block, err := Layout(slot, opts.OriginHour)
		if err != nil {
			return Grid{}, fmt.Errorf("时段 %s: %w", slot.ID, err)
		}
		block.Detail = Disclosure(block.HeightMinutes, opts.Thresholds)
		if end := block.TopOffsetMinutes + block.HeightMinutes; end > grid.HeightMinutes {
			grid.HeightMinutes = end
		}
		byDay[slot.Weekday] = append(byDay[slot.Weekday], block)
	}

	for _, w := range Weekdays {
		blocks := byDay[w]
		sort.SliceStable(blocks, func(i, j int) bool {
			if blocks[i].TopOffsetMinutes != blocks[j].TopOffsetMinutes {
				return blocks[i].TopOffsetMinutes < blocks[j].TopOffsetMinutes
			}
			return blocks[i].HeightMinutes > blocks[j].HeightMinutes
		})
		if !opts.StackOverlaps {
			assignLanes(blocks)
		}
		grid.Columns = append(grid.Columns, Column{Weekday: w, Blocks: blocks})
	}
	return grid, nil
}

// assignLanes 对已按开始时间排序的块分配泳道。
// 传递性重叠的块组成一个簇，簇内贪心复用最早空出的泳道。
func assignLanes(blocks []Block) {
	clusterStart := 0
	clusterEnd := -1
	var laneEnds []int

	flush := func(until int) {
		for i := clusterStart; i < until; i++ {
			blocks[i].Lanes = len(laneEnds)
		}
	}

	for i := range blocks {
		top := blocks[i].TopOffsetMinutes
		bottom := top + blocks[i].HeightMinutes
		if i > clusterStart && top >= clusterEnd {
			flush(i)
			clusterStart = i
			laneEnds = laneEnds[:0]
		}

		lane := -1
		for l, end := range laneEnds {
			if end <= top {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, bottom)
		} else {
			laneEnds[lane] = bottom
		}
		blocks[i].Lane = lane

		if i == clusterStart || bottom > clusterEnd {
			clusterEnd = bottom
		}
	}
	flush(len(blocks))
}
