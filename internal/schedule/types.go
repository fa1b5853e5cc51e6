package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ── 时段类型 ──

// Kind 周期时段类型（封闭集合）
type Kind string

const (
	KindClass       Kind = "CLASS"
	KindSupport     Kind = "SUPPORT"
	KindReservation Kind = "RESERVATION"
)

// Kinds 全部时段类型，按展示顺序
var Kinds = []Kind{KindClass, KindSupport, KindReservation}

// IsLabor 是否计入工时（预约不计）
func (k Kind) IsLabor() bool {
	return k == KindClass || k == KindSupport
}

// Valid 是否为已知类型
func (k Kind) Valid() bool {
	switch k {
	case KindClass, KindSupport, KindReservation:
		return true
	}
	return false
}

// ParseKind 解析类型标识，兼容导入表格中的西语写法 CLASE / APOYO / RESERVA
func ParseKind(raw string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CLASS", "CLASE":
		return KindClass, true
	case "SUPPORT", "APOYO":
		return KindSupport, true
	case "RESERVATION", "RESERVA":
		return KindReservation, true
	}
	return "", false
}

// ── 星期 ──

// Weekday 可排课星期，1=周一 … 6=周六（ISO 编号，周日不可排）
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Weekdays 全部可排课星期
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var weekdayNames = map[Weekday]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
}

// weekdayAliases 大写、去重音后的名称 → 星期
var weekdayAliases = map[string]Weekday{
	"MONDAY": Monday, "LUNES": Monday,
	"TUESDAY": Tuesday, "MARTES": Tuesday,
	"WEDNESDAY": Wednesday, "MIERCOLES": Wednesday,
	"THURSDAY": Thursday, "JUEVES": Thursday,
	"FRIDAY": Friday, "VIERNES": Friday,
	"SATURDAY": Saturday, "SABADO": Saturday,
}

// Valid 是否在 周一..周六 范围内
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Saturday
}

func (w Weekday) String() string {
	if name, ok := weekdayNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(w))
}

// Time 转为 Go 的 time.Weekday
func (w Weekday) Time() time.Weekday {
	return time.Weekday(int(w) % 7)
}

// ParseWeekday 按名称（中性大小写、可带重音）或 ISO 编号解析星期
func ParseWeekday(raw string) (Weekday, bool) {
	key := FoldKey(raw)
	if key == "" {
		return 0, false
	}
	if w, ok := weekdayAliases[strings.ToUpper(key)]; ok {
		return w, true
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '6' {
		return Weekday(key[0] - '0'), true
	}
	return 0, false
}

// WeekdayOf 日期对应的可排课星期，周日返回 false
func WeekdayOf(d Date) (Weekday, bool) {
	wd := d.Time().Weekday()
	if wd == time.Sunday {
		return 0, false
	}
	return Weekday(wd), true
}

// ── 周期时段 ──

// Slot 周期性每周时段，受有效期约束
type Slot struct {
	ID        string
	Kind      Kind    `validate:"required,oneof=CLASS SUPPORT RESERVATION"`
	Weekday   Weekday `validate:"min=1,max=6"`
	Start     TimeOfDay
	End       TimeOfDay
	ValidFrom Date
	ValidTo   Date
	Active    bool
	Version   int // 存储端乐观锁版本

	CohortID          string `validate:"required_if=Kind CLASS"`
	CompetencyID      string `validate:"required_if=Kind CLASS"`
	LearningOutcomeID string `validate:"required_if=Kind CLASS"`
	InstructorID      string `validate:"required"`
	RoomID            string `validate:"required_unless=Kind SUPPORT"`

	Topic       string
	SupportType string `validate:"required_if=Kind SUPPORT"`
	Reason      string `validate:"required_if=Kind RESERVATION"`
	Notes       string

	// 展示用名称，由存储端填充
	CohortName     string
	InstructorName string
	RoomName       string
	Label          string
}

var slotValidator = validator.New()

// WeeklyHours 每周时长（小时），由起止时间派生
func (s Slot) WeeklyHours() float64 {
	return float64(s.DurationMinutes()) / 60
}

// DurationMinutes 单次时长（分钟）
func (s Slot) DurationMinutes() int {
	return s.End.Minutes() - s.Start.Minutes()
}

// Validate 校验时段结构：类型相关必填引用、时间顺序、有效期顺序
func (s Slot) Validate() error {
	if err := slotValidator.Struct(s); err != nil {
		return fmt.Errorf("时段字段校验失败: %w", err)
	}
	if !s.Start.Before(s.End) {
		return ErrTimeOrder
	}
	if s.ValidTo.Before(s.ValidFrom) {
		return ErrDateOrder
	}
	return nil
}
