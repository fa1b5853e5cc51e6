package schedule

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ── 时间 / 日期规范化 ──────────────────────────────────────
//
// 表格工具可能把手工输入的 "8:00" 静默转存为 "一天的小数"（0.3333…），
// 因此时间接受两种编码，二者必须得到完全相同的结果。
// 日期只接受 DD/MM/YYYY 文本，不做任何区域相关的推断。
// ─────────────────────────────────────────────────────────────

var (
	ErrTimeOrder = errors.New("开始时间必须早于结束时间")
	ErrDateOrder = errors.New("开始日期不能晚于结束日期")
)

const minutesPerDay = 24 * 60

// FormatError 时间、日期或文件结构格式错误（可在本地恢复）
type FormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("格式错误: %s", e.Reason)
	}
	if e.Value == "" {
		return fmt.Sprintf("%s 格式错误: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s 格式错误 %q: %s", e.Field, e.Value, e.Reason)
}

// ── TimeOfDay ──

// TimeOfDay 一天中的时刻（分钟精度）
type TimeOfDay struct {
	Hour   int
	Minute int
}

// NewTimeOfDay 由分钟数构造时刻
func NewTimeOfDay(minutes int) TimeOfDay {
	return TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}

// Minutes 距 00:00 的分钟数
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// Before 是否早于 o
func (t TimeOfDay) Before(o TimeOfDay) bool { return t.Minutes() < o.Minutes() }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// ── Date ──

// Date 不含时区的日历日期
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf 取 time.Time 的日历日期部分
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time 转为当天 00:00 UTC
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays 加减天数
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

// Before 是否早于 o
func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

// After 是否晚于 o
func (d Date) After(o Date) bool { return d.Time().After(o.Time()) }

// IsZero 是否为零值
func (d Date) IsZero() bool { return d == Date{} }

// DaysUntil 到 o 的天数（o 早于 d 时为负）
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

func (d Date) String() string { return d.Time().Format("2006-01-02") }

// ── 导入单元格规范化 ──

var (
	clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)
	datePattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// NormalizeTime 规范化导入单元格中的时间：
// 文本 H:MM / HH:MM（可带被忽略的秒），或 [0,1) 的一天小数。
func NormalizeTime(raw string) (TimeOfDay, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TimeOfDay{}, &FormatError{Reason: "时间为空"}
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		t := TimeOfDay{Hour: hour, Minute: minute}
		if !t.valid() {
			return TimeOfDay{}, &FormatError{Value: s, Reason: "超出范围"}
		}
		return t, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return TimeOfDay{}, &FormatError{Value: s, Reason: "应为 HH:MM"}
	}
	return TimeFromDayFraction(v)
}

// TimeFromDayFraction 将一天小数 v ∈ [0,1) 转为时刻：round(v*1440) 分钟
func TimeFromDayFraction(v float64) (TimeOfDay, error) {
	if math.IsNaN(v) || v < 0 || v >= 1 {
		return TimeOfDay{}, &FormatError{Value: strconv.FormatFloat(v, 'f', -1, 64), Reason: "一天小数必须在 [0,1) 内"}
	}
	total := int(math.Round(v * minutesPerDay))
	t := NewTimeOfDay(total)
	if !t.valid() {
		return TimeOfDay{}, &FormatError{Value: strconv.FormatFloat(v, 'f', -1, 64), Reason: "超出范围"}
	}
	return t, nil
}

// NormalizeDate 规范化导入单元格中的日期，仅接受 DD/MM/YYYY
func NormalizeDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, &FormatError{Reason: "日期为空"}
	}
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, &FormatError{Value: s, Reason: "应为 DD/MM/YYYY"}
	}
	nums := make([]int, 3)
	for i := range nums {
		nums[i], _ = strconv.Atoi(m[i+1])
	}
	d := Date{Year: nums[2], Month: time.Month(nums[1]), Day: nums[0]}
	if d.Year < 1 || d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return Date{}, &FormatError{Value: s, Reason: "超出范围"}
	}
	// time.Date 会把 31/02 归一化到 03 月，借此识别非法日期
	if DateOf(d.Time()) != d {
		return Date{}, &FormatError{Value: s, Reason: "不存在的日期"}
	}
	return d, nil
}

// ── API / 数据库编码 ──

// ParseClock 解析 API 与数据库中的 "15:04" 或 "15:04:05"
func ParseClock(s string) (TimeOfDay, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return TimeOfDay{}, &FormatError{Value: s, Reason: "应为 HH:MM"}
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.valid() {
		return TimeOfDay{}, &FormatError{Value: s, Reason: "超出范围"}
	}
	return t, nil
}

// ParseISODate 解析 "2006-01-02"
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, &FormatError{Value: s, Reason: "应为 YYYY-MM-DD"}
	}
	return DateOf(t), nil
}

// FoldKey 去除重音、统一小写并压缩空白，用于表头与枚举值匹配
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
