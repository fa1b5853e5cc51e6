package dto

// ── 规划（工时 / 周视图 / 发生日期）DTO ──

// HoursRequest 工时汇总查询参数，日期为 YYYY-MM-DD，闭区间
type HoursRequest struct {
	Mode string `form:"mode" binding:"omitempty,oneof=cohort instructor room"`
	ID   string `form:"id"   binding:"required_with=Mode"`
	From string `form:"from" binding:"required"`
	To   string `form:"to"   binding:"required"`
}

// WeekdayCount 统计周期内某星期出现的天数
type WeekdayCount struct {
	Weekday int    `json:"weekday"`
	Name    string `json:"name"`
	Count   int    `json:"count"`
}

// SlotHoursResponse 单个时段的工时明细
type SlotHoursResponse struct {
	SlotID      string  `json:"slot_id"`
	Kind        string  `json:"kind"`
	Weekday     int     `json:"weekday"`
	Label       string  `json:"label,omitempty"`
	Occurrences int     `json:"occurrences"`
	Hours       float64 `json:"hours"`
}

// HoursResponse 工时汇总；数值已按一位小数舍入，仅用于展示
type HoursResponse struct {
	From                 string              `json:"from"`
	To                   string              `json:"to"`
	Total                float64             `json:"total"`
	ByKind               map[string]float64  `json:"by_kind"`
	OccurrencesByWeekday []WeekdayCount      `json:"occurrences_by_weekday"`
	Slots                []SlotHoursResponse `json:"slots"`
}

// GridRequest 周视图查询参数
type GridRequest struct {
	Mode string `form:"mode" binding:"required,oneof=cohort instructor room"`
	ID   string `form:"id"   binding:"required"`
}

// GridBlockResponse 网格中的时段块；按高度逐级展示参与方、教室、开始时间
type GridBlockResponse struct {
	SlotID           string `json:"slot_id"`
	Kind             string `json:"kind"`
	Label            string `json:"label"`
	TopOffsetMinutes int    `json:"top_offset_minutes"`
	HeightMinutes    int    `json:"height_minutes"`
	Lane             int    `json:"lane"`
	Lanes            int    `json:"lanes"`
	Detail           string `json:"detail"`
	Participant      string `json:"participant,omitempty"`
	Location         string `json:"location,omitempty"`
	StartTime        string `json:"start_time,omitempty"`
}

// GridColumnResponse 某一星期的列
type GridColumnResponse struct {
	Weekday int                 `json:"weekday"`
	Name    string              `json:"name"`
	Blocks  []GridBlockResponse `json:"blocks"`
}

// GridResponse 周视图网格
type GridResponse struct {
	OriginHour    int                  `json:"origin_hour"`
	EndHour       int                  `json:"end_hour"`
	HeightMinutes int                  `json:"height_minutes"`
	Columns       []GridColumnResponse `json:"columns"`
}

// OccurrencesRequest 时段发生日期查询参数
type OccurrencesRequest struct {
	SlotID string `form:"slot_id" binding:"required"`
	From   string `form:"from"    binding:"required"`
	To     string `form:"to"      binding:"required"`
}

// OccurrencesResponse 时段在查询区间内的具体日期
type OccurrencesResponse struct {
	SlotID string   `json:"slot_id"`
	From   string   `json:"from"`
	To     string   `json:"to"`
	Count  int      `json:"count"`
	Hours  float64  `json:"hours"`
	Dates  []string `json:"dates"`
}

// ICSRequest 日历导出参数
type ICSRequest struct {
	Mode string `form:"mode" binding:"required,oneof=cohort instructor room"`
	ID   string `form:"id"   binding:"required"`
}
