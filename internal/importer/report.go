package importer

import (
	"errors"
	"fmt"
)

// ── 导入模块错误 ──

var (
	ErrUnknownScope      = errors.New("未知的导入范围")
	ErrUnknownScopeKey   = errors.New("导入范围绑定的班级或讲师不存在")
	ErrNoData            = errors.New("工作表无数据行（第一行为表头）")
	ErrTooManyRows       = errors.New("数据行数超过上限")
	ErrValidationGate    = errors.New("导入数据校验未通过")
	ErrInvalidTransition = errors.New("当前状态不允许该操作")
	ErrSessionClosed     = errors.New("导入会话已关闭")
)

// GateError 校验未通过：携带诊断条数，errors.Is(err, ErrValidationGate) 为真
type GateError struct {
	Count int
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %d 条问题", ErrValidationGate.Error(), e.Count)
}

func (e *GateError) Unwrap() error { return ErrValidationGate }

// ReferenceError 自然键无法解析到参考实体
type ReferenceError struct {
	Field string
	Key   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %q 不存在", e.Field, e.Key)
}

// ── 诊断与报告 ──

// Diagnostic 单条校验问题，仅作提示，不会中断校验
type Diagnostic struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Outcome 单行处理结果
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// RowOutcome 单行处理明细
type RowOutcome struct {
	Row     int     `json:"row"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`
	SlotID  string  `json:"slot_id,omitempty"`
}

// Report 处理阶段的汇总报告
type Report struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Rows      []RowOutcome `json:"rows"`
}

func (r *Report) record(o RowOutcome) {
	r.Rows = append(r.Rows, o)
	if o.Outcome == OutcomeSuccess {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// CapDiagnostics 截取前 limit 条用于展示，返回被省略的条数；limit<=0 表示不截取
func CapDiagnostics(diags []Diagnostic, limit int) ([]Diagnostic, int) {
	if limit <= 0 || len(diags) <= limit {
		return diags, 0
	}
	return diags[:limit], len(diags) - limit
}
