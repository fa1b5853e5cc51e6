package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"phias/backend/internal/schedule"
)

// ── 外部排课存储 ──────────────────────────────────────────
//
// 导入流水线与规划接口只依赖 Store 接口。
// 本地实现见 service.NewLocalStore（gorm），远程实现为 HTTPClient。
// ─────────────────────────────────────────────────────────────

var (
	ErrNotFound     = errors.New("记录不存在")
	ErrConflict     = errors.New("与已有时段冲突")
	ErrInvalidInput = errors.New("请求参数无效")
	ErrUnauthorized = errors.New("无权访问排课存储")
)

// Mode 时段查询视角
type Mode string

const (
	ModeAll        Mode = ""
	ModeCohort     Mode = "cohort"
	ModeInstructor Mode = "instructor"
	ModeRoom       Mode = "room"
)

// Valid 是否为已知视角
func (m Mode) Valid() bool {
	switch m {
	case ModeAll, ModeCohort, ModeInstructor, ModeRoom:
		return true
	}
	return false
}

// Filter 时段查询条件，Mode 非空时 ID 必填
type Filter struct {
	Mode            Mode
	ID              string
	IncludeInactive bool
}

// SlotUpdate 可修改字段（类型不可修改），nil 表示保持不变
type SlotUpdate struct {
	ValidFrom *schedule.Date
	ValidTo   *schedule.Date
	Weekday   *schedule.Weekday
	Start     *schedule.TimeOfDay
	End       *schedule.TimeOfDay
	Notes     *string
	Kind      *schedule.Kind // 仅用于拒绝修改类型的请求
	Version   int            // 0 表示不做乐观锁校验
}

// Apply 将修改应用到时段副本
func (u SlotUpdate) Apply(s schedule.Slot) schedule.Slot {
	if u.ValidFrom != nil {
		s.ValidFrom = *u.ValidFrom
	}
	if u.ValidTo != nil {
		s.ValidTo = *u.ValidTo
	}
	if u.Weekday != nil {
		s.Weekday = *u.Weekday
	}
	if u.Start != nil {
		s.Start = *u.Start
	}
	if u.End != nil {
		s.End = *u.End
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	return s
}

// ── 参考实体 ──

// Instructor 讲师，自然键为证件号
type Instructor struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

// Room 教室，自然键为编码
type Room struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity,omitempty"`
	Active   bool   `json:"active"`
}

// Cohort 班级，自然键为班级编号
type Cohort struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	ProgramID   string `json:"program_id"`
	ProgramName string `json:"program_name,omitempty"`
	Active      bool   `json:"active"`
}

// Competency 能力项，编码在专业内唯一
type Competency struct {
	ID        string `json:"id"`
	ProgramID string `json:"program_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
}

// LearningOutcome 学习成果，序号（从 1 开始）在能力项内唯一
type LearningOutcome struct {
	ID           string `json:"id"`
	CompetencyID string `json:"competency_id"`
	Ordinal      int    `json:"ordinal"`
	Description  string `json:"description"`
}

// Store 排课存储
type Store interface {
	ListSlots(ctx context.Context, f Filter) ([]schedule.Slot, error)
	GetSlot(ctx context.Context, id string) (schedule.Slot, error)
	CreateSlot(ctx context.Context, slot schedule.Slot) (string, error)
	UpdateSlot(ctx context.Context, id string, u SlotUpdate) error
	SetActive(ctx context.Context, id string, active bool) error

	ListInstructors(ctx context.Context) ([]Instructor, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListCohorts(ctx context.Context) ([]Cohort, error)
	ListCompetencies(ctx context.Context, programID string) ([]Competency, error)
	ListLearningOutcomes(ctx context.Context, competencyID string) ([]LearningOutcome, error)
}

// RemoteError 远程存储拒绝请求
type RemoteError struct {
	Status  int
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("排课存储返回状态 %d", e.Status)
	}
	return e.Message
}

// Unwrap 按状态码映射到本包的哨兵错误，便于 errors.Is 判断
func (e *RemoteError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidInput
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}
