package importer

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"phias/backend/internal/store"
)

// ── 导入会话状态机 ──────────────────────────────────────────
//
//	Upload ──FileSubmitted──▶ Validating ──ValidationPassed──▶ Processing ──ProcessingDone──▶ Results
//	  ▲                           │                                                           │
//	  └──────ValidationFailed─────┘◀──────────────────────────Retry───────────────────────────┘
//
// Upload 与 Results 均可 Close。存在任何诊断时不会发起任何创建调用。
// ─────────────────────────────────────────────────────────────

// State 会话状态
type State string

const (
	StateUpload     State = "upload"
	StateValidating State = "validating"
	StateProcessing State = "processing"
	StateResults    State = "results"
	StateClosed     State = "closed"
)

// Event 状态迁移事件
type Event string

const (
	EventFileSubmitted    Event = "file_submitted"
	EventValidationFailed Event = "validation_failed"
	EventValidationPassed Event = "validation_passed"
	EventProcessingDone   Event = "processing_done"
	EventRetry            Event = "retry"
	EventClose            Event = "close"
)

var transitions = map[State]map[Event]State{
	StateUpload: {
		EventFileSubmitted: StateValidating,
		EventClose:         StateClosed,
	},
	StateValidating: {
		EventValidationFailed: StateUpload,
		EventValidationPassed: StateProcessing,
	},
	StateProcessing: {
		EventProcessingDone: StateResults,
	},
	StateResults: {
		EventRetry: StateUpload,
		EventClose: StateClosed,
	},
}

// Next 查询迁移表；不允许的事件返回 ErrInvalidTransition
func Next(from State, ev Event) (State, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	if from == StateClosed {
		return from, ErrSessionClosed
	}
	return from, fmt.Errorf("%w: %s --%s-->", ErrInvalidTransition, from, ev)
}

// cancelledMessage 取消后未提交行的结果说明
const cancelledMessage = "已取消：导入在提交本行前被中止"

// Options 会话参数
type Options struct {
	MaxRows    int
	OnProgress func(done, total int) // 每处理完一行回调一次
}

// Session 单个导入会话，持有私有的参考索引与进度，不可并发使用
type Session struct {
	ID       string
	Scope    Scope
	ScopeKey string
	Owner    string // 发起导入的 user_id，空表示不限

	st     store.Store
	logger *zap.Logger
	opts   Options

	state       State
	index       *ReferenceIndex
	bind        binding
	rows        []ResolvedRow
	processed   int
	diagnostics []Diagnostic
	report      *Report
	updatedAt   time.Time
}

// NewSession 创建处于 Upload 状态的会话
func NewSession(id string, scope Scope, scopeKey string, st store.Store, logger *zap.Logger, opts Options) *Session {
	return &Session{
		ID:        id,
		Scope:     scope,
		ScopeKey:  scopeKey,
		st:        st,
		logger:    logger.With(zap.String("import_id", id), zap.String("scope", string(scope))),
		opts:      opts,
		state:     StateUpload,
		updatedAt: time.Now(),
	}
}

// State 当前状态
func (s *Session) State() State { return s.state }

// Diagnostics 最近一次校验的全部诊断
func (s *Session) Diagnostics() []Diagnostic { return s.diagnostics }

// Report 处理报告，仅在 Results 状态下非空
func (s *Session) Report() *Report { return s.report }

// Pending 已通过校验、等待提交的行数
func (s *Session) Pending() int { return len(s.rows) }

func (s *Session) fire(ev Event) error {
	to, err := Next(s.state, ev)
	if err != nil {
		return err
	}
	s.logger.Debug("导入会话状态迁移",
		zap.String("from", string(s.state)),
		zap.String("event", string(ev)),
		zap.String("to", string(to)),
	)
	s.state = to
	s.updatedAt = time.Now()
	return nil
}

// ────────────────────── Submit ──────────────────────

// Submit 上传文件并完成校验。
//   - 结构性错误（缺少工作表、缺列等）：返回错误，状态保持 Upload
//   - 存在诊断：回到 Upload，返回 *GateError，诊断见 Diagnostics()
//   - 全部通过：进入 Processing，等待 Process
func (s *Session) Submit(ctx context.Context, r io.Reader) error {
	if s.state != StateUpload {
		_, err := Next(s.state, EventFileSubmitted)
		return err
	}
	s.rows, s.diagnostics, s.report, s.processed = nil, nil, nil, 0

	raws, err := ParseWorkbook(r, s.Scope, s.opts.MaxRows)
	if err != nil {
		s.logger.Info("导入文件结构无效", zap.Error(err))
		return err
	}
	if err := s.fire(EventFileSubmitted); err != nil {
		return err
	}

	rows, diags, err := s.validate(ctx, raws)
	if err != nil {
		_ = s.fire(EventValidationFailed)
		return err
	}
	if len(diags) > 0 {
		s.diagnostics = diags
		s.logger.Info("导入校验未通过", zap.Int("rows", len(raws)), zap.Int("diagnostics", len(diags)))
		_ = s.fire(EventValidationFailed)
		return &GateError{Count: len(diags)}
	}

	s.rows = rows
	s.logger.Info("导入校验通过", zap.Int("rows", len(rows)))
	return s.fire(EventValidationPassed)
}

// prepare 首次校验时构建参考索引并解析会话绑定
func (s *Session) prepare(ctx context.Context) error {
	if s.index != nil {
		return nil
	}
	index, err := NewReferenceIndex(ctx, s.st)
	if err != nil {
		return err
	}

	bind := binding{scope: s.Scope}
	switch s.Scope {
	case ScopeCohort:
		c, ok := index.Cohort(s.ScopeKey)
		if !ok {
			return fmt.Errorf("%w: 班级 %q", ErrUnknownScopeKey, s.ScopeKey)
		}
		bind.cohort = c
	case ScopeInstructor:
		in, ok := index.Instructor(s.ScopeKey)
		if !ok {
			return fmt.Errorf("%w: 讲师 %q", ErrUnknownScopeKey, s.ScopeKey)
		}
		bind.instructor = in
	default:
		return ErrUnknownScope
	}

	s.index, s.bind = index, bind
	return nil
}

// validate 逐行校验，收集全部诊断
func (s *Session) validate(ctx context.Context, raws []RawRow) ([]ResolvedRow, []Diagnostic, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, nil, err
	}
	var (
		rows  []ResolvedRow
		diags []Diagnostic
	)
	for _, raw := range raws {
		row, rowDiags, err := validateRow(ctx, s.index, s.bind, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("第 %d 行: %w", raw.Number, err)
		}
		if len(rowDiags) > 0 {
			diags = append(diags, rowDiags...)
			continue
		}
		rows = append(rows, row)
	}
	return rows, diags, nil
}

// ────────────────────── Process ──────────────────────

// Process 按行顺序逐个提交，单行失败不影响后续行。
// ctx 取消后剩余行不再提交，在报告中记为失败。
func (s *Session) Process(ctx context.Context) (*Report, error) {
	if s.state != StateProcessing {
		_, err := Next(s.state, EventProcessingDone)
		return nil, err
	}

	total := len(s.rows)
	report := &Report{Total: total, Rows: make([]RowOutcome, 0, total)}
	for i, row := range s.rows {
		if ctx.Err() != nil {
			for _, rest := range s.rows[i:] {
				report.record(RowOutcome{Row: rest.Number, Outcome: OutcomeError, Message: cancelledMessage})
			}
			s.logger.Warn("导入被取消", zap.Int("submitted", i), zap.Int("total", total))
			break
		}

		id, err := s.st.CreateSlot(ctx, row.Slot)
		if err != nil {
			s.logger.Info("创建时段失败", zap.Int("row", row.Number), zap.Error(err))
			report.record(RowOutcome{Row: row.Number, Outcome: OutcomeError, Message: err.Error()})
		} else {
			report.record(RowOutcome{Row: row.Number, Outcome: OutcomeSuccess, SlotID: id})
		}
		s.processed = i + 1

		if s.opts.OnProgress != nil {
			s.opts.OnProgress(i+1, total)
		}
	}

	s.report = report
	s.rows = nil
	s.logger.Info("导入处理完成",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return report, s.fire(EventProcessingDone)
}

// ────────────────────── Retry / Close ──────────────────────

// Retry 从 Results 回到 Upload 并清空全部状态（含参考索引）
func (s *Session) Retry() error {
	if err := s.fire(EventRetry); err != nil {
		return err
	}
	s.rows, s.diagnostics, s.report, s.index, s.processed = nil, nil, nil, nil, 0
	return nil
}

// Close 结束会话
func (s *Session) Close() error {
	if err := s.fire(EventClose); err != nil {
		return err
	}
	s.rows, s.index = nil, nil
	return nil
}

// ────────────────────── Snapshot ──────────────────────

// Snapshot 会话的可序列化视图（不含参考索引）
type Snapshot struct {
	ID          string       `json:"id"`
	Scope       Scope        `json:"scope"`
	ScopeKey    string       `json:"scope_key"`
	Owner       string       `json:"owner,omitempty"`
	State       State        `json:"state"`
	Pending     int          `json:"pending"`
	Processed   int          `json:"processed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Report      *Report      `json:"report,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Snapshot 当前会话快照
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:          s.ID,
		Scope:       s.Scope,
		ScopeKey:    s.ScopeKey,
		Owner:       s.Owner,
		State:       s.state,
		Pending:     len(s.rows),
		Processed:   s.processed,
		Diagnostics: s.diagnostics,
		Report:      s.report,
		UpdatedAt:   s.updatedAt,
	}
}
