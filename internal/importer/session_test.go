package importer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"phias/backend/internal/schedule"
	"phias/backend/internal/store"
)

func newCohortSession(st store.Store) *Session {
	return NewSession("imp-1", ScopeCohort, "2675859", st, zap.NewNop(), Options{MaxRows: 100})
}

func newInstructorSession(st store.Store) *Session {
	return NewSession("imp-2", ScopeInstructor, "1020304050", st, zap.NewNop(), Options{MaxRows: 100})
}

// ── 状态机 ──

func TestNext_Transitions(t *testing.T) {
	valid := []struct {
		from State
		ev   Event
		to   State
	}{
		{StateUpload, EventFileSubmitted, StateValidating},
		{StateValidating, EventValidationFailed, StateUpload},
		{StateValidating, EventValidationPassed, StateProcessing},
		{StateProcessing, EventProcessingDone, StateResults},
		{StateResults, EventRetry, StateUpload},
		{StateResults, EventClose, StateClosed},
		{StateUpload, EventClose, StateClosed},
	}
	for _, tc := range valid {
		got, err := Next(tc.from, tc.ev)
		if err != nil || got != tc.to {
			t.Errorf("%s --%s-->: 期望 %s，实际 %s (%v)", tc.from, tc.ev, tc.to, got, err)
		}
	}

	invalid := []struct {
		from State
		ev   Event
	}{
		{StateUpload, EventProcessingDone},
		{StateUpload, EventRetry},
		{StateValidating, EventClose},
		{StateProcessing, EventRetry},
		{StateResults, EventFileSubmitted},
	}
	for _, tc := range invalid {
		if _, err := Next(tc.from, tc.ev); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s --%s--> 应为非法迁移，实际 %v", tc.from, tc.ev, err)
		}
	}

	if _, err := Next(StateClosed, EventRetry); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("已关闭会话应返回 ErrSessionClosed，实际 %v", err)
	}
}

// ── 完整流程 ──

func TestSession_HappyPath(t *testing.T) {
	st := newMockStore()
	s := newCohortSession(st)

	file := buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("Miércoles", 0.3333333, 0.4166666666666667, "9988776655", "amb-202", "220501046", "2"),
	)
	if err := s.Submit(context.Background(), file); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if s.State() != StateProcessing || s.Pending() != 2 {
		t.Fatalf("期望 Processing 且待提交 2 行，实际 %s / %d", s.State(), s.Pending())
	}

	report, err := s.Process(context.Background())
	if err != nil {
		t.Fatalf("Process 应成功: %v", err)
	}
	if report.Total != 2 || report.Succeeded != 2 || report.Failed != 0 {
		t.Errorf("报告错误: %+v", report)
	}
	if s.State() != StateResults {
		t.Errorf("期望 Results，实际 %s", s.State())
	}

	second := st.created[1]
	if second.Start != (schedule.TimeOfDay{Hour: 8}) || second.End != (schedule.TimeOfDay{Hour: 10}) {
		t.Errorf("一天小数应规范化为 08:00-10:00，实际 %s-%s", second.Start, second.End)
	}
	if second.Weekday != schedule.Wednesday || second.RoomID != "room-2" || second.LearningOutcomeID != "lo-2" {
		t.Errorf("引用解析错误: %+v", second)
	}
	if second.Kind != schedule.KindClass || second.CohortID != "cohort-1" {
		t.Errorf("按班级导入应为 CLASS 且绑定班级，实际 %+v", second)
	}
	if st.competencyCalls != 1 {
		t.Errorf("同一专业的能力项只应加载一次，实际 %d 次", st.competencyCalls)
	}
}

func TestSession_UnknownRoomBlocksWholeBatch(t *testing.T) {
	st := newMockStore()
	s := newCohortSession(st)

	file := buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("MARTES", "08:00", "10:00", "1020304050", "AMB-999", "220501046", "1"),
		cohortRow("JUEVES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	)
	err := s.Submit(context.Background(), file)

	var gate *GateError
	if !errors.As(err, &gate) || !errors.Is(err, ErrValidationGate) {
		t.Fatalf("期望 GateError，实际 %v", err)
	}
	diags := s.Diagnostics()
	if len(diags) != 1 || gate.Count != 1 {
		t.Fatalf("期望 1 条诊断，实际 %v", diags)
	}
	if diags[0].Row != 3 || diags[0].Field != ColRoom.Label() || !strings.Contains(diags[0].Message, "AMB-999") {
		t.Errorf("诊断内容错误: %+v", diags[0])
	}
	if st.createCalls != 0 {
		t.Errorf("存在诊断时不应发起创建，实际 %d 次", st.createCalls)
	}
	if s.State() != StateUpload || s.Pending() != 0 {
		t.Errorf("期望回到 Upload 且无待提交行，实际 %s / %d", s.State(), s.Pending())
	}
	if _, err := s.Process(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Upload 状态下不允许处理，实际 %v", err)
	}
}

func TestSession_StoreRejectsOneRow(t *testing.T) {
	st := newMockStore()
	st.rejectCall[2] = &store.RemoteError{Status: 409, Message: "与已有时段冲突"}
	s := newCohortSession(st)

	file := buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("MARTES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("JUEVES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	)
	if err := s.Submit(context.Background(), file); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	report, err := s.Process(context.Background())
	if err != nil {
		t.Fatalf("Process 应成功: %v", err)
	}
	if report.Total != 3 || report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("期望 3/2/1，实际 %d/%d/%d", report.Total, report.Succeeded, report.Failed)
	}
	wantOutcomes := []Outcome{OutcomeSuccess, OutcomeError, OutcomeSuccess}
	for i, o := range report.Rows {
		if o.Outcome != wantOutcomes[i] {
			t.Errorf("第 %d 行期望 %s，实际 %s", o.Row, wantOutcomes[i], o.Outcome)
		}
	}
	if report.Rows[1].Message != "与已有时段冲突" || report.Rows[1].Row != 3 {
		t.Errorf("失败行信息错误: %+v", report.Rows[1])
	}
	if report.Rows[0].SlotID == "" {
		t.Error("成功行应记录时段 ID")
	}
}

func TestSession_AllFieldsCheckedInRow(t *testing.T) {
	s := newCohortSession(newMockStore())
	file := buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("DOMINGO", "8h", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	)
	_ = s.Submit(context.Background(), file)

	diags := s.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("两个无效字段应产生 2 条诊断，实际 %v", diags)
	}
	if diags[0].Field != ColWeekday.Label() || diags[1].Field != ColStartTime.Label() {
		t.Errorf("诊断字段错误: %+v", diags)
	}
}

func TestSession_TimeAndDateOrder(t *testing.T) {
	s := newCohortSession(newMockStore())
	row := cohortRow("LUNES", "10:00", "08:00", "1020304050", "AMB-101", "220501046", "1")
	row[8], row[9] = "30/03/2026", "05/01/2026"
	_ = s.Submit(context.Background(), buildWorkbook(t, SheetName, cohortHeader, row))

	diags := s.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("期望时间与日期顺序各 1 条诊断，实际 %v", diags)
	}
	if diags[0].Field != ColEndTime.Label() || diags[1].Field != ColEndDate.Label() {
		t.Errorf("诊断字段错误: %+v", diags)
	}
}

func TestSession_TwoDigitYearRejected(t *testing.T) {
	st := newMockStore()
	s := newCohortSession(st)
	row := cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1")
	row[8], row[9] = "05/01/26", "30/03/26"

	err := s.Submit(context.Background(), buildWorkbook(t, SheetName, cohortHeader, row))
	if !errors.Is(err, ErrValidationGate) {
		t.Fatalf("两位年份应被拦截，实际 %v", err)
	}
	diags := s.Diagnostics()
	if len(diags) != 2 || diags[0].Field != ColStartDate.Label() || diags[1].Field != ColEndDate.Label() {
		t.Errorf("期望开始与结束日期各 1 条诊断，实际 %+v", diags)
	}
	if s.State() != StateUpload || len(st.created) != 0 {
		t.Errorf("校验失败不应写入，实际 %s / %d", s.State(), len(st.created))
	}
}

func TestSession_CompetencyScopedToProgram(t *testing.T) {
	s := newCohortSession(newMockStore())
	// 230101010 属于 prog-2，而会话班级属于 prog-1
	file := buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "230101010", "1"),
		cohortRow("LUNES", "10:00", "12:00", "1020304050", "AMB-101", "220501046", "7"),
	)
	_ = s.Submit(context.Background(), file)

	diags := s.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("期望 2 条诊断，实际 %v", diags)
	}
	if diags[0].Row != 2 || diags[0].Field != ColCompetency.Label() {
		t.Errorf("能力项诊断错误: %+v", diags[0])
	}
	if diags[1].Row != 3 || diags[1].Field != ColOutcome.Label() {
		t.Errorf("学习成果诊断错误: %+v", diags[1])
	}
}

func TestSession_InactiveInstructorNotResolvable(t *testing.T) {
	s := newCohortSession(newMockStore())
	_ = s.Submit(context.Background(), buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1111111111", "AMB-101", "220501046", "1"),
	))
	diags := s.Diagnostics()
	if len(diags) != 1 || diags[0].Field != ColInstructor.Label() {
		t.Errorf("停用讲师应无法引用，实际 %v", diags)
	}
}

// ── 按讲师导入 ──

func instructorRow(kind, day, cohort, room, competency, outcome, supportType, reason string) []interface{} {
	return []interface{}{kind, day, "08:00", "10:00", cohort, room, competency, outcome, "", supportType, reason, "05/01/2026", "30/03/2026", ""}
}

func TestSession_InstructorScopeKinds(t *testing.T) {
	st := newMockStore()
	s := newInstructorSession(st)
	file := buildWorkbook(t, SheetName,
		instructorHeader,
		instructorRow("CLASE", "LUNES", "2675860", "AMB-101", "230101010", "1", "", ""),
		instructorRow("APOYO", "MARTES", "", "", "", "", "Tutoría", ""),
		instructorRow("RESERVA", "VIERNES", "", "AMB-202", "", "", "", "Reunión de área"),
	)
	if err := s.Submit(context.Background(), file); err != nil {
		t.Fatalf("Submit 应成功: %v (%v)", err, s.Diagnostics())
	}
	if _, err := s.Process(context.Background()); err != nil {
		t.Fatalf("Process 应成功: %v", err)
	}
	if len(st.created) != 3 {
		t.Fatalf("期望创建 3 个时段，实际 %d", len(st.created))
	}
	class, support, reservation := st.created[0], st.created[1], st.created[2]
	if class.Kind != schedule.KindClass || class.CohortID != "cohort-2" || class.LearningOutcomeID != "lo-9" {
		t.Errorf("CLASS 行解析错误: %+v", class)
	}
	if support.Kind != schedule.KindSupport || support.RoomID != "" || support.SupportType != "Tutoría" {
		t.Errorf("SUPPORT 行解析错误: %+v", support)
	}
	if reservation.Kind != schedule.KindReservation || reservation.Reason != "Reunión de área" {
		t.Errorf("RESERVATION 行解析错误: %+v", reservation)
	}
	for _, slot := range st.created {
		if slot.InstructorID != "inst-1" {
			t.Errorf("按讲师导入应绑定会话讲师，实际 %s", slot.InstructorID)
		}
	}
}

func TestSession_UnknownKindExcludesRow(t *testing.T) {
	s := newInstructorSession(newMockStore())
	file := buildWorkbook(t, SheetName,
		instructorHeader,
		instructorRow("REUNION", "DOMINGO", "", "", "", "", "", ""),
		instructorRow("RESERVA", "LUNES", "", "AMB-101", "", "", "", ""),
	)
	_ = s.Submit(context.Background(), file)

	diags := s.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("期望 2 条诊断，实际 %v", diags)
	}
	if diags[0].Row != 2 || diags[0].Field != ColKind.Label() {
		t.Errorf("类型无法识别时只应报告类型: %+v", diags[0])
	}
	if diags[1].Row != 3 || diags[1].Field != ColReason.Label() {
		t.Errorf("RESERVATION 缺少原因应报告: %+v", diags[1])
	}
}

func TestSession_UnknownScopeKey(t *testing.T) {
	s := NewSession("imp-x", ScopeCohort, "0000000", newMockStore(), zap.NewNop(), Options{})
	err := s.Submit(context.Background(), buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	))
	if !errors.Is(err, ErrUnknownScopeKey) {
		t.Errorf("期望 ErrUnknownScopeKey，实际 %v", err)
	}
	if s.State() != StateUpload {
		t.Errorf("期望回到 Upload，实际 %s", s.State())
	}
}

// ── 结构性错误 ──

func TestSession_MissingSheet(t *testing.T) {
	s := newCohortSession(newMockStore())
	err := s.Submit(context.Background(), buildWorkbook(t, "Sheet1", cohortHeader))

	var fe *schedule.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("期望 FormatError，实际 %v", err)
	}
	if s.State() != StateUpload {
		t.Errorf("缺少工作表时应停留在 Upload，实际 %s", s.State())
	}
}

func TestSession_NotAWorkbook(t *testing.T) {
	s := newCohortSession(newMockStore())
	err := s.Submit(context.Background(), bytes.NewBufferString("not,an,xlsx"))
	var fe *schedule.FormatError
	if !errors.As(err, &fe) {
		t.Errorf("期望 FormatError，实际 %v", err)
	}
}

func TestSession_TooManyRows(t *testing.T) {
	s := NewSession("imp-3", ScopeCohort, "2675859", newMockStore(), zap.NewNop(), Options{MaxRows: 1})
	err := s.Submit(context.Background(), buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("MARTES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	))
	if !errors.Is(err, ErrTooManyRows) {
		t.Errorf("期望 ErrTooManyRows，实际 %v", err)
	}
}

// ── 取消 / 重试 / 关闭 ──

func TestSession_CancelledMidBatch(t *testing.T) {
	st := newMockStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st.onCreate = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	s := newCohortSession(st)
	file := buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("MARTES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("JUEVES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	)
	if err := s.Submit(context.Background(), file); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	report, err := s.Process(ctx)
	if err != nil {
		t.Fatalf("Process 应成功: %v", err)
	}
	if st.createCalls != 1 {
		t.Errorf("取消后不应继续提交，实际调用 %d 次", st.createCalls)
	}
	if report.Total != 3 || report.Succeeded != 1 || report.Failed != 2 {
		t.Errorf("期望 3/1/2，实际 %d/%d/%d", report.Total, report.Succeeded, report.Failed)
	}
	if report.Rows[2].Message != cancelledMessage {
		t.Errorf("未提交行应标记为取消，实际 %q", report.Rows[2].Message)
	}
}

func TestSession_RetryAndClose(t *testing.T) {
	st := newMockStore()
	s := newCohortSession(st)
	file := buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	)
	if err := s.Submit(context.Background(), file); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if _, err := s.Process(context.Background()); err != nil {
		t.Fatalf("Process 应成功: %v", err)
	}

	if err := s.Retry(); err != nil {
		t.Fatalf("Retry 应成功: %v", err)
	}
	if s.State() != StateUpload || s.Report() != nil || len(s.Diagnostics()) != 0 {
		t.Errorf("Retry 后应清空状态: %+v", s.Snapshot())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close 应成功: %v", err)
	}
	if err := s.Submit(context.Background(), file); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("关闭后提交应返回 ErrSessionClosed，实际 %v", err)
	}
}

func TestSession_ProgressCallback(t *testing.T) {
	var calls [][2]int
	s := NewSession("imp-4", ScopeCohort, "2675859", newMockStore(), zap.NewNop(), Options{
		OnProgress: func(done, total int) { calls = append(calls, [2]int{done, total}) },
	})
	_ = s.Submit(context.Background(), buildWorkbook(t, SheetName,
		cohortHeader,
		cohortRow("LUNES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
		cohortRow("MARTES", "08:00", "10:00", "1020304050", "AMB-101", "220501046", "1"),
	))
	_, _ = s.Process(context.Background())
	if len(calls) != 2 || calls[1] != [2]int{2, 2} {
		t.Errorf("进度回调错误: %v", calls)
	}
}
