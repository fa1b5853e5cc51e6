package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"phias/backend/internal/schedule"
	"phias/backend/internal/store"
)

// ── mockStore ──

type mockStore struct {
	instructors  []store.Instructor
	rooms        []store.Room
	cohorts      []store.Cohort
	competencies map[string][]store.Competency
	outcomes     map[string][]store.LearningOutcome

	created         []schedule.Slot
	createCalls     int
	competencyCalls int
	rejectCall      map[int]error // 第 N 次创建调用（从 1 开始）返回的错误
	onCreate        func(n int)
}

func newMockStore() *mockStore {
	return &mockStore{
		instructors: []store.Instructor{
			{ID: "inst-1", Document: "1020304050", Name: "Ana Gómez", Active: true},
			{ID: "inst-2", Document: "9988776655", Name: "Luis Pérez", Active: true},
			{ID: "inst-off", Document: "1111111111", Name: "停用讲师", Active: false},
		},
		rooms: []store.Room{
			{ID: "room-1", Code: "AMB-101", Name: "Aula 101", Active: true},
			{ID: "room-2", Code: "AMB-202", Name: "Aula 202", Active: true},
		},
		cohorts: []store.Cohort{
			{ID: "cohort-1", Number: "2675859", ProgramID: "prog-1", Active: true},
			{ID: "cohort-2", Number: "2675860", ProgramID: "prog-2", Active: true},
		},
		competencies: map[string][]store.Competency{
			"prog-1": {{ID: "comp-1", ProgramID: "prog-1", Code: "220501046", Name: "Programar software"}},
			"prog-2": {{ID: "comp-2", ProgramID: "prog-2", Code: "230101010", Name: "Gestionar redes"}},
		},
		outcomes: map[string][]store.LearningOutcome{
			"comp-1": {
				{ID: "lo-1", CompetencyID: "comp-1", Ordinal: 1},
				{ID: "lo-2", CompetencyID: "comp-1", Ordinal: 2},
			},
			"comp-2": {{ID: "lo-9", CompetencyID: "comp-2", Ordinal: 1}},
		},
		rejectCall: make(map[int]error),
	}
}

func (m *mockStore) ListSlots(_ context.Context, _ store.Filter) ([]schedule.Slot, error) {
	return m.created, nil
}

func (m *mockStore) GetSlot(_ context.Context, id string) (schedule.Slot, error) {
	for _, s := range m.created {
		if s.ID == id {
			return s, nil
		}
	}
	return schedule.Slot{}, store.ErrNotFound
}

func (m *mockStore) CreateSlot(_ context.Context, slot schedule.Slot) (string, error) {
	m.createCalls++
	n := m.createCalls
	if m.onCreate != nil {
		m.onCreate(n)
	}
	if err, ok := m.rejectCall[n]; ok {
		return "", err
	}
	slot.ID = fmt.Sprintf("slot-%d", n)
	m.created = append(m.created, slot)
	return slot.ID, nil
}

func (m *mockStore) UpdateSlot(_ context.Context, _ string, _ store.SlotUpdate) error {
	return errors.New("not implemented")
}

func (m *mockStore) SetActive(_ context.Context, _ string, _ bool) error {
	return errors.New("not implemented")
}

func (m *mockStore) ListInstructors(_ context.Context) ([]store.Instructor, error) {
	return m.instructors, nil
}

func (m *mockStore) ListRooms(_ context.Context) ([]store.Room, error) { return m.rooms, nil }

func (m *mockStore) ListCohorts(_ context.Context) ([]store.Cohort, error) { return m.cohorts, nil }

func (m *mockStore) ListCompetencies(_ context.Context, programID string) ([]store.Competency, error) {
	m.competencyCalls++
	return m.competencies[programID], nil
}

func (m *mockStore) ListLearningOutcomes(_ context.Context, competencyID string) ([]store.LearningOutcome, error) {
	return m.outcomes[competencyID], nil
}

// ── 工作簿构造 ──

var cohortHeader = []interface{}{
	"Día", "Hora Inicio (HH:MM)", "Hora Fin (HH:MM)", "Documento Instructor", "Código Ambiente",
	"Código Competencia", "Resultado Aprendizaje (N°)", "Tema", "Fecha Inicio (DD/MM/YYYY)", "Fecha Fin (DD/MM/YYYY)", "Observaciones",
}

var instructorHeader = []interface{}{
	"Tipo", "Día", "Hora Inicio", "Hora Fin", "Número Ficha", "Código Ambiente",
	"Código Competencia", "Resultado Aprendizaje", "Tema", "Tipo Apoyo", "Motivo",
	"Fecha Inicio", "Fecha Fin", "Observaciones",
}

// cohortRow 按班级导入的一行：星期、起止时间、讲师、教室、能力项、成果序号
func cohortRow(day string, start, end interface{}, instructor, room, competency, outcome string) []interface{} {
	return []interface{}{day, start, end, instructor, room, competency, outcome, "", "05/01/2026", "30/03/2026", ""}
}

func buildWorkbook(t *testing.T, sheet string, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("重命名工作表失败: %v", err)
		}
	}
	for i, row := range rows {
		r := row
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			t.Fatalf("写入第 %d 行失败: %v", i+1, err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("写入工作簿失败: %v", err)
	}
	return buf
}
