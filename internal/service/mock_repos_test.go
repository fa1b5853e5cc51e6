package service

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"phias/backend/internal/model"
	"phias/backend/internal/repository"
	pkgerrors "phias/backend/pkg/errors"
)

// ── Mock SlotRepository ──

type mockSlotRepo struct {
	slots map[string]*model.RecurringSlot
	seq   int

	// 关联数据，GetByID / List 时按外键填充
	instructors *mockInstructorRepo
	rooms       *mockRoomRepo
	cohorts     *mockCohortRepo
}

func newMockSlotRepo(instructors *mockInstructorRepo, rooms *mockRoomRepo, cohorts *mockCohortRepo) *mockSlotRepo {
	return &mockSlotRepo{
		slots:       make(map[string]*model.RecurringSlot),
		instructors: instructors,
		rooms:       rooms,
		cohorts:     cohorts,
	}
}

func (m *mockSlotRepo) Create(_ context.Context, slot *model.RecurringSlot) error {
	if slot.SlotID == "" {
		m.seq++
		slot.SlotID = fmt.Sprintf("slot-%d", m.seq)
	}
	if slot.Version == 0 {
		slot.Version = 1
	}
	cp := *slot
	m.slots[slot.SlotID] = &cp
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id string) (*model.RecurringSlot, error) {
	s, ok := m.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withAssociations(*s), nil
}

func (m *mockSlotRepo) List(_ context.Context, filter repository.SlotFilter) ([]model.RecurringSlot, error) {
	var result []model.RecurringSlot
	for _, s := range m.slots {
		if !filter.IncludeInactive && !s.IsActive {
			continue
		}
		if filter.CohortID != "" && (s.CohortID == nil || *s.CohortID != filter.CohortID) {
			continue
		}
		if filter.InstructorID != "" && s.InstructorID != filter.InstructorID {
			continue
		}
		if filter.RoomID != "" && (s.RoomID == nil || *s.RoomID != filter.RoomID) {
			continue
		}
		result = append(result, *m.withAssociations(*s))
	}
	sortSlots(result)
	return result, nil
}

func (m *mockSlotRepo) Update(_ context.Context, slot *model.RecurringSlot) error {
	current, ok := m.slots[slot.SlotID]
	if !ok || current.Version != slot.Version {
		return pkgerrors.ErrOptimisticLock
	}
	current.Weekday = slot.Weekday
	current.StartTime = slot.StartTime
	current.EndTime = slot.EndTime
	current.ValidFrom = slot.ValidFrom
	current.ValidTo = slot.ValidTo
	current.WeeklyHours = slot.WeeklyHours
	current.Notes = slot.Notes
	current.UpdatedBy = slot.UpdatedBy
	current.Version++
	return nil
}

func (m *mockSlotRepo) SetActive(_ context.Context, id string, active bool, version int) error {
	current, ok := m.slots[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if version > 0 && current.Version != version {
		return pkgerrors.ErrOptimisticLock
	}
	current.IsActive = active
	current.Version++
	return nil
}

func (m *mockSlotRepo) FindOverlapping(_ context.Context, q repository.OverlapQuery) ([]model.RecurringSlot, error) {
	var result []model.RecurringSlot
	for _, s := range m.slots {
		if !s.IsActive || s.Weekday != q.Weekday || s.SlotID == q.ExcludeID {
			continue
		}
		if !(s.StartTime < q.EndTime && s.EndTime > q.StartTime) {
			continue
		}
		if s.ValidFrom.After(q.ValidTo) || s.ValidTo.Before(q.ValidFrom) {
			continue
		}
		sameRoom := q.RoomID != nil && s.RoomID != nil && *s.RoomID == *q.RoomID
		if s.InstructorID != q.InstructorID && !sameRoom {
			continue
		}
		result = append(result, *s)
	}
	sortSlots(result)
	return result, nil
}

func (m *mockSlotRepo) withAssociations(s model.RecurringSlot) *model.RecurringSlot {
	if in, ok := m.instructors.items[s.InstructorID]; ok {
		s.Instructor = in
	}
	if s.CohortID != nil {
		if c, ok := m.cohorts.items[*s.CohortID]; ok {
			s.Cohort = c
		}
	}
	if s.RoomID != nil {
		if r, ok := m.rooms.items[*s.RoomID]; ok {
			s.Room = r
		}
	}
	return &s
}

func sortSlots(slots []model.RecurringSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Weekday != slots[j].Weekday {
			return slots[i].Weekday < slots[j].Weekday
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].SlotID < slots[j].SlotID
	})
}

// ── Mock InstructorRepository ──

type mockInstructorRepo struct {
	items map[string]*model.Instructor
}

func newMockInstructorRepo() *mockInstructorRepo {
	return &mockInstructorRepo{items: make(map[string]*model.Instructor)}
}

func (m *mockInstructorRepo) Create(_ context.Context, in *model.Instructor) error {
	if in.InstructorID == "" {
		in.InstructorID = "inst-" + in.Document
	}
	m.items[in.InstructorID] = in
	return nil
}

func (m *mockInstructorRepo) GetByID(_ context.Context, id string) (*model.Instructor, error) {
	if in, ok := m.items[id]; ok {
		return in, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInstructorRepo) GetByDocument(_ context.Context, document string) (*model.Instructor, error) {
	for _, in := range m.items {
		if in.Document == document {
			return in, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInstructorRepo) List(_ context.Context, includeInactive bool) ([]model.Instructor, error) {
	var result []model.Instructor
	for _, in := range m.items {
		if !includeInactive && !in.IsActive {
			continue
		}
		result = append(result, *in)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	items map[string]*model.Room
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{items: make(map[string]*model.Room)}
}

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	if room.RoomID == "" {
		room.RoomID = "room-" + room.Code
	}
	m.items[room.RoomID] = room
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	if r, ok := m.items[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) List(_ context.Context, includeInactive bool) ([]model.Room, error) {
	var result []model.Room
	for _, r := range m.items {
		if !includeInactive && !r.IsActive {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// ── Mock CohortRepository ──

type mockCohortRepo struct {
	items map[string]*model.Cohort
}

func newMockCohortRepo() *mockCohortRepo {
	return &mockCohortRepo{items: make(map[string]*model.Cohort)}
}

func (m *mockCohortRepo) Create(_ context.Context, cohort *model.Cohort) error {
	if cohort.CohortID == "" {
		cohort.CohortID = "cohort-" + cohort.Number
	}
	m.items[cohort.CohortID] = cohort
	return nil
}

func (m *mockCohortRepo) GetByID(_ context.Context, id string) (*model.Cohort, error) {
	if c, ok := m.items[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCohortRepo) List(_ context.Context, includeInactive bool) ([]model.Cohort, error) {
	var result []model.Cohort
	for _, c := range m.items {
		if !includeInactive && !c.IsActive {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

// ── Mock CurriculumRepository ──

type mockCurriculumRepo struct {
	programs     map[string]*model.Program
	competencies map[string]*model.Competency
	outcomes     map[string]*model.LearningOutcome
}

func newMockCurriculumRepo() *mockCurriculumRepo {
	return &mockCurriculumRepo{
		programs:     make(map[string]*model.Program),
		competencies: make(map[string]*model.Competency),
		outcomes:     make(map[string]*model.LearningOutcome),
	}
}

func (m *mockCurriculumRepo) CreateProgram(_ context.Context, p *model.Program) error {
	if p.ProgramID == "" {
		p.ProgramID = "prog-" + p.Code
	}
	m.programs[p.ProgramID] = p
	return nil
}

func (m *mockCurriculumRepo) CreateCompetency(_ context.Context, c *model.Competency) error {
	if c.CompetencyID == "" {
		c.CompetencyID = "comp-" + c.Code
	}
	m.competencies[c.CompetencyID] = c
	return nil
}

func (m *mockCurriculumRepo) CreateLearningOutcome(_ context.Context, o *model.LearningOutcome) error {
	if o.LearningOutcomeID == "" {
		o.LearningOutcomeID = fmt.Sprintf("lo-%s-%d", o.CompetencyID, o.Ordinal)
	}
	m.outcomes[o.LearningOutcomeID] = o
	return nil
}

func (m *mockCurriculumRepo) ListCompetencies(_ context.Context, programID string) ([]model.Competency, error) {
	var result []model.Competency
	for _, c := range m.competencies {
		if c.ProgramID == programID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *mockCurriculumRepo) ListLearningOutcomes(_ context.Context, competencyID string) ([]model.LearningOutcome, error) {
	var result []model.LearningOutcome
	for _, o := range m.outcomes {
		if o.CompetencyID == competencyID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ordinal < result[j].Ordinal })
	return result, nil
}

// ── 测试数据聚合 ──

// testRepos 聚合所有 mock repo 便于 seed 数据
type testRepos struct {
	slot       *mockSlotRepo
	instructor *mockInstructorRepo
	room       *mockRoomRepo
	cohort     *mockCohortRepo
	curriculum *mockCurriculumRepo
}

func newTestRepos() *testRepos {
	r := &testRepos{
		instructor: newMockInstructorRepo(),
		room:       newMockRoomRepo(),
		cohort:     newMockCohortRepo(),
		curriculum: newMockCurriculumRepo(),
	}
	r.slot = newMockSlotRepo(r.instructor, r.room, r.cohort)
	return r
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		Slot:       r.slot,
		Room:       r.room,
		Instructor: r.instructor,
		Cohort:     r.cohort,
		Curriculum: r.curriculum,
	}
}

// seedReferences 写入一套基础参考数据：
// 两名讲师（一名停用）、两间教室、两个专业各一个班级 / 能力项 / 学习成果
func (r *testRepos) seedReferences() {
	ctx := context.Background()
	_ = r.instructor.Create(ctx, &model.Instructor{InstructorID: "inst-1", Document: "1020304050", Name: "Ana Gómez", IsActive: true})
	_ = r.instructor.Create(ctx, &model.Instructor{InstructorID: "inst-2", Document: "9988776655", Name: "Luis Pérez", IsActive: true})
	_ = r.instructor.Create(ctx, &model.Instructor{InstructorID: "inst-off", Document: "1111111111", Name: "Inactivo", IsActive: false})
	_ = r.room.Create(ctx, &model.Room{RoomID: "room-1", Code: "AMB-101", Name: "Aula 101", IsActive: true})
	_ = r.room.Create(ctx, &model.Room{RoomID: "room-2", Code: "AMB-202", Name: "Aula 202", IsActive: true})

	_ = r.curriculum.CreateProgram(ctx, &model.Program{ProgramID: "prog-1", Code: "228118", Name: "ADSO"})
	_ = r.curriculum.CreateProgram(ctx, &model.Program{ProgramID: "prog-2", Code: "228185", Name: "Redes"})
	_ = r.cohort.Create(ctx, &model.Cohort{CohortID: "cohort-1", Number: "2675859", ProgramID: "prog-1", IsActive: true})
	_ = r.cohort.Create(ctx, &model.Cohort{CohortID: "cohort-2", Number: "2675860", ProgramID: "prog-2", IsActive: true})
	_ = r.curriculum.CreateCompetency(ctx, &model.Competency{CompetencyID: "comp-1", ProgramID: "prog-1", Code: "220501046", Name: "Programar software"})
	_ = r.curriculum.CreateCompetency(ctx, &model.Competency{CompetencyID: "comp-2", ProgramID: "prog-2", Code: "230101010", Name: "Gestionar redes"})
	_ = r.curriculum.CreateLearningOutcome(ctx, &model.LearningOutcome{LearningOutcomeID: "lo-1", CompetencyID: "comp-1", Ordinal: 1})
	_ = r.curriculum.CreateLearningOutcome(ctx, &model.LearningOutcome{LearningOutcomeID: "lo-9", CompetencyID: "comp-2", Ordinal: 1})
}
