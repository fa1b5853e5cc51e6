package importer

import (
	"context"
	"fmt"
	"strings"

	"phias/backend/internal/store"
)

// ReferenceIndex 单个导入会话内的参考数据索引。
// 讲师、教室、班级在创建时一次性加载；能力项按专业、学习成果按能力项在首次使用时加载。
// 索引属于会话私有状态，不能在会话之间共享。
type ReferenceIndex struct {
	st store.Store

	instructors map[string]store.Instructor // 证件号
	rooms       map[string]store.Room       // 教室编码
	cohorts     map[string]store.Cohort     // 班级编号

	competencies map[string]map[string]store.Competency   // 专业 ID → 编码
	outcomes     map[string]map[int]store.LearningOutcome // 能力项 ID → 序号
}

// naturalKey 自然键比较时忽略首尾空白与大小写
func naturalKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NewReferenceIndex 加载讲师、教室、班级；停用的实体不可被引用
func NewReferenceIndex(ctx context.Context, st store.Store) (*ReferenceIndex, error) {
	x := &ReferenceIndex{
		st:           st,
		instructors:  make(map[string]store.Instructor),
		rooms:        make(map[string]store.Room),
		cohorts:      make(map[string]store.Cohort),
		competencies: make(map[string]map[string]store.Competency),
		outcomes:     make(map[string]map[int]store.LearningOutcome),
	}

	instructors, err := st.ListInstructors(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载讲师失败: %w", err)
	}
	for _, in := range instructors {
		if in.Active {
			x.instructors[naturalKey(in.Document)] = in
		}
	}

	rooms, err := st.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载教室失败: %w", err)
	}
	for _, r := range rooms {
		if r.Active {
			x.rooms[naturalKey(r.Code)] = r
		}
	}

	cohorts, err := st.ListCohorts(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载班级失败: %w", err)
	}
	for _, c := range cohorts {
		if c.Active {
			x.cohorts[naturalKey(c.Number)] = c
		}
	}
	return x, nil
}

// Instructor 按证件号查找讲师
func (x *ReferenceIndex) Instructor(document string) (store.Instructor, bool) {
	in, ok := x.instructors[naturalKey(document)]
	return in, ok
}

// Room 按编码查找教室
func (x *ReferenceIndex) Room(code string) (store.Room, bool) {
	r, ok := x.rooms[naturalKey(code)]
	return r, ok
}

// Cohort 按编号查找班级
func (x *ReferenceIndex) Cohort(number string) (store.Cohort, bool) {
	c, ok := x.cohorts[naturalKey(number)]
	return c, ok
}

// Competency 在专业范围内按编码查找能力项
func (x *ReferenceIndex) Competency(ctx context.Context, programID, code string) (store.Competency, bool, error) {
	byCode, ok := x.competencies[programID]
	if !ok {
		list, err := x.st.ListCompetencies(ctx, programID)
		if err != nil {
			return store.Competency{}, false, fmt.Errorf("加载能力项失败: %w", err)
		}
		byCode = make(map[string]store.Competency, len(list))
		for _, c := range list {
			byCode[naturalKey(c.Code)] = c
		}
		x.competencies[programID] = byCode
	}
	c, ok := byCode[naturalKey(code)]
	return c, ok, nil
}

// Outcome 在能力项范围内按序号（从 1 开始）查找学习成果
func (x *ReferenceIndex) Outcome(ctx context.Context, competencyID string, ordinal int) (store.LearningOutcome, bool, error) {
	byOrdinal, ok := x.outcomes[competencyID]
	if !ok {
		list, err := x.st.ListLearningOutcomes(ctx, competencyID)
		if err != nil {
			return store.LearningOutcome{}, false, fmt.Errorf("加载学习成果失败: %w", err)
		}
		byOrdinal = make(map[int]store.LearningOutcome, len(list))
		for _, o := range list {
			byOrdinal[o.Ordinal] = o
		}
		x.outcomes[competencyID] = byOrdinal
	}
	o, ok := byOrdinal[ordinal]
	return o, ok, nil
}
