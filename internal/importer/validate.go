package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"phias/backend/internal/schedule"
	"phias/backend/internal/store"
)

// ResolvedRow 通过校验的行：原始单元格已丢弃，只保留类型化时段
type ResolvedRow struct {
	Number int
	Slot   schedule.Slot
}

// binding 会话绑定的实体（按班级导入绑定班级，按讲师导入绑定讲师）
type binding struct {
	scope      Scope
	cohort     store.Cohort
	instructor store.Instructor
}

// rowCheck 单行校验上下文，诊断只追加不中断
type rowCheck struct {
	ctx   context.Context
	index *ReferenceIndex
	bind  binding
	row   RawRow
	diags []Diagnostic
}

func (c *rowCheck) add(col Column, msg string) {
	c.diags = append(c.diags, Diagnostic{Row: c.row.Number, Field: col.Label(), Message: msg})
}

func (c *rowCheck) addf(col Column, format string, args ...interface{}) {
	c.add(col, fmt.Sprintf(format, args...))
}

// required 取必填单元格；为空时记录诊断并返回 false
func (c *rowCheck) required(col Column) (string, bool) {
	v := c.row.Cell(col)
	if v == "" {
		c.add(col, "必填")
		return "", false
	}
	return v, true
}

// describe 将规范化错误转为面向用户的诊断文本
func describe(err error) string {
	var fe *schedule.FormatError
	if errors.As(err, &fe) {
		if fe.Value != "" {
			return fmt.Sprintf("%s（%q）", fe.Reason, fe.Value)
		}
		return fe.Reason
	}
	return err.Error()
}

// validateRow 校验并解析一行。返回的 error 仅表示参考数据加载失败（致命），
// 普通数据问题全部以诊断形式返回。
func validateRow(ctx context.Context, index *ReferenceIndex, bind binding, raw RawRow) (ResolvedRow, []Diagnostic, error) {
	c := &rowCheck{ctx: ctx, index: index, bind: bind, row: raw}

	// 1. 类型：无法识别时跳过本行其余校验
	kind := schedule.KindClass
	if bind.scope == ScopeInstructor {
		v, ok := c.required(ColKind)
		if !ok {
			return ResolvedRow{}, c.diags, nil
		}
		k, ok := schedule.ParseKind(v)
		if !ok {
			c.addf(ColKind, "无法识别的类型 %q（应为 CLASE / APOYO / RESERVA）", v)
			return ResolvedRow{}, c.diags, nil
		}
		kind = k
	}

	slot := schedule.Slot{Kind: kind, Active: true}

	// 2. 星期
	if v, ok := c.required(ColWeekday); ok {
		if w, ok := schedule.ParseWeekday(v); ok {
			slot.Weekday = w
		} else {
			c.addf(ColWeekday, "无效的星期 %q（应为 LUNES..SÁBADO）", v)
		}
	}

	// 3. 时间
	startOK := c.parseTime(ColStartTime, &slot.Start)
	endOK := c.parseTime(ColEndTime, &slot.End)
	if startOK && endOK && !slot.Start.Before(slot.End) {
		c.addf(ColEndTime, "%s（%s - %s）", schedule.ErrTimeOrder.Error(), slot.Start, slot.End)
	}

	// 4. 日期
	fromOK := c.parseDate(ColStartDate, &slot.ValidFrom)
	toOK := c.parseDate(ColEndDate, &slot.ValidTo)
	if fromOK && toOK && slot.ValidTo.Before(slot.ValidFrom) {
		c.addf(ColEndDate, "%s（%s - %s）", schedule.ErrDateOrder.Error(), slot.ValidFrom, slot.ValidTo)
	}

	// 5. 引用
	if err := c.resolveReferences(&slot); err != nil {
		return ResolvedRow{}, nil, err
	}

	if len(c.diags) > 0 {
		return ResolvedRow{}, c.diags, nil
	}
	if err := slot.Validate(); err != nil {
		c.structural(err)
		return ResolvedRow{}, c.diags, nil
	}
	return ResolvedRow{Number: raw.Number, Slot: slot}, nil, nil
}

// slotFieldColumns Slot 字段到导入列的映射
var slotFieldColumns = map[string]Column{
	"Kind":              ColKind,
	"Weekday":           ColWeekday,
	"CohortID":          ColCohort,
	"CompetencyID":      ColCompetency,
	"LearningOutcomeID": ColOutcome,
	"InstructorID":      ColInstructor,
	"RoomID":            ColRoom,
	"SupportType":       ColSupportType,
	"Reason":            ColReason,
}

// structural 将 Slot.Validate 的失败落到具体列上
func (c *rowCheck) structural(err error) {
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		for _, fe := range ve {
			col := slotFieldColumns[fe.StructField()]
			switch fe.Tag() {
			case "required", "required_if", "required_unless":
				c.add(col, "必填")
			default:
				c.addf(col, "取值无效（%v）", fe.Value())
			}
		}
	case errors.Is(err, schedule.ErrTimeOrder):
		c.add(ColEndTime, err.Error())
	case errors.Is(err, schedule.ErrDateOrder):
		c.add(ColEndDate, err.Error())
	default:
		c.add("", err.Error())
	}
}

func (c *rowCheck) parseTime(col Column, dst *schedule.TimeOfDay) bool {
	v, ok := c.required(col)
	if !ok {
		return false
	}
	t, err := schedule.NormalizeTime(v)
	if err != nil {
		c.add(col, describe(err))
		return false
	}
	*dst = t
	return true
}

func (c *rowCheck) parseDate(col Column, dst *schedule.Date) bool {
	v, ok := c.required(col)
	if !ok {
		return false
	}
	d, err := schedule.NormalizeDate(v)
	if err != nil {
		c.add(col, describe(err))
		return false
	}
	*dst = d
	return true
}

func (c *rowCheck) unresolved(col Column, key string) {
	c.add(col, (&ReferenceError{Field: col.Label(), Key: key}).Error())
}

// resolveReferences 按类型解析所需的引用字段
func (c *rowCheck) resolveReferences(slot *schedule.Slot) error {
	// 讲师
	if c.bind.scope == ScopeInstructor {
		slot.InstructorID = c.bind.instructor.ID
		slot.InstructorName = c.bind.instructor.Name
	} else if v, ok := c.required(ColInstructor); ok {
		if in, ok := c.index.Instructor(v); ok {
			slot.InstructorID, slot.InstructorName = in.ID, in.Name
		} else {
			c.unresolved(ColInstructor, v)
		}
	}

	// 教室：SUPPORT 可选，填写时仍需存在
	room := c.row.Cell(ColRoom)
	if room == "" && slot.Kind != schedule.KindSupport {
		c.add(ColRoom, "必填")
	} else if room != "" {
		if r, ok := c.index.Room(room); ok {
			slot.RoomID, slot.RoomName = r.ID, r.Code
		} else {
			c.unresolved(ColRoom, room)
		}
	}

	switch slot.Kind {
	case schedule.KindClass:
		return c.resolveClass(slot)
	case schedule.KindSupport:
		if v, ok := c.required(ColSupportType); ok {
			slot.SupportType = v
		}
	case schedule.KindReservation:
		if v, ok := c.required(ColReason); ok {
			slot.Reason = v
		}
	}
	slot.Notes = c.row.Cell(ColNotes)
	return nil
}

// resolveClass 班级 → 能力项（限定在班级所属专业）→ 学习成果（限定在能力项）
func (c *rowCheck) resolveClass(slot *schedule.Slot) error {
	slot.Topic = c.row.Cell(ColTopic)
	slot.Notes = c.row.Cell(ColNotes)

	var cohort store.Cohort
	cohortOK := false
	if c.bind.scope == ScopeCohort {
		cohort, cohortOK = c.bind.cohort, true
	} else if v, ok := c.required(ColCohort); ok {
		if cohort, cohortOK = c.index.Cohort(v); !cohortOK {
			c.unresolved(ColCohort, v)
		}
	}
	if cohortOK {
		slot.CohortID, slot.CohortName = cohort.ID, cohort.Number
	}

	var competency store.Competency
	competencyOK := false
	if v, ok := c.required(ColCompetency); ok && cohortOK {
		found, ok, err := c.index.Competency(c.ctx, cohort.ProgramID, v)
		if err != nil {
			return err
		}
		if ok {
			competency, competencyOK = found, true
			slot.CompetencyID = found.ID
		} else {
			c.addf(ColCompetency, "能力项 %q 不属于班级 %s 的专业", v, cohort.Number)
		}
	}

	v, ok := c.required(ColOutcome)
	if !ok {
		return nil
	}
	ordinal, err := strconv.Atoi(v)
	if err != nil || ordinal < 1 {
		c.addf(ColOutcome, "学习成果序号应为正整数（%q）", v)
		return nil
	}
	if !competencyOK {
		return nil
	}
	outcome, ok, err := c.index.Outcome(c.ctx, competency.ID, ordinal)
	if err != nil {
		return err
	}
	if !ok {
		c.addf(ColOutcome, "能力项 %s 下不存在第 %d 个学习成果", competency.Code, ordinal)
		return nil
	}
	slot.LearningOutcomeID = outcome.ID
	return nil
}
