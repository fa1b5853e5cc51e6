package importer

import (
	"fmt"
	"regexp"
	"strings"

	"phias/backend/internal/schedule"
)

// SheetName 导入文件中必须存在的工作表
const SheetName = "Horarios"

// Scope 导入范围
type Scope string

const (
	// ScopeCohort 按班级导入：会话绑定班级编号，类型固定为 CLASS
	ScopeCohort Scope = "cohort"
	// ScopeInstructor 按讲师导入：会话绑定讲师证件号，每行自带类型
	ScopeInstructor Scope = "instructor"
)

// ParseScope 解析导入范围
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case ScopeCohort:
		return ScopeCohort, nil
	case ScopeInstructor:
		return ScopeInstructor, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScope, raw)
}

// Column 逻辑列键，与表头显示文本无关
type Column string

const (
	ColKind        Column = "kind"
	ColWeekday     Column = "weekday"
	ColStartTime   Column = "start_time"
	ColEndTime     Column = "end_time"
	ColInstructor  Column = "instructor"
	ColCohort      Column = "cohort"
	ColRoom        Column = "room"
	ColCompetency  Column = "competency"
	ColOutcome     Column = "outcome"
	ColTopic       Column = "topic"
	ColSupportType Column = "support_type"
	ColReason      Column = "reason"
	ColStartDate   Column = "start_date"
	ColEndDate     Column = "end_date"
	ColNotes       Column = "notes"
)

// columnSpec 列定义：模板表头、格式提示、可识别的别名
type columnSpec struct {
	key     Column
	label   string
	hint    string
	aliases []string
}

var columnSpecs = map[Column]columnSpec{
	ColKind:        {ColKind, "Tipo", "CLASE / APOYO / RESERVA", []string{"tipo", "tipo de horario", "kind", "type"}},
	ColWeekday:     {ColWeekday, "Día", "LUNES..SÁBADO", []string{"dia", "dia de la semana", "dia semana", "weekday", "day"}},
	ColStartTime:   {ColStartTime, "Hora Inicio", "HH:MM", []string{"hora inicio", "hora de inicio", "start time", "start"}},
	ColEndTime:     {ColEndTime, "Hora Fin", "HH:MM", []string{"hora fin", "hora de fin", "hora final", "end time", "end"}},
	ColInstructor:  {ColInstructor, "Documento Instructor", "", []string{"documento instructor", "documento del instructor", "instructor", "instructor document"}},
	ColCohort:      {ColCohort, "Número Ficha", "", []string{"numero ficha", "ficha", "numero de ficha", "cohort", "cohort number"}},
	ColRoom:        {ColRoom, "Código Ambiente", "", []string{"codigo ambiente", "ambiente", "codigo del ambiente", "room", "room code"}},
	ColCompetency:  {ColCompetency, "Código Competencia", "", []string{"codigo competencia", "competencia", "codigo de competencia", "competency", "competency code"}},
	ColOutcome:     {ColOutcome, "Resultado Aprendizaje", "N°", []string{"resultado aprendizaje", "resultado de aprendizaje", "numero resultado", "resultado", "learning outcome", "outcome"}},
	ColTopic:       {ColTopic, "Tema", "", []string{"tema", "topic"}},
	ColSupportType: {ColSupportType, "Tipo Apoyo", "", []string{"tipo apoyo", "tipo de apoyo", "support type"}},
	ColReason:      {ColReason, "Motivo", "", []string{"motivo", "razon", "reason"}},
	ColStartDate:   {ColStartDate, "Fecha Inicio", "DD/MM/YYYY", []string{"fecha inicio", "fecha de inicio", "start date", "valid from"}},
	ColEndDate:     {ColEndDate, "Fecha Fin", "DD/MM/YYYY", []string{"fecha fin", "fecha de fin", "fecha final", "end date", "valid to"}},
	ColNotes:       {ColNotes, "Observaciones", "", []string{"observaciones", "notas", "notes"}},
}

// Label 列的显示名称（用于诊断信息）
func (c Column) Label() string {
	if spec, ok := columnSpecs[c]; ok {
		return spec.label
	}
	return string(c)
}

// Header 模板表头：名称 + 括号内的格式提示
func (c Column) Header() string {
	spec, ok := columnSpecs[c]
	if !ok {
		return string(c)
	}
	if spec.hint == "" {
		return spec.label
	}
	return fmt.Sprintf("%s (%s)", spec.label, spec.hint)
}

// layout 各导入范围的列顺序与必需列
type layout struct {
	columns  []Column
	required []Column
}

var layouts = map[Scope]layout{
	ScopeCohort: {
		columns: []Column{
			ColWeekday, ColStartTime, ColEndTime, ColInstructor, ColRoom,
			ColCompetency, ColOutcome, ColTopic, ColStartDate, ColEndDate, ColNotes,
		},
		required: []Column{
			ColWeekday, ColStartTime, ColEndTime, ColInstructor, ColRoom,
			ColCompetency, ColOutcome, ColStartDate, ColEndDate,
		},
	},
	ScopeInstructor: {
		columns: []Column{
			ColKind, ColWeekday, ColStartTime, ColEndTime, ColCohort, ColRoom,
			ColCompetency, ColOutcome, ColTopic, ColSupportType, ColReason,
			ColStartDate, ColEndDate, ColNotes,
		},
		required: []Column{
			ColKind, ColWeekday, ColStartTime, ColEndTime, ColStartDate, ColEndDate,
		},
	},
}

// Columns 导入范围的列顺序（模板使用）
func (s Scope) Columns() []Column { return layouts[s].columns }

// hintPattern 去掉表头末尾括号内的格式提示
var hintPattern = regexp.MustCompile(`\s*[(\[].*[)\]]\s*$`)

// headerKey 表头文本 → 折叠后的匹配键
func headerKey(header string) string {
	return schedule.FoldKey(hintPattern.ReplaceAllString(header, ""))
}

// aliasIndex 折叠后的别名 → 逻辑列
var aliasIndex = func() map[string]Column {
	idx := make(map[string]Column)
	for key, spec := range columnSpecs {
		idx[schedule.FoldKey(spec.label)] = key
		for _, a := range spec.aliases {
			idx[schedule.FoldKey(a)] = key
		}
	}
	return idx
}()

// matchHeader 将表头行映射为 逻辑列 → 列下标；不属于当前范围的列被忽略，
// 缺少必需列时返回 *schedule.FormatError
func matchHeader(scope Scope, header []string) (map[Column]int, error) {
	lay, ok := layouts[scope]
	if !ok {
		return nil, ErrUnknownScope
	}
	allowed := make(map[Column]bool, len(lay.columns))
	for _, c := range lay.columns {
		allowed[c] = true
	}

	index := make(map[Column]int, len(lay.columns))
	for i, h := range header {
		col, ok := aliasIndex[headerKey(h)]
		if !ok || !allowed[col] {
			continue
		}
		if _, dup := index[col]; dup {
			return nil, &schedule.FormatError{Field: col.Label(), Reason: "表头重复"}
		}
		index[col] = i
	}

	var missing []string
	for _, c := range lay.required {
		if _, ok := index[c]; !ok {
			missing = append(missing, c.Label())
		}
	}
	if len(missing) > 0 {
		return nil, &schedule.FormatError{
			Field:  SheetName,
			Reason: "缺少必需列: " + strings.Join(missing, ", "),
		}
	}
	return index, nil
}
