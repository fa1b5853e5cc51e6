package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// templateRows 模板预留的数据行数（数据有效性与文本格式作用范围）
const templateRows = 500

// 示例行，按逻辑列填写
var templateExamples = map[Scope]map[Column]string{
	ScopeCohort: {
		ColWeekday: "LUNES", ColStartTime: "08:00", ColEndTime: "10:00",
		ColInstructor: "1020304050", ColRoom: "AMB-101", ColCompetency: "220501046",
		ColOutcome: "1", ColTopic: "Introducción", ColStartDate: "05/01/2026", ColEndDate: "30/03/2026",
	},
	ScopeInstructor: {
		ColKind: "APOYO", ColWeekday: "MIÉRCOLES", ColStartTime: "14:00", ColEndTime: "16:00",
		ColSupportType: "Tutoría", ColStartDate: "05/01/2026", ColEndDate: "30/03/2026",
	},
}

// WriteTemplate 生成导入模板：工作表 Horarios、带格式提示的表头、示例行、
// 类型与星期的下拉校验；时间与日期列设为文本格式，避免被转存为数值。
func WriteTemplate(w io.Writer, scope Scope) error {
	columns := scope.Columns()
	if len(columns) == 0 {
		return ErrUnknownScope
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("创建样式失败: %w", err)
	}
	textStyle, err := f.NewStyle(&excelize.Style{NumFmt: 49}) // "@" 文本
	if err != nil {
		return fmt.Errorf("创建样式失败: %w", err)
	}

	example := templateExamples[scope]
	for i, col := range columns {
		name := colName(i)
		f.SetCellValue(SheetName, cell(name, 1), col.Header())
		f.SetColWidth(SheetName, name, name, 22)

		switch col {
		case ColStartTime, ColEndTime, ColStartDate, ColEndDate, ColInstructor, ColCohort, ColCompetency:
			f.SetCellStyle(SheetName, cell(name, 2), cell(name, templateRows+1), textStyle)
		}
		if v, ok := example[col]; ok {
			f.SetCellStr(SheetName, cell(name, 2), v)
		}

		var options []string
		switch col {
		case ColKind:
			options = []string{"CLASE", "APOYO", "RESERVA"}
		case ColWeekday:
			options = []string{"LUNES", "MARTES", "MIÉRCOLES", "JUEVES", "VIERNES", "SÁBADO"}
		}
		if len(options) > 0 {
			dv := excelize.NewDataValidation(true)
			dv.Sqref = fmt.Sprintf("%s:%s", cell(name, 2), cell(name, templateRows+1))
			if err := dv.SetDropList(options); err != nil {
				return fmt.Errorf("设置下拉列表失败: %w", err)
			}
			if err := f.AddDataValidation(SheetName, dv); err != nil {
				return fmt.Errorf("设置下拉列表失败: %w", err)
			}
		}
	}

	last := colName(len(columns) - 1)
	f.SetCellStyle(SheetName, cell("A", 1), cell(last, 1), headerStyle)
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("冻结表头失败: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写入模板失败: %w", err)
	}
	return nil
}

// TemplateFilename 模板建议文件名
func TemplateFilename(scope Scope) string {
	return fmt.Sprintf("plantilla_horarios_%s.xlsx", scope)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
