package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"phias/backend/internal/schedule"
)

// RawRow 表格中的一行原始单元格，按逻辑列取值
type RawRow struct {
	Number int // 表格行号，表头为第 1 行
	Cells  map[Column]string
}

// Cell 取单元格文本（已去除首尾空白）
func (r RawRow) Cell(c Column) string {
	return strings.TrimSpace(r.Cells[c])
}

func (r RawRow) empty() bool {
	for _, v := range r.Cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseWorkbook 读取导入文件的 Horarios 工作表。
// 单元格按原始值读取，被表格工具转存为一天小数的时间不会丢失。
// 结构性问题（无法打开、缺少工作表或必需列、行数超限）直接返回错误。
func ParseWorkbook(r io.Reader, scope Scope, maxRows int) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &schedule.FormatError{Reason: "无法解析 Excel 文件: " + err.Error()}
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(SheetName); err != nil || idx < 0 {
		return nil, &schedule.FormatError{Field: SheetName, Reason: "缺少工作表"}
	}

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	return parseRows(scope, rows, maxRows)
}

func parseRows(scope Scope, rows [][]string, maxRows int) ([]RawRow, error) {
	if len(rows) < 2 {
		return nil, ErrNoData
	}

	index, err := matchHeader(scope, rows[0])
	if err != nil {
		return nil, err
	}

	var out []RawRow
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		raw := RawRow{Number: i + 1, Cells: make(map[Column]string, len(index))}
		for col, idx := range index {
			if idx < len(row) {
				raw.Cells[col] = row[idx]
			}
		}

		// 跳过全空行
		if raw.empty() {
			continue
		}
		out = append(out, raw)
	}

	if len(out) == 0 {
		return nil, ErrNoData
	}
	if maxRows > 0 && len(out) > maxRows {
		return nil, fmt.Errorf("%w: %d 行（上限 %d）", ErrTooManyRows, len(out), maxRows)
	}
	return out, nil
}
