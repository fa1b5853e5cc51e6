package dto

// ── 批量导入 DTO ──

// StartImportRequest 开始导入（multipart 表单，文件字段为 file）
type StartImportRequest struct {
	Scope    string `form:"scope"     binding:"required,oneof=cohort instructor"`
	ScopeKey string `form:"scope_key" binding:"required"` // 班级编号或讲师证件号
}

// TemplateRequest 下载导入模板
type TemplateRequest struct {
	Scope string `form:"scope" binding:"required,oneof=cohort instructor"`
}

// DiagnosticResponse 单条校验问题
type DiagnosticResponse struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RowOutcomeResponse 单行处理结果
type RowOutcomeResponse struct {
	Row     int    `json:"row"`
	Outcome string `json:"outcome"` // success | error
	Message string `json:"message,omitempty"`
	SlotID  string `json:"slot_id,omitempty"`
}

// ImportReportResponse 处理报告
type ImportReportResponse struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Rows      []RowOutcomeResponse `json:"rows"`
}

// ImportResponse 导入会话视图；诊断按上限截断，DiagnosticCount 为总数
type ImportResponse struct {
	ID                 string                `json:"id"`
	Scope              string                `json:"scope"`
	ScopeKey           string                `json:"scope_key"`
	State              string                `json:"state"`
	DryRun             bool                  `json:"dry_run,omitempty"`
	Pending            int                   `json:"pending"`
	Processed          int                   `json:"processed"`
	DiagnosticCount    int                   `json:"diagnostic_count"`
	OmittedDiagnostics int                   `json:"omitted_diagnostics,omitempty"`
	Diagnostics        []DiagnosticResponse  `json:"diagnostics,omitempty"`
	Report             *ImportReportResponse `json:"report,omitempty"`
	UpdatedAt          string                `json:"updated_at"`
}
