package dto

// ── 参考数据 DTO ──

// ReferenceListRequest 参考数据列表查询参数；默认包含停用记录
type ReferenceListRequest struct {
	ActiveOnly bool `form:"active_only"`
}
