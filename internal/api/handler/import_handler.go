package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"phias/backend/internal/dto"
	"phias/backend/internal/importer"
	"phias/backend/internal/schedule"
	"phias/backend/internal/service"
	"phias/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportHandler 批量导入 HTTP 处理器
type ImportHandler struct {
	importSvc   service.ImportService
	maxFileSize int64
}

// NewImportHandler 创建 ImportHandler；maxFileSize<=0 表示不限制
func NewImportHandler(importSvc service.ImportService, maxFileSize int64) *ImportHandler {
	return &ImportHandler{importSvc: importSvc, maxFileSize: maxFileSize}
}

// DownloadTemplate 下载导入模板
// GET /api/v1/imports/template?scope=cohort
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	var req dto.TemplateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	data, filename, err := h.importSvc.Template(req.Scope)
	if err != nil {
		h.handleImportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// StartImport 上传文件并立即导入；校验未通过返回 422 与诊断
// POST /api/v1/imports (multipart: scope, scope_key, file)
func (h *ImportHandler) StartImport(c *gin.Context) {
	var req dto.StartImportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	file, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	ctx, ok := callerContext(c)
	if !ok {
		return
	}

	resp, err := h.importSvc.Start(ctx, &req, file)
	if err != nil {
		h.handleImportResult(c, resp, err)
		return
	}
	response.Created(c, resp)
}

// ValidateImport 只校验不写入
// POST /api/v1/imports/validate (multipart: scope, scope_key, file)
func (h *ImportHandler) ValidateImport(c *gin.Context) {
	var req dto.StartImportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	file, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	resp, err := h.importSvc.Validate(c.Request.Context(), &req, file)
	if err != nil {
		h.handleImportResult(c, resp, err)
		return
	}
	response.OK(c, resp)
}

// GetImport 查询导入会话（可用于轮询进度）
// GET /api/v1/imports/:id
func (h *ImportHandler) GetImport(c *gin.Context) {
	ctx, ok := callerContext(c)
	if !ok {
		return
	}
	resp, err := h.importSvc.Get(ctx, c.Param("id"))
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, resp)
}

// ResubmitImport 向已有会话重新上传修正后的文件
// POST /api/v1/imports/:id/file (multipart: file)
func (h *ImportHandler) ResubmitImport(c *gin.Context) {
	file, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	ctx, ok := callerContext(c)
	if !ok {
		return
	}

	resp, err := h.importSvc.Resubmit(ctx, c.Param("id"), file)
	if err != nil {
		h.handleImportResult(c, resp, err)
		return
	}
	response.OK(c, resp)
}

// RetryImport 从结果页回到上传
// POST /api/v1/imports/:id/retry
func (h *ImportHandler) RetryImport(c *gin.Context) {
	ctx, ok := callerContext(c)
	if !ok {
		return
	}
	resp, err := h.importSvc.Retry(ctx, c.Param("id"))
	if err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, resp)
}

// CloseImport 关闭导入会话
// DELETE /api/v1/imports/:id
func (h *ImportHandler) CloseImport(c *gin.Context) {
	ctx, ok := callerContext(c)
	if !ok {
		return
	}
	if err := h.importSvc.Close(ctx, c.Param("id")); err != nil {
		h.handleImportError(c, err)
		return
	}
	response.OK(c, nil)
}

// openUpload 读取 multipart 的 file 字段；失败时已写入响应
func (h *ImportHandler) openUpload(c *gin.Context) (io.ReadCloser, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件 file")
		return nil, false
	}
	if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, 22007,
			fmt.Sprintf("文件过大（上限 %d 字节）", h.maxFileSize))
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取上传文件")
		return nil, false
	}
	return f, true
}

// handleImportResult 校验未通过时返回 422 并携带会话视图，其余错误按类型映射
func (h *ImportHandler) handleImportResult(c *gin.Context, resp *dto.ImportResponse, err error) {
	if errors.Is(err, importer.ErrValidationGate) && resp != nil {
		response.UnprocessableEntity(c, 22001, err.Error(), resp)
		return
	}
	h.handleImportError(c, err)
}

// handleImportError 统一处理导入模块业务错误
func (h *ImportHandler) handleImportError(c *gin.Context, err error) {
	var format *schedule.FormatError
	switch {
	case errors.Is(err, service.ErrImportNotFound):
		response.NotFound(c, 22002, "导入会话不存在")
	case errors.Is(err, service.ErrImportExpired):
		response.Error(c, http.StatusGone, 22003, "导入会话已失效，请重新开始导入")
	case errors.Is(err, service.ErrImportBusy):
		response.Conflict(c, 22004, "导入会话正在处理其他请求")
	case errors.Is(err, importer.ErrSessionClosed):
		response.Conflict(c, 22005, "导入会话已关闭")
	case errors.Is(err, importer.ErrInvalidTransition):
		response.ErrorWithDetails(c, http.StatusConflict, 22006, "当前状态不允许该操作", err.Error())
	case errors.Is(err, importer.ErrUnknownScope):
		response.BadRequest(c, 22008, "未知的导入范围")
	case errors.Is(err, importer.ErrUnknownScopeKey):
		response.ErrorWithDetails(c, http.StatusNotFound, 22009, "导入范围绑定的班级或讲师不存在", err.Error())
	case errors.Is(err, importer.ErrNoData), errors.Is(err, importer.ErrTooManyRows), errors.As(err, &format):
		response.ErrorWithDetails(c, http.StatusBadRequest, 22010, "导入文件结构无效", err.Error())
	default:
		handleStoreError(c, err)
	}
}
