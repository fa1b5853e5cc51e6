package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"phias/backend/internal/dto"
	"phias/backend/internal/schedule"
	"phias/backend/internal/service"
	"phias/backend/internal/store"
	pkgerrors "phias/backend/pkg/errors"
	"phias/backend/pkg/response"
)

// SlotHandler 周期时段 HTTP 处理器；本地模式下即为远程存储客户端所调用的接口
type SlotHandler struct {
	st store.Store
}

// NewSlotHandler 创建 SlotHandler
func NewSlotHandler(st store.Store) *SlotHandler {
	return &SlotHandler{st: st}
}

// ListSlots 获取时段列表
// GET /api/v1/slots?mode=cohort&id=xxx
func (h *SlotHandler) ListSlots(c *gin.Context) {
	var req dto.SlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	slots, err := h.st.ListSlots(c.Request.Context(), store.Filter{
		Mode:            store.Mode(req.Mode),
		ID:              req.ID,
		IncludeInactive: req.IncludeInactive,
	})
	if err != nil {
		handleStoreError(c, err)
		return
	}

	items := make([]dto.SlotResponse, 0, len(slots))
	for _, s := range slots {
		items = append(items, dto.NewSlotResponse(s))
	}
	response.OK(c, items)
}

// GetSlot 获取时段详情
// GET /api/v1/slots/:id
func (h *SlotHandler) GetSlot(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "时段ID不能为空")
		return
	}

	slot, err := h.st.GetSlot(c.Request.Context(), id)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	response.OK(c, dto.NewSlotResponse(slot))
}

// CreateSlot 创建时段
// POST /api/v1/slots
func (h *SlotHandler) CreateSlot(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	slot, err := req.ToSlot()
	if err != nil {
		handleStoreError(c, err)
		return
	}

	ctx, ok := callerContext(c)
	if !ok {
		return
	}

	id, err := h.st.CreateSlot(ctx, slot)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	created, err := h.st.GetSlot(ctx, id)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	response.Created(c, dto.NewSlotResponse(created))
}

// UpdateSlot 更新时段（类型不可修改）
// PUT /api/v1/slots/:id
func (h *SlotHandler) UpdateSlot(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "时段ID不能为空")
		return
	}

	var req dto.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	u, err := store.ParseSlotUpdate(req)
	if err != nil {
		handleStoreError(c, err)
		return
	}

	ctx, ok := callerContext(c)
	if !ok {
		return
	}

	if err := h.st.UpdateSlot(ctx, id, u); err != nil {
		handleStoreError(c, err)
		return
	}
	updated, err := h.st.GetSlot(ctx, id)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	response.OK(c, dto.NewSlotResponse(updated))
}

// SetSlotActive 启用 / 停用时段
// PUT /api/v1/slots/:id/active
func (h *SlotHandler) SetSlotActive(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "时段ID不能为空")
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ctx, ok := callerContext(c)
	if !ok {
		return
	}

	if err := h.st.SetActive(ctx, id, *req.Active); err != nil {
		handleStoreError(c, err)
		return
	}
	slot, err := h.st.GetSlot(ctx, id)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	response.OK(c, dto.NewSlotResponse(slot))
}

// handleStoreError 统一处理排课存储错误（本地服务错误与远程 RemoteError 均包装 store 哨兵错误）
func handleStoreError(c *gin.Context, err error) {
	var (
		conflict *service.ConflictError
		format   *schedule.FormatError
	)
	switch {
	case errors.As(err, &format):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20006, "时间或日期格式错误", format.Error())
	case errors.Is(err, store.ErrNotFound):
		response.NotFound(c, 20001, "记录不存在")
	case errors.As(err, &conflict):
		response.ErrorWithDetails(c, http.StatusConflict, 20002, "与已有时段冲突", conflict.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20003, "时段已被修改，请刷新后重试")
	case errors.Is(err, service.ErrSlotKindImmutable):
		response.BadRequest(c, 20004, "时段类型不可修改")
	case errors.Is(err, store.ErrConflict):
		response.ErrorWithDetails(c, http.StatusConflict, 20002, "与已有时段冲突", err.Error())
	case errors.Is(err, store.ErrInvalidInput):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20005, "时段数据无效", err.Error())
	case errors.Is(err, store.ErrUnauthorized):
		response.Error(c, http.StatusBadGateway, 20007, "排课存储拒绝访问")
	default:
		response.InternalError(c)
	}
}
