package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"phias/backend/internal/dto"
	"phias/backend/internal/schedule"
	"phias/backend/internal/service"
	"phias/backend/pkg/response"
)

// PlanningHandler 工时汇总 / 周视图 / 发生日期
type PlanningHandler struct {
	planningSvc service.PlanningService
}

// NewPlanningHandler 创建 PlanningHandler
func NewPlanningHandler(planningSvc service.PlanningService) *PlanningHandler {
	return &PlanningHandler{planningSvc: planningSvc}
}

// GetHours 工时汇总
// GET /api/v1/planning/hours?mode=instructor&id=xxx&from=2026-01-01&to=2026-01-31
func (h *PlanningHandler) GetHours(c *gin.Context) {
	var req dto.HoursRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.planningSvc.Hours(c.Request.Context(), &req)
	if err != nil {
		h.handlePlanningError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetGrid 周视图网格
// GET /api/v1/planning/grid?mode=cohort&id=xxx
func (h *PlanningHandler) GetGrid(c *gin.Context) {
	var req dto.GridRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.planningSvc.Grid(c.Request.Context(), &req)
	if err != nil {
		h.handlePlanningError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetOccurrences 时段在区间内的具体日期
// GET /api/v1/planning/occurrences?slot_id=xxx&from=2026-03-01&to=2026-04-30
func (h *PlanningHandler) GetOccurrences(c *gin.Context) {
	var req dto.OccurrencesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	resp, err := h.planningSvc.Occurrences(c.Request.Context(), &req)
	if err != nil {
		h.handlePlanningError(c, err)
		return
	}
	response.OK(c, resp)
}

// handlePlanningError 统一处理规划模块业务错误
func (h *PlanningHandler) handlePlanningError(c *gin.Context, err error) {
	var format *schedule.FormatError
	switch {
	case errors.Is(err, service.ErrInvalidPeriod):
		response.BadRequest(c, 21001, "开始日期不能晚于结束日期")
	case errors.As(err, &format):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21002, "日期格式错误", format.Error())
	case errors.Is(err, service.ErrGridConfig):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 21003, "周视图网格配置错误", err.Error())
	default:
		handleStoreError(c, err)
	}
}
