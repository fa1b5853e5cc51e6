package handler

import (
	"github.com/gin-gonic/gin"

	"phias/backend/internal/dto"
	"phias/backend/internal/store"
	"phias/backend/pkg/response"
)

// ReferenceHandler 讲师 / 教室 / 班级 / 课程体系查询
//
// 默认返回含停用记录的完整列表，active_only=true 时只返回启用记录。
type ReferenceHandler struct {
	st store.Store
}

// NewReferenceHandler 创建 ReferenceHandler
func NewReferenceHandler(st store.Store) *ReferenceHandler {
	return &ReferenceHandler{st: st}
}

// ListInstructors 讲师列表
// GET /api/v1/instructors
func (h *ReferenceHandler) ListInstructors(c *gin.Context) {
	var req dto.ReferenceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.st.ListInstructors(c.Request.Context())
	if err != nil {
		handleStoreError(c, err)
		return
	}
	if req.ActiveOnly {
		list = filterActive(list, func(i store.Instructor) bool { return i.Active })
	}
	response.OK(c, list)
}

// ListRooms 教室列表
// GET /api/v1/rooms
func (h *ReferenceHandler) ListRooms(c *gin.Context) {
	var req dto.ReferenceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.st.ListRooms(c.Request.Context())
	if err != nil {
		handleStoreError(c, err)
		return
	}
	if req.ActiveOnly {
		list = filterActive(list, func(r store.Room) bool { return r.Active })
	}
	response.OK(c, list)
}

// ListCohorts 班级列表
// GET /api/v1/cohorts
func (h *ReferenceHandler) ListCohorts(c *gin.Context) {
	var req dto.ReferenceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.st.ListCohorts(c.Request.Context())
	if err != nil {
		handleStoreError(c, err)
		return
	}
	if req.ActiveOnly {
		list = filterActive(list, func(co store.Cohort) bool { return co.Active })
	}
	response.OK(c, list)
}

// ListCompetencies 专业下的能力项
// GET /api/v1/programs/:id/competencies
func (h *ReferenceHandler) ListCompetencies(c *gin.Context) {
	programID := c.Param("id")
	if programID == "" {
		response.BadRequest(c, 10001, "专业ID不能为空")
		return
	}

	list, err := h.st.ListCompetencies(c.Request.Context(), programID)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	if list == nil {
		list = []store.Competency{}
	}
	response.OK(c, list)
}

// ListLearningOutcomes 能力项下的学习成果
// GET /api/v1/competencies/:id/outcomes
func (h *ReferenceHandler) ListLearningOutcomes(c *gin.Context) {
	competencyID := c.Param("id")
	if competencyID == "" {
		response.BadRequest(c, 10001, "能力项ID不能为空")
		return
	}

	list, err := h.st.ListLearningOutcomes(c.Request.Context(), competencyID)
	if err != nil {
		handleStoreError(c, err)
		return
	}
	if list == nil {
		list = []store.LearningOutcome{}
	}
	response.OK(c, list)
}

func filterActive[T any](list []T, active func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, item := range list {
		if active(item) {
			out = append(out, item)
		}
	}
	return out
}
