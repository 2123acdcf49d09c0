package handler

import (
	"github.com/gin-gonic/gin"

	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/service"
	"smart-routine/backend/pkg/response"
)

// AdvisorHandler 课表分析与问答 HTTP 处理器
type AdvisorHandler struct {
	advisorSvc service.AdvisorService
}

// NewAdvisorHandler 创建 AdvisorHandler
func NewAdvisorHandler(advisorSvc service.AdvisorService) *AdvisorHandler {
	return &AdvisorHandler{advisorSvc: advisorSvc}
}

// ExamConflicts 检查课表中的考试冲突
// POST /api/v1/routines/conflicts/exams
func (h *AdvisorHandler) ExamConflicts(c *gin.Context) {
	var req dto.RoutineRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.advisorSvc.ExamConflicts(c.Request.Context(), &req)
	if err != nil {
		h.handleAdvisorError(c, err)
		return
	}
	response.OK(c, report)
}

// TimeConflicts 检查课表中的上课时间冲突
// POST /api/v1/routines/conflicts/time
func (h *AdvisorHandler) TimeConflicts(c *gin.Context) {
	var req dto.RoutineRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := h.advisorSvc.TimeConflicts(c.Request.Context(), &req)
	if err != nil {
		h.handleAdvisorError(c, err)
		return
	}
	response.OK(c, report)
}

// Feedback 课表评分
// POST /api/v1/routines/feedback
func (h *AdvisorHandler) Feedback(c *gin.Context) {
	var req dto.RoutineRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.advisorSvc.Feedback(c.Request.Context(), &req)
	if err != nil {
		h.handleAdvisorError(c, err)
		return
	}
	response.OK(c, resp)
}

// Ask 排课相关问答
// POST /api/v1/assistant/ask
func (h *AdvisorHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.advisorSvc.Ask(c.Request.Context(), &req)
	if err != nil {
		h.handleAdvisorError(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *AdvisorHandler) handleAdvisorError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	response.InternalError(c)
}
