package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/routine"
	"smart-routine/backend/internal/service"
	"smart-routine/backend/pkg/response"
)

// RoutineHandler 排课 HTTP 处理器
type RoutineHandler struct {
	routineSvc service.RoutineService
}

// NewRoutineHandler 创建 RoutineHandler
func NewRoutineHandler(routineSvc service.RoutineService) *RoutineHandler {
	return &RoutineHandler{routineSvc: routineSvc}
}

// Generate 生成课表
// POST /api/v1/routines
func (h *RoutineHandler) Generate(c *gin.Context) {
	var req dto.RoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.routineSvc.Generate(c.Request.Context(), &req)
	if err != nil {
		h.handleRoutineError(c, err)
		return
	}
	response.OK(c, resp)
}

func (h *RoutineHandler) handleRoutineError(c *gin.Context, err error) {
	var failure *routine.Failure
	if errors.As(err, &failure) {
		writeFailure(c, failure)
		return
	}
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidDay):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16003, "无效的星期", err.Error())
	case errors.Is(err, service.ErrInvalidTimeSlot):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16004, "无效的时间段", err.Error())
	case errors.Is(err, service.ErrDuplicateCourse):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16005, "同一课程只能选择一次", err.Error())
	default:
		response.InternalError(c)
	}
}

// writeFailure 422：组装失败的结构化明细放在 data，面向学生的说明放在 details
func writeFailure(c *gin.Context, f *routine.Failure) {
	data := dto.RoutineFailureResponse{
		Kind:          f.Kind,
		Course:        f.CourseCode,
		ExamConflicts: f.ExamConflicts,
		TimeConflicts: f.TimeConflicts,
	}
	if f.Kind == routine.FailureConflict {
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 16002, "课表存在冲突", data, f.Describe())
		return
	}
	response.ErrorWithData(c, http.StatusUnprocessableEntity, 16001, "无法生成课表", data, f.Error())
}
