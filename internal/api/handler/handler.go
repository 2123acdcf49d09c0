package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-routine/backend/internal/service"
	"smart-routine/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Catalog *CatalogHandler
	Course  *CourseHandler
	Routine *RoutineHandler
	Advisor *AdvisorHandler
	Export  *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Catalog: NewCatalogHandler(svc.Catalog),
		Course:  NewCourseHandler(svc.Course),
		Routine: NewRoutineHandler(svc.Routine),
		Advisor: NewAdvisorHandler(svc.Advisor),
		Export:  NewExportHandler(svc.Export),
	}
}

// handleCommonError 处理各模块共用的业务错误；未识别时返回 false
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrCatalogNotLoaded):
		response.ServiceUnavailable(c, 15001, "课程目录尚未加载，请稍后重试")
	case errors.Is(err, service.ErrUnknownSection):
		response.ErrorWithDetails(c, http.StatusNotFound, 16007, "section 不存在", err.Error())
	case errors.Is(err, service.ErrEmptyRoutine):
		response.BadRequest(c, 16006, "课表为空")
	case errors.Is(err, service.ErrOracleDisabled):
		response.ServiceUnavailable(c, 17001, "辅助排课功能未启用")
	case errors.Is(err, service.ErrOracleFailed):
		response.Error(c, http.StatusBadGateway, 17002, "辅助服务暂时不可用")
	default:
		return false
	}
	return true
}
