package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/service"
	"smart-routine/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Export 导出课表
// POST /api/v1/routines/export?format=xlsx|ics
func (h *ExportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 18001, "不支持的导出格式")
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	file, err := h.exportSvc.Export(c.Request.Context(), &req, query.Format)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.File(c, file.Filename, file.ContentType, file.Body)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportFormat):
		response.BadRequest(c, 18001, "不支持的导出格式")
	case errors.Is(err, service.ErrExportStartDate):
		response.BadRequest(c, 18002, "起始日期格式应为 YYYY-MM-DD")
	default:
		response.InternalError(c)
	}
}
