package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/service"
	"smart-routine/backend/pkg/response"
)

// CatalogHandler 课程目录状态 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// Status 当前目录快照信息
// GET /api/v1/catalog
func (h *CatalogHandler) Status(c *gin.Context) {
	status, err := h.catalogSvc.Status(c.Request.Context())
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.OK(c, status)
}

// Refresh 立即重新加载目录
// POST /api/v1/catalog/refresh
func (h *CatalogHandler) Refresh(c *gin.Context) {
	status, err := h.catalogSvc.Refresh(c.Request.Context())
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}
	response.OK(c, status)
}

func (h *CatalogHandler) handleCatalogError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, catalog.ErrEmptyCatalog),
		errors.Is(err, catalog.ErrFeedStatus),
		errors.Is(err, catalog.ErrFeedTooLarge):
		response.ErrorWithDetails(c, http.StatusBadGateway, 15004, "课程目录刷新失败", err.Error())
	default:
		response.ErrorWithDetails(c, http.StatusBadGateway, 15004, "课程目录刷新失败", "数据源暂时不可用")
	}
}
