package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smart-routine/backend/config"
	"smart-routine/backend/internal/api/handler"
	"smart-routine/backend/internal/api/middleware"
	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎；rdb 为 nil 时限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, store *catalog.Store, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidators()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = rdb
	}
	aiLimit := middleware.RateLimit(limiter, cfg.RateLimit.AIPerMinute, time.Minute)
	refreshLimit := middleware.RateLimit(limiter, cfg.RateLimit.RefreshPerMinute, time.Minute)

	// ── 健康检查 ──
	r.GET("/health", healthHandler(store, rdb))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课程目录
		v1.GET("/catalog", h.Catalog.Status)
		v1.POST("/catalog/refresh", refreshLimit, h.Catalog.Refresh)

		// 课程查询
		v1.GET("/courses", h.Course.ListCourses)
		v1.GET("/courses/:code/sections", h.Course.ListSections)
		v1.GET("/faculties", h.Course.ListFaculties)
		v1.GET("/exams", h.Course.GetExamSchedule)

		// 排课
		routines := v1.Group("/routines")
		{
			routines.POST("", h.Routine.Generate)
			routines.POST("/conflicts/exams", h.Advisor.ExamConflicts)
			routines.POST("/conflicts/time", h.Advisor.TimeConflicts)
			routines.POST("/feedback", aiLimit, h.Advisor.Feedback)
			routines.POST("/export", h.Export.Export)
		}

		// 问答
		v1.POST("/assistant/ask", aiLimit, h.Advisor.Ask)
	}

	return r
}

// healthHandler 目录已加载时返回 200；Redis 不可用只标记为降级
func healthHandler(store *catalog.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK

		if snap := store.Current(); snap != nil {
			body["catalog"] = gin.H{
				"source":    snap.Source,
				"sections":  snap.Len(),
				"loaded_at": snap.LoadedAt.Format(time.RFC3339),
			}
		} else {
			body["status"] = "unavailable"
			body["catalog"] = nil
			status = http.StatusServiceUnavailable
		}

		switch {
		case rdb == nil:
			body["redis"] = "disabled"
		default:
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := rdb.Ping(ctx); err != nil {
				body["redis"] = "down"
				if status == http.StatusOK {
					body["status"] = "degraded"
				}
			} else {
				body["redis"] = "up"
			}
		}

		c.JSON(status, body)
	}
}
