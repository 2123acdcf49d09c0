package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"smart-routine/backend/config"
	"smart-routine/backend/internal/api/handler"
	"smart-routine/backend/internal/api/router"
	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/oracle"
	"smart-routine/backend/internal/repository"
	"smart-routine/backend/internal/routine"
	"smart-routine/backend/internal/service"
	"smart-routine/backend/pkg/database"
	applogger "smart-routine/backend/pkg/logger"
	"smart-routine/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认搜索 ./config.yaml 与 ./config/config.yaml）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.Bool("oracle_enabled", cfg.Oracle.Enabled),
	)

	// 3. 连接数据库（可选：目录镜像或以数据库为目录来源时启用）
	var db *gorm.DB
	var repo *repository.Repository
	if cfg.Database.Enabled {
		db, err = database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		repo = repository.NewRepository(db)
		logger.Info("数据库连接成功")
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，目录缓存与限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 课程目录：数据源 → 缓存 → 刷新器
	source, err := buildSource(cfg, repo, rdb, logger)
	if err != nil {
		logger.Fatal("初始化课程目录数据源失败", zap.Error(err))
	}
	opts := catalog.RefresherOptions{
		Interval:      cfg.Catalog.RefreshInterval,
		Timeout:       cfg.Catalog.FetchTimeout,
		BackfillExams: cfg.Catalog.BackfillExams,
	}
	if cfg.Catalog.MirrorToDB && repo != nil {
		opts.Mirror = repo.Section
	}
	store := catalog.NewStore()
	refresher := catalog.NewRefresher(store, source, opts, logger.Named("catalog"))

	if _, err := refresher.Refresh(context.Background()); err != nil {
		logger.Fatal("首次加载课程目录失败", zap.Error(err))
	}

	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	go refresher.Run(refreshCtx)

	// 6. 排课引擎
	display, labSource, err := cfg.Catalog.Locations()
	if err != nil {
		logger.Fatal("加载时区失败", zap.Error(err))
	}
	engine := routine.NewEngine(routine.NewNormalizer(logger, labSource, display), logger.Named("routine"))

	// 7. 生成式模型（可选）
	var llm oracle.Client
	if cfg.Oracle.Enabled {
		llm = oracle.NewGeminiClient(cfg.Oracle.Endpoint, cfg.Oracle.Model, cfg.Oracle.APIKey,
			&http.Client{Timeout: cfg.Oracle.Timeout}, logger.Named("oracle"))
	}

	// 8. 依赖注入: Service → Handler → Router
	svc := service.NewService(cfg, store, refresher, engine, llm, logger)
	h := handler.NewHandler(svc)
	ginEngine := router.Setup(cfg, h, store, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      ginEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Oracle.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	stopRefresh()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// buildSource 按配置选择目录来源；Redis 可用时外包一层缓存
func buildSource(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) (catalog.Source, error) {
	var src catalog.Source
	switch cfg.Catalog.Source {
	case "db":
		if repo == nil {
			return nil, errors.New("catalog.source=db 需要启用数据库")
		}
		src = catalog.NewDBSource(repo.Section)
	default:
		src = catalog.NewFeedSource(cfg.Catalog.FeedURL, cfg.Catalog.MaxBytes,
			&http.Client{Timeout: cfg.Catalog.FetchTimeout})
	}
	if rdb != nil {
		src = catalog.NewCachedSource(src, rdb, cfg.Catalog.CacheTTL, logger.Named("catalog"))
	}
	return src, nil
}
