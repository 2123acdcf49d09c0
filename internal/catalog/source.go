package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"smart-routine/backend/internal/model"
	"smart-routine/backend/internal/repository"
)

// ── 错误定义 ──

var (
	ErrEmptyCatalog = errors.New("课程目录为空")
	ErrFeedTooLarge = errors.New("课程目录数据超过大小上限")
	ErrFeedStatus   = errors.New("课程目录数据源返回异常状态")
)

// Source 课程目录数据源
type Source interface {
	Name() string
	Load(ctx context.Context) ([]model.Section, error)
}

// Decode 解析上游 JSON 数组
func Decode(raw []byte) ([]model.Section, error) {
	var sections []model.Section
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("解析课程目录失败: %w", err)
	}
	return sections, nil
}

// ── 远程 JSON 数据源 ──

// FeedSource 通过 HTTP 拉取上游 connect.json
type FeedSource struct {
	url      string
	client   *http.Client
	maxBytes int64
}

// NewFeedSource 创建远程数据源；client 为 nil 时使用带超时的默认客户端
func NewFeedSource(url string, maxBytes int64, client *http.Client) *FeedSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FeedSource{url: url, client: client, maxBytes: maxBytes}
}

func (f *FeedSource) Name() string { return "feed" }

// Fetch 拉取原始 JSON，超过 maxBytes 时报错
func (f *FeedSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("拉取课程目录失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrFeedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取课程目录失败: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return nil, ErrFeedTooLarge
	}
	return raw, nil
}

func (f *FeedSource) Load(ctx context.Context) ([]model.Section, error) {
	raw, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// ── 数据库数据源 ──

// DBSource 从 sections 镜像表加载
type DBSource struct {
	repo repository.SectionRepository
}

// NewDBSource 创建数据库数据源
func NewDBSource(repo repository.SectionRepository) *DBSource {
	return &DBSource{repo: repo}
}

func (d *DBSource) Name() string { return "db" }

func (d *DBSource) Load(ctx context.Context) ([]model.Section, error) {
	sections, err := d.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取 sections 表失败: %w", err)
	}
	return sections, nil
}

// ── Redis 缓存 ──

// Cache 目录原始 JSON 缓存
type Cache interface {
	GetCatalog(ctx context.Context) ([]byte, error)
	SetCatalog(ctx context.Context, raw []byte, ttl time.Duration) error
}

// CachedSource 包装另一个数据源：成功时回写缓存，失败时回退到缓存
type CachedSource struct {
	origin Source
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource 创建带缓存的数据源
func NewCachedSource(origin Source, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{origin: origin, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedSource) Name() string { return c.origin.Name() }

func (c *CachedSource) Load(ctx context.Context) ([]model.Section, error) {
	sections, err := c.origin.Load(ctx)
	if err == nil && len(sections) > 0 {
		if raw, mErr := json.Marshal(sections); mErr == nil {
			if sErr := c.cache.SetCatalog(ctx, raw, c.ttl); sErr != nil {
				c.logger.Warn("课程目录写入缓存失败", zap.Error(sErr))
			}
		}
		return sections, nil
	}
	if err == nil {
		err = ErrEmptyCatalog
	}

	raw, cErr := c.cache.GetCatalog(ctx)
	if cErr != nil {
		return nil, err
	}
	cached, dErr := Decode(raw)
	if dErr != nil || len(cached) == 0 {
		return nil, err
	}
	c.logger.Warn("数据源不可用，使用缓存的课程目录",
		zap.String("source", c.origin.Name()), zap.Int("sections", len(cached)), zap.Error(err))
	return cached, nil
}
