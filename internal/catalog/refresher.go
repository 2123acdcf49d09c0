package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"smart-routine/backend/internal/model"
)

// BackfillExams 为缺少考试日期的 section 填充演示用考试安排：
// 期中 2024-07-(10+i%10) 10:00-12:00，期末 2024-08-(20+i%10) 14:00-16:00，i 为目录下标。
// 已有日期的考试不受影响。
func BackfillExams(sections []model.Section) int {
	filled := 0
	for i := range sections {
		sec := &sections[i]
		if sec.MidExamDate == "" {
			sec.MidExamDate = fmt.Sprintf("2024-07-%02d", 10+i%10)
			sec.MidExamStartTime = "10:00"
			sec.MidExamEndTime = "12:00"
			filled++
		}
		if sec.FinalExamDate == "" {
			sec.FinalExamDate = fmt.Sprintf("2024-08-%02d", 20+i%10)
			sec.FinalExamStartTime = "14:00"
			sec.FinalExamEndTime = "16:00"
			filled++
		}
	}
	return filled
}

// Mirror 目录镜像写入端（sections 表）
type Mirror interface {
	ReplaceAll(ctx context.Context, sections []model.Section) error
}

// RefresherOptions 刷新器参数
type RefresherOptions struct {
	Interval      time.Duration
	Timeout       time.Duration
	BackfillExams bool
	Mirror        Mirror // 可选；为 nil 时不镜像
}

// Refresher 负责加载目录并周期性地原子替换快照
type Refresher struct {
	store  *Store
	source Source
	opts   RefresherOptions
	logger *zap.Logger

	mu  sync.Mutex // 串行化刷新
	now func() time.Time
}

// NewRefresher 创建刷新器
func NewRefresher(store *Store, source Source, opts RefresherOptions, logger *zap.Logger) *Refresher {
	return &Refresher{store: store, source: source, opts: opts, logger: logger, now: time.Now}
}

// Refresh 立即加载一次目录。失败时保留当前快照并返回错误。
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := r.now()
	sections, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载课程目录失败 (%s): %w", r.source.Name(), err)
	}
	if len(sections) == 0 {
		return nil, ErrEmptyCatalog
	}

	if r.opts.BackfillExams {
		if n := BackfillExams(sections); n > 0 {
			r.logger.Info("已为缺少考试信息的 section 填充默认考试安排", zap.Int("exams", n))
		}
	}

	snap := NewSnapshot(sections, r.source.Name(), r.now())
	r.store.Swap(snap)
	r.logger.Info("课程目录已更新",
		zap.String("source", snap.Source),
		zap.Int("sections", snap.Len()),
		zap.Int("courses", len(snap.courses)),
		zap.Duration("elapsed", r.now().Sub(start)),
	)

	if r.opts.Mirror != nil && snap.Source != "db" {
		if err := r.opts.Mirror.ReplaceAll(ctx, snap.Sections()); err != nil {
			r.logger.Warn("课程目录镜像到数据库失败", zap.Error(err))
		}
	}
	return snap, nil
}

// Run 按固定间隔刷新，直到 ctx 取消。单次失败只记录日志。
func (r *Refresher) Run(ctx context.Context) {
	if r.opts.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("课程目录刷新任务已停止")
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.Warn("定时刷新课程目录失败，继续使用旧快照", zap.Error(err))
			}
		}
	}
}
