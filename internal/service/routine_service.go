package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/routine"
)

// ── 排课模块业务错误 ──

var (
	ErrInvalidDay      = errors.New("无效的星期")
	ErrInvalidTimeSlot = errors.New("无效的时间段")
	ErrDuplicateCourse = errors.New("课程重复")
)

const (
	StrategyGreedy = "greedy"
	StrategyAI     = "ai"
)

// RoutineService 排课业务接口
type RoutineService interface {
	// Generate 按请求生成课表；失败时返回 *routine.Failure 或本模块的业务错误
	Generate(ctx context.Context, req *dto.RoutineRequest) (*dto.RoutineResponse, error)
}

type routineService struct {
	store   *catalog.Store
	engine  *routine.Engine
	oracle  routine.Oracle
	timeout time.Duration
	logger  *zap.Logger
}

// NewRoutineService 创建 RoutineService 实例；oracle 为 nil 时仅支持贪心策略
func NewRoutineService(store *catalog.Store, engine *routine.Engine, oracle routine.Oracle, timeout time.Duration, logger *zap.Logger) RoutineService {
	return &routineService{store: store, engine: engine, oracle: oracle, timeout: timeout, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Generate
// ════════════════════════════════════════════════════════════

func (s *routineService) Generate(ctx context.Context, req *dto.RoutineRequest) (*dto.RoutineResponse, error) {
	days, err := parseDays(req.Days)
	if err != nil {
		return nil, err
	}
	windows, err := parseWindows(req.Times)
	if err != nil {
		return nil, err
	}
	requests, err := toCourseRequests(req.Courses)
	if err != nil {
		return nil, err
	}
	if req.UseAI && s.oracle == nil {
		return nil, ErrOracleDisabled
	}

	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}

	// 1. 逐课程筛选候选
	sections := snap.Sections()
	byCourse := make(map[string][]routine.Candidate, len(requests))
	grouped := make([]routine.CourseCandidates, 0, len(requests))
	for _, r := range requests {
		cands := s.engine.FilterCandidates(r, sections, days, windows)
		byCourse[routine.CandidateKey(r.CourseCode)] = cands
		grouped = append(grouped, routine.CourseCandidates{CourseCode: r.CourseCode, Candidates: cands})
	}

	// 2. 组装
	strategy := StrategyGreedy
	var sel *routine.Selection
	if req.UseAI {
		strategy = StrategyAI
		sel, err = s.engine.AssistedAssemble(ctx, s.oracle, s.timeout, &routine.OracleRequest{
			Requests:          requests,
			Candidates:        grouped,
			Days:              days,
			Windows:           windows,
			CommutePreference: strings.TrimSpace(req.CommutePreference),
		})
	} else {
		sel, err = s.engine.Assemble(requests, byCourse)
	}
	if err != nil {
		s.logger.Info("未能生成课表",
			zap.String("strategy", strategy),
			zap.Int("courses", len(requests)),
			zap.Error(err),
		)
		return nil, err
	}

	// 3. 组装响应
	resp := &dto.RoutineResponse{
		Strategy: strategy,
		Sections: make([]dto.RoutineSectionResponse, 0, len(sel.Sections)),
		Feedback: sel.Feedback,
	}
	for _, c := range sel.Sections {
		matched := c.Matched
		if matched == nil {
			matched = []routine.Interval{}
		}
		resp.Sections = append(resp.Sections, dto.RoutineSectionResponse{
			SectionResponse:  toSectionResponse(c.Section, c.Intervals),
			MatchedSchedules: matched,
		})
	}

	s.logger.Info("课表生成成功",
		zap.String("strategy", strategy),
		zap.Int("courses", len(requests)),
	)
	return resp, nil
}

// ── 请求解析 ──

func parseDays(raw []string) ([]routine.Day, error) {
	days := make([]routine.Day, 0, len(raw))
	seen := make(map[routine.Day]bool, len(raw))
	for _, d := range raw {
		day, ok := routine.ParseDay(d)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDay, d)
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days, nil
}

func parseWindows(raw []string) ([]routine.Window, error) {
	windows := make([]routine.Window, 0, len(raw))
	for _, t := range raw {
		if !routine.IsKnownTimeSlot(t) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTimeSlot, t)
		}
		w, err := routine.ParseWindow(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTimeSlot, t)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func toCourseRequests(items []dto.CourseRequestItem) ([]routine.CourseRequest, error) {
	requests := make([]routine.CourseRequest, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		key := routine.CandidateKey(it.Course)
		if key == "" {
			return nil, ErrEmptyRoutine
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCourse, it.Course)
		}
		seen[key] = true

		var faculties []string
		for _, f := range it.Faculty {
			if f = strings.TrimSpace(f); f != "" {
				faculties = append(faculties, f)
			}
		}
		requests = append(requests, routine.CourseRequest{CourseCode: strings.TrimSpace(it.Course), Faculties: faculties})
	}
	return requests, nil
}
