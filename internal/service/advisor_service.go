package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/oracle"
	"smart-routine/backend/internal/routine"
)

// AdvisorService 课表分析与问答接口
//
// 冲突检查总是返回确定性的冲突列表；启用生成式模型时附带分析文本，
// 模型调用失败只记录日志，不影响冲突列表。
// 评分与问答完全依赖模型，未启用时返回 ErrOracleDisabled。
type AdvisorService interface {
	ExamConflicts(ctx context.Context, req *dto.RoutineRefRequest) (*dto.ExamConflictReport, error)
	TimeConflicts(ctx context.Context, req *dto.RoutineRefRequest) (*dto.TimeConflictReport, error)
	Feedback(ctx context.Context, req *dto.RoutineRefRequest) (*dto.FeedbackResponse, error)
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
}

type advisorService struct {
	store   *catalog.Store
	engine  *routine.Engine
	llm     oracle.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewAdvisorService 创建 AdvisorService 实例；llm 为 nil 表示未启用
func NewAdvisorService(store *catalog.Store, engine *routine.Engine, llm oracle.Client, timeout time.Duration, logger *zap.Logger) AdvisorService {
	return &advisorService{store: store, engine: engine, llm: llm, timeout: timeout, logger: logger}
}

func (s *advisorService) ExamConflicts(ctx context.Context, req *dto.RoutineRefRequest) (*dto.ExamConflictReport, error) {
	selected, err := s.resolve(req.SectionIDs)
	if err != nil {
		return nil, err
	}
	conflicts := routine.SweepExamConflicts(selected)
	if conflicts == nil {
		conflicts = []routine.ExamConflict{}
	}
	report := &dto.ExamConflictReport{HasConflicts: len(conflicts) > 0, Conflicts: conflicts}
	if s.llm != nil {
		report.Analysis = s.analyze(ctx, "exam", oracle.ExamAnalysisPrompt(oracle.EntriesFromCandidates(selected), conflicts))
	}
	return report, nil
}

func (s *advisorService) TimeConflicts(ctx context.Context, req *dto.RoutineRefRequest) (*dto.TimeConflictReport, error) {
	selected, err := s.resolve(req.SectionIDs)
	if err != nil {
		return nil, err
	}
	conflicts := routine.SweepTimeConflicts(selected)
	if conflicts == nil {
		conflicts = []routine.TimeConflict{}
	}
	report := &dto.TimeConflictReport{HasConflicts: len(conflicts) > 0, Conflicts: conflicts}
	if s.llm != nil {
		report.Analysis = s.analyze(ctx, "time", oracle.TimeAnalysisPrompt(oracle.EntriesFromCandidates(selected), conflicts))
	}
	return report, nil
}

func (s *advisorService) Feedback(ctx context.Context, req *dto.RoutineRefRequest) (*dto.FeedbackResponse, error) {
	if s.llm == nil {
		return nil, ErrOracleDisabled
	}
	selected, err := s.resolve(req.SectionIDs)
	if err != nil {
		return nil, err
	}
	text, err := s.generate(ctx, oracle.FeedbackPrompt(oracle.EntriesFromCandidates(selected)))
	if err != nil {
		return nil, err
	}
	return &dto.FeedbackResponse{Feedback: text}, nil
}

func (s *advisorService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	if s.llm == nil {
		return nil, ErrOracleDisabled
	}
	var entries []oracle.RoutineEntry
	if len(req.SectionIDs) > 0 {
		selected, err := s.resolve(req.SectionIDs)
		if err != nil {
			return nil, err
		}
		entries = oracle.EntriesFromCandidates(selected)
	}
	text, err := s.generate(ctx, oracle.AskPrompt(strings.TrimSpace(req.Question), entries))
	if err != nil {
		return nil, err
	}
	return &dto.AskResponse{Answer: text}, nil
}

// ── 内部方法 ──

func (s *advisorService) resolve(ids []string) ([]routine.Candidate, error) {
	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}
	return resolveRoutine(snap, s.engine, ids)
}

func (s *advisorService) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Generate(callCtx, prompt)
	if err != nil {
		s.logger.Warn("生成式模型调用失败", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrOracleFailed, err)
	}
	return text, nil
}

// analyze 可选分析：失败时返回空字符串
func (s *advisorService) analyze(ctx context.Context, kind, prompt string) string {
	text, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Info("冲突分析文本生成失败，仅返回冲突列表", zap.String("kind", kind))
		return ""
	}
	return text
}
