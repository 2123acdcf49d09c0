package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"smart-routine/backend/config"
	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/model"
	"smart-routine/backend/internal/oracle"
	"smart-routine/backend/internal/routine"
)

// ── 公共业务错误 ──

var (
	ErrCatalogNotLoaded = errors.New("课程目录尚未加载")
	ErrOracleDisabled   = errors.New("辅助排课功能未启用")
	ErrOracleFailed     = errors.New("辅助服务暂时不可用")
	ErrEmptyRoutine     = errors.New("课表为空")
	ErrUnknownSection   = errors.New("section 不存在")
)

// Service 所有 Service 的聚合入口
type Service struct {
	Catalog CatalogService
	Course  CourseService
	Routine RoutineService
	Advisor AdvisorService
	Export  ExportService
}

// NewService 创建 Service 聚合；llm 为 nil 表示未启用辅助排课
func NewService(
	cfg *config.Config,
	store *catalog.Store,
	refresher CatalogRefresher,
	engine *routine.Engine,
	llm oracle.Client,
	logger *zap.Logger,
) *Service {
	var strategy routine.Oracle
	if llm != nil {
		strategy = oracle.NewStrategy(llm, logger.Named("oracle"))
	}
	return &Service{
		Catalog: NewCatalogService(store, refresher, logger),
		Course:  NewCourseService(store, engine, logger),
		Routine: NewRoutineService(store, engine, strategy, cfg.Oracle.Timeout, logger),
		Advisor: NewAdvisorService(store, engine, llm, cfg.Oracle.Timeout, logger),
		Export:  NewExportService(store, engine, cfg.Catalog.Timezone, logger),
	}
}

// ── 公共辅助 ──

// currentSnapshot 取当前目录快照
func currentSnapshot(store *catalog.Store) (*catalog.Snapshot, error) {
	snap := store.Current()
	if snap == nil {
		return nil, ErrCatalogNotLoaded
	}
	return snap, nil
}

// resolveRoutine 将 section ID 列表还原为候选（保持传入顺序，忽略重复 ID）
func resolveRoutine(snap *catalog.Snapshot, engine *routine.Engine, ids []string) ([]routine.Candidate, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]routine.Candidate, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sec, ok := snap.Section(model.SectionID(id))
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSection, id)
		}
		out = append(out, engine.Prepare(sec))
	}
	if len(out) == 0 {
		return nil, ErrEmptyRoutine
	}
	return out, nil
}

// toSectionResponse 将 section 转为响应，时间按展示格式输出（实验课已换算到展示时区）
func toSectionResponse(sec *model.Section, intervals []routine.Interval) dto.SectionResponse {
	resp := dto.SectionResponse{
		SectionID:      string(sec.SectionID),
		CourseCode:     sec.CourseCode,
		CourseName:     sec.CourseName,
		SectionName:    sec.SectionName,
		Faculties:      sec.Faculties,
		Capacity:       sec.Capacity,
		ConsumedSeat:   sec.ConsumedSeat,
		AvailableSeats: sec.AvailableSeats(),
		RoomName:       sec.RoomName,
		LabRoomName:    sec.LabRoomName,
		ClassSchedules: []dto.ScheduleResponse{},
		LabSchedules:   []dto.ScheduleResponse{},
		Exams:          toExamResponse(sec),
	}
	for _, iv := range intervals {
		sr := dto.ScheduleResponse{
			Day:           string(iv.Day),
			StartTime:     iv.StartTime,
			EndTime:       iv.EndTime,
			Room:          iv.Room,
			FormattedTime: iv.FormattedTime,
		}
		if iv.Kind == routine.KindLab {
			resp.LabSchedules = append(resp.LabSchedules, sr)
		} else {
			resp.ClassSchedules = append(resp.ClassSchedules, sr)
		}
	}
	return resp
}

func toExamResponse(sec *model.Section) dto.ExamScheduleResponse {
	return dto.ExamScheduleResponse{
		CourseCode:         sec.CourseCode,
		SectionName:        sec.SectionName,
		MidExamDate:        sec.MidExamDate,
		MidExamStartTime:   sec.MidExamStartTime,
		MidExamEndTime:     sec.MidExamEndTime,
		FinalExamDate:      sec.FinalExamDate,
		FinalExamStartTime: sec.FinalExamStartTime,
		FinalExamEndTime:   sec.FinalExamEndTime,
	}
}

// ════════════════════════════════════════════════════════════
// CatalogService
// ════════════════════════════════════════════════════════════

// CatalogRefresher 目录刷新能力（由 catalog.Refresher 实现）
type CatalogRefresher interface {
	Refresh(ctx context.Context) (*catalog.Snapshot, error)
}

// CatalogService 目录状态与手动刷新
type CatalogService interface {
	Status(ctx context.Context) (*dto.CatalogStatusResponse, error)
	Refresh(ctx context.Context) (*dto.CatalogStatusResponse, error)
}

type catalogService struct {
	store     *catalog.Store
	refresher CatalogRefresher
	logger    *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(store *catalog.Store, refresher CatalogRefresher, logger *zap.Logger) CatalogService {
	return &catalogService{store: store, refresher: refresher, logger: logger}
}

func (s *catalogService) Status(ctx context.Context) (*dto.CatalogStatusResponse, error) {
	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}
	return toCatalogStatus(snap), nil
}

func (s *catalogService) Refresh(ctx context.Context) (*dto.CatalogStatusResponse, error) {
	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Warn("手动刷新课程目录失败", zap.Error(err))
		return nil, err
	}
	return toCatalogStatus(snap), nil
}

func toCatalogStatus(snap *catalog.Snapshot) *dto.CatalogStatusResponse {
	return &dto.CatalogStatusResponse{
		Source:   snap.Source,
		Sections: snap.Len(),
		Courses:  len(snap.Courses()),
		LoadedAt: snap.LoadedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
