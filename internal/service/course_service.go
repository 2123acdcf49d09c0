package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/routine"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound  = errors.New("课程不存在")
	ErrSectionNotFound = errors.New("section 不存在")
)

// CourseService 课程目录查询接口
type CourseService interface {
	ListCourses(ctx context.Context) ([]catalog.Course, error)
	// ListSections 返回某门课程仍有空位的 section
	ListSections(ctx context.Context, courseCode string) ([]dto.SectionResponse, error)
	ListFaculties(ctx context.Context, req *dto.FacultyListRequest) ([]string, error)
	GetExamSchedule(ctx context.Context, req *dto.ExamScheduleRequest) (*dto.ExamScheduleResponse, error)
}

type courseService struct {
	store  *catalog.Store
	engine *routine.Engine
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(store *catalog.Store, engine *routine.Engine, logger *zap.Logger) CourseService {
	return &courseService{store: store, engine: engine, logger: logger}
}

func (s *courseService) ListCourses(ctx context.Context) ([]catalog.Course, error) {
	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}
	return snap.Courses(), nil
}

func (s *courseService) ListSections(ctx context.Context, courseCode string) ([]dto.SectionResponse, error) {
	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}

	sections := snap.CourseSections(courseCode)
	if len(sections) == 0 {
		return nil, ErrCourseNotFound
	}

	result := make([]dto.SectionResponse, 0, len(sections))
	for i := range sections {
		sec := &sections[i]
		if sec.AvailableSeats() <= 0 {
			continue
		}
		// 跨越午夜的实验课同样展示
		intervals, wrapped := s.engine.Normalizer().Schedule(sec)
		result = append(result, toSectionResponse(sec, append(intervals, wrapped...)))
	}
	return result, nil
}

func (s *courseService) ListFaculties(ctx context.Context, req *dto.FacultyListRequest) ([]string, error) {
	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}
	var codes []string
	if req.Courses != "" {
		codes = strings.Split(req.Courses, ",")
	}
	return snap.Faculties(codes), nil
}

func (s *courseService) GetExamSchedule(ctx context.Context, req *dto.ExamScheduleRequest) (*dto.ExamScheduleResponse, error) {
	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}
	sec, ok := snap.FindSection(req.CourseCode, req.SectionName)
	if !ok {
		return nil, ErrSectionNotFound
	}
	resp := toExamResponse(sec)
	return &resp, nil
}
