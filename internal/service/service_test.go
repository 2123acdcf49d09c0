package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"smart-routine/backend/config"
	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/model"
	"smart-routine/backend/internal/oracle"
	"smart-routine/backend/internal/routine"
)

// ── 测试辅助 ──

// fixtureSections 四个 section：
//   - 1 CSE110 01：周日 08:00，已满；期中 07-15 10:00
//   - 2 CSE110 02：周一 09:30 + 周二实验；期中 07-16
//   - 3 MAT110 01：周日 08:00（与 1 上课冲突）；期中 07-15 11:00（与 1 考试冲突）
//   - 4 MAT110 02：周一 11:00；期中 07-17，期末 08-20
func fixtureSections() []model.Section {
	return []model.Section{
		{
			SectionID: "1", CourseCode: "CSE110", CourseName: "Programming Language I", SectionName: "01",
			Faculties: "ABC", Capacity: 40, ConsumedSeat: 40,
			SectionSchedule: model.SectionSchedule{ClassSchedules: model.ScheduleList{
				{Day: "SUNDAY", StartTime: "08:00:00", EndTime: "09:20:00", Room: "UB1"},
			}},
			MidExamDate: "2024-07-15", MidExamStartTime: "10:00", MidExamEndTime: "12:00",
		},
		{
			SectionID: "2", CourseCode: "CSE110", CourseName: "Programming Language I", SectionName: "02",
			Faculties: "XYZ", Capacity: 40, ConsumedSeat: 10,
			SectionSchedule: model.SectionSchedule{ClassSchedules: model.ScheduleList{
				{Day: "MONDAY", StartTime: "09:30:00", EndTime: "10:50:00", Room: "UB2"},
			}},
			LabSchedules: model.ScheduleList{{Day: "TUESDAY", StartTime: "08:00:00", EndTime: "10:50:00", Room: "LAB1"}},
			MidExamDate:  "2024-07-16", MidExamStartTime: "10:00", MidExamEndTime: "12:00",
		},
		{
			SectionID: "3", CourseCode: "MAT110", CourseName: "Math I", SectionName: "01",
			Faculties: "DEF", Capacity: 35, ConsumedSeat: 0,
			SectionSchedule: model.SectionSchedule{ClassSchedules: model.ScheduleList{
				{Day: "SUNDAY", StartTime: "08:00:00", EndTime: "09:20:00"},
			}},
			MidExamDate: "2024-07-15", MidExamStartTime: "11:00", MidExamEndTime: "13:00",
		},
		{
			SectionID: "4", CourseCode: "MAT110", CourseName: "Math I", SectionName: "02",
			Faculties: "GHI", Capacity: 35, ConsumedSeat: 5,
			SectionSchedule: model.SectionSchedule{ClassSchedules: model.ScheduleList{
				{Day: "MONDAY", StartTime: "11:00:00", EndTime: "12:20:00"},
			}},
			MidExamDate: "2024-07-17", MidExamStartTime: "10:00", MidExamEndTime: "12:00",
			FinalExamDate: "2024-08-20", FinalExamStartTime: "14:00", FinalExamEndTime: "16:00",
		},
	}
}

func newTestStore() *catalog.Store {
	store := catalog.NewStore()
	store.Swap(catalog.NewSnapshot(fixtureSections(), "feed", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	return store
}

func newTestEngine() *routine.Engine {
	logger := zap.NewNop()
	return routine.NewEngine(routine.NewNormalizer(logger, time.UTC, time.UTC), logger)
}

// fakeLLM 记录收到的 prompt 并返回固定结果
type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type stubRefresher struct {
	snap *catalog.Snapshot
	err  error
}

func (r *stubRefresher) Refresh(ctx context.Context) (*catalog.Snapshot, error) {
	return r.snap, r.err
}

func newTestRoutineService(llm oracle.Client) RoutineService {
	var strategy routine.Oracle
	if llm != nil {
		strategy = oracle.NewStrategy(llm, zap.NewNop())
	}
	return NewRoutineService(newTestStore(), newTestEngine(), strategy, time.Second, zap.NewNop())
}

func sectionIDs(resp *dto.RoutineResponse) []string {
	ids := make([]string, 0, len(resp.Sections))
	for _, s := range resp.Sections {
		ids = append(ids, s.SectionID)
	}
	return ids
}

func baseRoutineRequest() *dto.RoutineRequest {
	return &dto.RoutineRequest{
		Courses: []dto.CourseRequestItem{{Course: "CSE110"}, {Course: "MAT110"}},
		Days:    []string{"sunday", "MONDAY", "Tuesday"},
		Times:   routine.TimeSlots,
	}
}

// ── NewService ──

func TestNewService_WiresAllServices(t *testing.T) {
	cfg := &config.Config{
		Catalog: config.CatalogConfig{Timezone: "UTC"},
		Oracle:  config.OracleConfig{Timeout: time.Second},
	}
	svc := NewService(cfg, newTestStore(), &stubRefresher{}, newTestEngine(), nil, zap.NewNop())
	if svc.Catalog == nil || svc.Course == nil || svc.Routine == nil || svc.Advisor == nil || svc.Export == nil {
		t.Fatalf("Service 聚合存在未初始化的成员: %+v", svc)
	}
}

// ── CourseService ──

func TestCourseService_ListCourses(t *testing.T) {
	svc := NewCourseService(newTestStore(), newTestEngine(), zap.NewNop())

	courses, err := svc.ListCourses(context.Background())
	if err != nil {
		t.Fatalf("ListCourses 失败: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("期望 2 门课程，实际: %d", len(courses))
	}
}

func TestCourseService_ListSections_SkipsFullSections(t *testing.T) {
	svc := NewCourseService(newTestStore(), newTestEngine(), zap.NewNop())

	sections, err := svc.ListSections(context.Background(), "cse110")
	if err != nil {
		t.Fatalf("ListSections 失败: %v", err)
	}
	if len(sections) != 1 || sections[0].SectionID != "2" {
		t.Fatalf("期望仅返回 section 2，实际: %+v", sections)
	}
	if len(sections[0].ClassSchedules) != 1 || len(sections[0].LabSchedules) != 1 {
		t.Errorf("课时分类错误: %+v", sections[0])
	}
	if sections[0].AvailableSeats != 30 {
		t.Errorf("期望剩余 30 座，实际: %d", sections[0].AvailableSeats)
	}
}

func TestCourseService_ListSections_UnknownCourse(t *testing.T) {
	svc := NewCourseService(newTestStore(), newTestEngine(), zap.NewNop())

	_, err := svc.ListSections(context.Background(), "PHY111")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

func TestCourseService_ListFaculties(t *testing.T) {
	svc := NewCourseService(newTestStore(), newTestEngine(), zap.NewNop())

	got, err := svc.ListFaculties(context.Background(), &dto.FacultyListRequest{Courses: "CSE110"})
	if err != nil {
		t.Fatalf("ListFaculties 失败: %v", err)
	}
	if strings.Join(got, ",") != "ABC,XYZ" {
		t.Errorf("期望 [ABC XYZ]，实际: %v", got)
	}

	all, _ := svc.ListFaculties(context.Background(), &dto.FacultyListRequest{})
	if len(all) != 4 {
		t.Errorf("未指定课程时期望返回全部 4 位教师，实际: %v", all)
	}
}

func TestCourseService_GetExamSchedule(t *testing.T) {
	svc := NewCourseService(newTestStore(), newTestEngine(), zap.NewNop())

	resp, err := svc.GetExamSchedule(context.Background(), &dto.ExamScheduleRequest{CourseCode: "cse110", SectionName: "02"})
	if err != nil {
		t.Fatalf("GetExamSchedule 失败: %v", err)
	}
	if resp.MidExamDate != "2024-07-16" || resp.FinalExamDate != "" {
		t.Errorf("考试安排错误: %+v", resp)
	}

	_, err = svc.GetExamSchedule(context.Background(), &dto.ExamScheduleRequest{CourseCode: "CSE110", SectionName: "09"})
	if !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("期望 ErrSectionNotFound，实际: %v", err)
	}
}

func TestCourseService_CatalogNotLoaded(t *testing.T) {
	svc := NewCourseService(catalog.NewStore(), newTestEngine(), zap.NewNop())

	if _, err := svc.ListCourses(context.Background()); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("期望 ErrCatalogNotLoaded，实际: %v", err)
	}
}

// ── RoutineService ──

func TestRoutineService_Generate_Greedy(t *testing.T) {
	svc := newTestRoutineService(nil)

	resp, err := svc.Generate(context.Background(), baseRoutineRequest())
	if err != nil {
		t.Fatalf("Generate 失败: %v", err)
	}
	if resp.Strategy != StrategyGreedy {
		t.Errorf("期望 greedy 策略，实际: %s", resp.Strategy)
	}
	// section 1 先被锁定，3 与之冲突，MAT110 落到 4
	if got := strings.Join(sectionIDs(resp), ","); got != "1,4" {
		t.Errorf("期望选中 1,4，实际: %s", got)
	}
	if len(resp.Sections[0].MatchedSchedules) != 1 {
		t.Errorf("期望 section 1 命中 1 节课，实际: %+v", resp.Sections[0].MatchedSchedules)
	}
}

func TestRoutineService_Generate_Unsatisfiable(t *testing.T) {
	svc := newTestRoutineService(nil)
	req := baseRoutineRequest()
	req.Courses = []dto.CourseRequestItem{
		{Course: "CSE110", Faculty: []string{"abc"}},
		{Course: "MAT110", Faculty: []string{"DEF"}},
	}

	_, err := svc.Generate(context.Background(), req)
	var f *routine.Failure
	if !errors.As(err, &f) {
		t.Fatalf("期望 *routine.Failure，实际: %v", err)
	}
	if f.Kind != routine.FailureUnsatisfiable || f.CourseCode != "MAT110" {
		t.Errorf("期望 MAT110 无解，实际: %+v", f)
	}
	if !errors.Is(err, routine.ErrUnsatisfiableCourse) {
		t.Errorf("期望可匹配 ErrUnsatisfiableCourse")
	}
}

func TestRoutineService_Generate_InvalidInput(t *testing.T) {
	svc := newTestRoutineService(nil)

	tests := []struct {
		name   string
		mutate func(r *dto.RoutineRequest)
		want   error
	}{
		{"无效星期", func(r *dto.RoutineRequest) { r.Days = []string{"FUNDAY"} }, ErrInvalidDay},
		{"无效时间段", func(r *dto.RoutineRequest) { r.Times = []string{"7:00 AM-8:00 AM"} }, ErrInvalidTimeSlot},
		{"课程重复", func(r *dto.RoutineRequest) {
			r.Courses = []dto.CourseRequestItem{{Course: "cse110"}, {Course: "CSE110 "}}
		}, ErrDuplicateCourse},
		{"空课程代码", func(r *dto.RoutineRequest) { r.Courses = []dto.CourseRequestItem{{Course: "  "}} }, ErrEmptyRoutine},
		{"未启用辅助排课", func(r *dto.RoutineRequest) { r.UseAI = true }, ErrOracleDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRoutineRequest()
			tt.mutate(req)
			_, err := svc.Generate(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestRoutineService_Generate_CatalogNotLoaded(t *testing.T) {
	svc := NewRoutineService(catalog.NewStore(), newTestEngine(), nil, time.Second, zap.NewNop())

	_, err := svc.Generate(context.Background(), baseRoutineRequest())
	if !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("期望 ErrCatalogNotLoaded，实际: %v", err)
	}
}

func TestRoutineService_Generate_Assisted(t *testing.T) {
	llm := &fakeLLM{reply: "Here you go:\n[{\"sectionId\": \"2\"}, {\"sectionId\": 3}]\nFeedback: Compact week."}
	svc := newTestRoutineService(llm)
	req := baseRoutineRequest()
	req.UseAI = true
	req.CommutePreference = "near"

	resp, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate 失败: %v", err)
	}
	if resp.Strategy != StrategyAI {
		t.Errorf("期望 ai 策略，实际: %s", resp.Strategy)
	}
	if got := strings.Join(sectionIDs(resp), ","); got != "2,3" {
		t.Errorf("期望采用模型方案 2,3，实际: %s", got)
	}
	if resp.Feedback != "Compact week." {
		t.Errorf("期望保留模型评价，实际: %q", resp.Feedback)
	}
	if len(llm.prompts) != 1 || !strings.Contains(llm.prompts[0], "HARD CONSTRAINTS") {
		t.Errorf("prompt 缺少硬约束说明")
	}
}

func TestRoutineService_Generate_AssistedConflictRejected(t *testing.T) {
	llm := &fakeLLM{reply: `[{"sectionId": "1"}, {"sectionId": "3"}]`}
	svc := newTestRoutineService(llm)
	req := baseRoutineRequest()
	req.UseAI = true

	_, err := svc.Generate(context.Background(), req)
	if !errors.Is(err, routine.ErrConflictDetected) {
		t.Fatalf("期望 ErrConflictDetected，实际: %v", err)
	}
	var f *routine.Failure
	if errors.As(err, &f) && (len(f.ExamConflicts) == 0 || len(f.TimeConflicts) == 0) {
		t.Errorf("期望同时报告考试与上课冲突，实际: %+v", f)
	}
}

func TestRoutineService_Generate_AssistedUpstreamError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("boom")}
	svc := newTestRoutineService(llm)
	req := baseRoutineRequest()
	req.UseAI = true

	_, err := svc.Generate(context.Background(), req)
	if !errors.Is(err, routine.ErrUnsatisfiableCourse) {
		t.Errorf("模型出错时期望按无解处理，实际: %v", err)
	}
}

// ── AdvisorService ──

func TestAdvisorService_ExamConflicts(t *testing.T) {
	svc := NewAdvisorService(newTestStore(), newTestEngine(), nil, time.Second, zap.NewNop())

	report, err := svc.ExamConflicts(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"1", "3"}})
	if err != nil {
		t.Fatalf("ExamConflicts 失败: %v", err)
	}
	if !report.HasConflicts || len(report.Conflicts) != 1 {
		t.Fatalf("期望 1 个考试冲突，实际: %+v", report)
	}
	if report.Analysis != "" {
		t.Errorf("未启用模型时不应有分析文本")
	}

	report, _ = svc.ExamConflicts(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"2", "4"}})
	if report.HasConflicts || report.Conflicts == nil {
		t.Errorf("无冲突时期望空列表，实际: %+v", report)
	}
}

func TestAdvisorService_TimeConflicts_WithAnalysis(t *testing.T) {
	llm := &fakeLLM{reply: "Move MAT110 to section 02."}
	svc := NewAdvisorService(newTestStore(), newTestEngine(), llm, time.Second, zap.NewNop())

	report, err := svc.TimeConflicts(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"1", "3"}})
	if err != nil {
		t.Fatalf("TimeConflicts 失败: %v", err)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].Day != routine.Sunday {
		t.Errorf("期望周日 1 个上课冲突，实际: %+v", report.Conflicts)
	}
	if report.Analysis != "Move MAT110 to section 02." {
		t.Errorf("期望附带分析文本，实际: %q", report.Analysis)
	}
}

func TestAdvisorService_AnalysisFailureIgnored(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota")}
	svc := NewAdvisorService(newTestStore(), newTestEngine(), llm, time.Second, zap.NewNop())

	report, err := svc.ExamConflicts(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"1", "3"}})
	if err != nil {
		t.Fatalf("分析失败不应影响冲突列表: %v", err)
	}
	if !report.HasConflicts || report.Analysis != "" {
		t.Errorf("期望仅返回冲突列表，实际: %+v", report)
	}
}

func TestAdvisorService_ResolveErrors(t *testing.T) {
	svc := NewAdvisorService(newTestStore(), newTestEngine(), nil, time.Second, zap.NewNop())

	_, err := svc.TimeConflicts(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"1", "999"}})
	if !errors.Is(err, ErrUnknownSection) {
		t.Errorf("期望 ErrUnknownSection，实际: %v", err)
	}
	_, err = svc.TimeConflicts(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{" ", ""}})
	if !errors.Is(err, ErrEmptyRoutine) {
		t.Errorf("期望 ErrEmptyRoutine，实际: %v", err)
	}
}

func TestAdvisorService_Feedback(t *testing.T) {
	disabled := NewAdvisorService(newTestStore(), newTestEngine(), nil, time.Second, zap.NewNop())
	if _, err := disabled.Feedback(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"2"}}); !errors.Is(err, ErrOracleDisabled) {
		t.Errorf("期望 ErrOracleDisabled，实际: %v", err)
	}

	llm := &fakeLLM{reply: "Score: 8/10"}
	svc := NewAdvisorService(newTestStore(), newTestEngine(), llm, time.Second, zap.NewNop())
	resp, err := svc.Feedback(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"2", "4"}})
	if err != nil {
		t.Fatalf("Feedback 失败: %v", err)
	}
	if resp.Feedback != "Score: 8/10" {
		t.Errorf("评价文本错误: %q", resp.Feedback)
	}
	if !strings.Contains(llm.prompts[0], "CSE110") || !strings.Contains(llm.prompts[0], "MAT110") {
		t.Errorf("prompt 应包含课表中的课程")
	}

	llm.err = errors.New("timeout")
	if _, err := svc.Feedback(context.Background(), &dto.RoutineRefRequest{SectionIDs: []string{"2"}}); !errors.Is(err, ErrOracleFailed) {
		t.Errorf("期望 ErrOracleFailed，实际: %v", err)
	}
}

func TestAdvisorService_Ask(t *testing.T) {
	llm := &fakeLLM{reply: "Yes."}
	svc := NewAdvisorService(newTestStore(), newTestEngine(), llm, time.Second, zap.NewNop())

	resp, err := svc.Ask(context.Background(), &dto.AskRequest{Question: "  Is Sunday free?  "})
	if err != nil {
		t.Fatalf("Ask 失败: %v", err)
	}
	if resp.Answer != "Yes." {
		t.Errorf("回答错误: %q", resp.Answer)
	}
	if !strings.Contains(llm.prompts[0], "Is Sunday free?") {
		t.Errorf("prompt 应包含问题")
	}
}

// ── CatalogService ──

func TestCatalogService_Status(t *testing.T) {
	svc := NewCatalogService(newTestStore(), &stubRefresher{}, zap.NewNop())

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status 失败: %v", err)
	}
	if status.Sections != 4 || status.Courses != 2 || status.Source != "feed" {
		t.Errorf("目录状态错误: %+v", status)
	}

	empty := NewCatalogService(catalog.NewStore(), &stubRefresher{}, zap.NewNop())
	if _, err := empty.Status(context.Background()); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("期望 ErrCatalogNotLoaded，实际: %v", err)
	}
}

func TestCatalogService_Refresh(t *testing.T) {
	snap := catalog.NewSnapshot(fixtureSections()[:1], "db", time.Now())
	svc := NewCatalogService(catalog.NewStore(), &stubRefresher{snap: snap}, zap.NewNop())

	status, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh 失败: %v", err)
	}
	if status.Sections != 1 || status.Source != "db" {
		t.Errorf("刷新结果错误: %+v", status)
	}

	failing := NewCatalogService(catalog.NewStore(), &stubRefresher{err: catalog.ErrEmptyCatalog}, zap.NewNop())
	if _, err := failing.Refresh(context.Background()); !errors.Is(err, catalog.ErrEmptyCatalog) {
		t.Errorf("期望透传 ErrEmptyCatalog，实际: %v", err)
	}
}
