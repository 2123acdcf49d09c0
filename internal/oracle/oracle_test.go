package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"smart-routine/backend/internal/model"
	"smart-routine/backend/internal/routine"
)

// ── ParseProposal ──

func TestParseProposal(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		ids      []string
		feedback string
	}{
		{
			name: "纯数组",
			text: `[{"courseCode":"CSE110","sectionId":101},{"courseCode":"MAT110","sectionId":"201"}]`,
			ids:  []string{"101", "201"},
		},
		{
			name:     "带说明文字与反馈",
			text:     "Here you go:\n```json\n[{\"sectionId\": 7}]\n```\nFeedback: compact two-day routine",
			ids:      []string{"7"},
			feedback: "compact two-day routine",
		},
		{
			name: "输出被截断",
			text: `[{"courseCode":"CSE110","sectionId":101},{"courseCode":"MAT110","sectionId":"201"`,
			ids:  []string{"101", "201"},
		},
		{
			name: "空数组",
			text: "[]\nFeedback: impossible",
			ids:  nil, feedback: "impossible",
		},
		{
			name: "没有数组",
			text: "I cannot build a routine.",
			ids:  nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseProposal(tc.text)
			if err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if strings.Join(p.SectionIDs, ",") != strings.Join(tc.ids, ",") {
				t.Fatalf("期望 %v, got %v", tc.ids, p.SectionIDs)
			}
			if p.Feedback != tc.feedback {
				t.Fatalf("期望反馈 %q, got %q", tc.feedback, p.Feedback)
			}
		})
	}

	if _, err := ParseProposal(`[{"sectionId": 1,,}]`); err == nil {
		t.Fatalf("无法修复的 JSON 应报错")
	}
}

func TestRepairJSON(t *testing.T) {
	if got := RepairJSON(`[{"a":1},{"b":2`); got != `[{"a":1},{"b":2}]` {
		t.Fatalf("补全结果错误: %s", got)
	}
	if got := RepairJSON(`[{"a":1},`); got != `[{"a":1}]` {
		t.Fatalf("应去掉结尾逗号: %s", got)
	}
	if got := RepairJSON(`[]`); got != `[]` {
		t.Fatalf("合法输入不应改变: %s", got)
	}
}

// ── GeminiClient ──

func TestGeminiClient_Generate(t *testing.T) {
	var gotPath, gotKey, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Score: "},{"text":"8/10 "}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL+"/v1beta/", "gemini-test", "secret", srv.Client(), zap.NewNop())
	text, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("调用失败: %v", err)
	}
	if text != "Score: 8/10" {
		t.Fatalf("期望拼接并去除空白, got %q", text)
	}
	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Fatalf("请求路径错误: %s", gotPath)
	}
	if gotKey != "secret" || gotPrompt != "hello" {
		t.Fatalf("请求参数错误: key=%q prompt=%q", gotKey, gotPrompt)
	}
}

func TestGeminiClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("key") {
		case "bad":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key invalid","status":"PERMISSION_DENIED"}}`))
		case "empty":
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		default:
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"late"}]}}]}`))
		}
	}))
	defer srv.Close()

	if _, err := NewGeminiClient(srv.URL, "m", "bad", srv.Client(), zap.NewNop()).Generate(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("期望 ErrUpstream, got %v", err)
	}
	if _, err := NewGeminiClient(srv.URL, "m", "empty", srv.Client(), zap.NewNop()).Generate(context.Background(), "x"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("期望 ErrEmptyResponse, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := NewGeminiClient(srv.URL, "m", "slow", srv.Client(), zap.NewNop()).Generate(ctx, "x"); err == nil {
		t.Fatalf("超时应返回错误")
	}
}

// ── Strategy + Engine ──

type fakeClient struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func strategyFixture(t *testing.T) (*routine.Engine, *routine.OracleRequest) {
	t.Helper()
	engine := routine.NewEngine(routine.NewNormalizer(zap.NewNop(), time.UTC, time.UTC), zap.NewNop())
	sections := []model.Section{
		{SectionID: "1", CourseCode: "CSE110", SectionName: "01", Faculties: "ABC",
			SectionSchedule: model.SectionSchedule{ClassSchedules: model.ScheduleList{{Day: "SUNDAY", StartTime: "08:00:00", EndTime: "09:20:00"}}}},
		{SectionID: "2", CourseCode: "MAT110", SectionName: "01", Faculties: "XYZ",
			SectionSchedule: model.SectionSchedule{ClassSchedules: model.ScheduleList{{Day: "SUNDAY", StartTime: "08:00:00", EndTime: "09:20:00"}}}},
		{SectionID: "3", CourseCode: "MAT110", SectionName: "02", Faculties: "XYZ",
			SectionSchedule: model.SectionSchedule{ClassSchedules: model.ScheduleList{{Day: "SUNDAY", StartTime: "09:30:00", EndTime: "10:50:00"}}}},
	}
	w1, _ := routine.ParseWindow("8:00 AM-9:20 AM")
	w2, _ := routine.ParseWindow("9:30 AM-10:50 AM")
	req := &routine.OracleRequest{
		Requests:          []routine.CourseRequest{{CourseCode: "CSE110"}, {CourseCode: "MAT110"}},
		Days:              []routine.Day{routine.Sunday},
		Windows:           []routine.Window{w1, w2},
		CommutePreference: "near",
	}
	for _, r := range req.Requests {
		req.Candidates = append(req.Candidates, routine.CourseCandidates{
			CourseCode: r.CourseCode,
			Candidates: engine.FilterCandidates(r, sections, req.Days, req.Windows),
		})
	}
	return engine, req
}

func TestStrategy_ValidProposalAccepted(t *testing.T) {
	engine, req := strategyFixture(t)
	client := &fakeClient{reply: `[{"sectionId":1},{"sectionId":3}]` + "\nFeedback: all on Sunday"}

	sel, err := engine.AssistedAssemble(context.Background(), NewStrategy(client, zap.NewNop()), time.Second, req)
	if err != nil {
		t.Fatalf("合法方案应被接受: %v", err)
	}
	if len(sel.Sections) != 2 || sel.Sections[1].Section.SectionID != "3" {
		t.Fatalf("选择结果错误: %+v", sel.Sections)
	}
	if sel.Feedback != "all on Sunday" {
		t.Fatalf("反馈错误: %q", sel.Feedback)
	}
	for _, want := range []string{"HARD CONSTRAINTS", "Commute preference: near", `"sectionId": "3"`} {
		if !strings.Contains(client.prompt, want) {
			t.Fatalf("提示词缺少 %q", want)
		}
	}
}

func TestStrategy_ConflictingProposalRejected(t *testing.T) {
	engine, req := strategyFixture(t)
	client := &fakeClient{reply: `[{"sectionId":1},{"sectionId":2}]`}

	_, err := engine.AssistedAssemble(context.Background(), NewStrategy(client, zap.NewNop()), time.Second, req)
	if !errors.Is(err, routine.ErrConflictDetected) {
		t.Fatalf("存在时间冲突的方案必须被拒绝, got %v", err)
	}
}

func TestStrategy_UpstreamErrorDegrades(t *testing.T) {
	engine, req := strategyFixture(t)
	client := &fakeClient{err: ErrUpstream}

	_, err := engine.AssistedAssemble(context.Background(), NewStrategy(client, zap.NewNop()), time.Second, req)
	if !errors.Is(err, routine.ErrUnsatisfiableCourse) || !errors.Is(err, routine.ErrOracleUnavailable) {
		t.Fatalf("模型不可用时应返回无解, got %v", err)
	}
}

// ── Prompts ──

func TestAnalysisPrompts(t *testing.T) {
	entries := []RoutineEntry{{CourseCode: "CSE110", MidExamDate: "2024-07-10"}, {CourseCode: "MAT110"}}

	table := ExamTable(entries)
	if !strings.Contains(table, "| CSE110 | 2024-07-10 | N/A |") || !strings.Contains(table, "| MAT110 | N/A | N/A |") {
		t.Fatalf("考试表格错误:\n%s", table)
	}

	if p := ExamAnalysisPrompt(entries, nil); !strings.Contains(p, "do NOT mention any conflicts") {
		t.Fatalf("无冲突时应要求只做总结")
	}
	p := ExamAnalysisPrompt(entries, []routine.ExamConflict{{Course1: "CSE110", Course2: "MAT110", Date: "2024-07-10", Type1: "Mid", Type2: "Mid"}})
	if !strings.Contains(p, "CSE110 (Mid) and MAT110 (Mid) have exams on 2024-07-10") {
		t.Fatalf("冲突描述缺失:\n%s", p)
	}

	p = TimeAnalysisPrompt(entries, []routine.TimeConflict{{Type: "class-lab", Course1: "CSE110", Course2: "MAT110", Day: routine.Monday}})
	if !strings.Contains(p, "class-lab conflict between CSE110 and MAT110 on MONDAY") {
		t.Fatalf("时间冲突描述缺失:\n%s", p)
	}

	if p := AskPrompt("when is my first class?", entries); !strings.Contains(p, "Question: when is my first class?") || !strings.Contains(p, "CSE110") {
		t.Fatalf("问答提示词错误")
	}
	if p := AskPrompt("hi", nil); strings.Contains(p, "has generated the following routine") {
		t.Fatalf("无课表时不应包含课表上下文")
	}
}
