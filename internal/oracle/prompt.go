package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"smart-routine/backend/internal/routine"
)

// ── 提示词中使用的精简结构 ──

type promptSlot struct {
	Type  routine.ScheduleKind `json:"type"`
	Day   routine.Day          `json:"day"`
	Start string               `json:"startTime"`
	End   string               `json:"endTime"`
}

type promptExam struct {
	Type  routine.ExamKind `json:"type"`
	Date  string           `json:"date"`
	Start string           `json:"startTime"`
	End   string           `json:"endTime"`
}

type promptSection struct {
	SectionID   string       `json:"sectionId"`
	CourseCode  string       `json:"courseCode"`
	SectionName string       `json:"sectionName"`
	Faculties   string       `json:"faculties"`
	Schedules   []promptSlot `json:"schedules"`
	Exams       []promptExam `json:"exams,omitempty"`
}

func toPromptSection(c routine.Candidate) promptSection {
	ps := promptSection{
		SectionID:   string(c.Section.SectionID),
		CourseCode:  c.Section.CourseCode,
		SectionName: c.Section.SectionName,
		Faculties:   c.Section.Faculties,
	}
	for _, iv := range c.Intervals {
		ps.Schedules = append(ps.Schedules, promptSlot{Type: iv.Kind, Day: iv.Day, Start: iv.StartTime, End: iv.EndTime})
	}
	for _, e := range c.Exams {
		ps.Exams = append(ps.Exams, promptExam{Type: e.Kind, Date: e.Date, Start: e.StartTime, End: e.EndTime})
	}
	return ps
}

func mustJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ── 排课 ──

const commuteRules = `Commute preference strategy:
   - If 'far': regardless of how many days the student selected, first try to fit all courses into ANY 2 of the selected days. If that is impossible without conflicts, try ANY 3 selected days, then ANY 4, and so on. Prefer putting several classes on the same day when it reduces the number of days needed.
   - If 'near': spread classes over more of the selected days to reduce daily workload. First try at most ONE class per selected day; only if that cannot accommodate every course, allow several classes on a day while still spreading them out.`

// RoutinePrompt 组装排课提示词
func RoutinePrompt(req *routine.OracleRequest) string {
	grouped := make(map[string][]promptSection, len(req.Candidates))
	for _, cc := range req.Candidates {
		list := make([]promptSection, 0, len(cc.Candidates))
		for _, c := range cc.Candidates {
			list = append(list, toPromptSection(c))
		}
		grouped[cc.CourseCode] = list
	}

	days := make([]string, 0, len(req.Days))
	for _, d := range req.Days {
		days = append(days, string(d))
	}
	windows := make([]string, 0, len(req.Windows))
	for _, w := range req.Windows {
		windows = append(windows, w.Label)
	}

	var b strings.Builder
	b.WriteString("You are a university routine generator for Bangladesh timezone (GMT+6).\n")
	fmt.Fprintf(&b, "Possible course sections, grouped by course:\n%s\n\n", mustJSON(grouped))
	fmt.Fprintf(&b, "Requested courses and acceptable faculty: %s\n", mustJSON(req.Requests))
	fmt.Fprintf(&b, "Available days: %s\n", strings.Join(days, ", "))
	fmt.Fprintf(&b, "Available times: %s\n", strings.Join(windows, ", "))
	fmt.Fprintf(&b, "Commute preference: %s\n\n", req.CommutePreference)
	b.WriteString(req.Constraints)
	b.WriteString("\n")
	b.WriteString(commuteRules)
	b.WriteString("\n\nReturn ONLY a JSON array of objects of the form {\"courseCode\": \"...\", \"sectionId\": \"...\"}, one per requested course. ")
	b.WriteString("Make sure all brackets and braces are closed and there are no trailing commas. ")
	b.WriteString("After the array you may add one line starting with 'Feedback:' that briefly explains the choice.")
	return b.String()
}

// ── 课表分析 ──

// RoutineEntry 分析类提示词使用的课表条目
type RoutineEntry struct {
	CourseCode    string             `json:"courseCode"`
	SectionName   string             `json:"sectionName"`
	Faculties     string             `json:"faculties"`
	Schedules     []routine.Interval `json:"schedules"`
	MidExamDate   string             `json:"midExamDate,omitempty"`
	FinalExamDate string             `json:"finalExamDate,omitempty"`
}

// EntriesFromCandidates 将课表转换为提示词条目
func EntriesFromCandidates(selected []routine.Candidate) []RoutineEntry {
	out := make([]RoutineEntry, 0, len(selected))
	for _, c := range selected {
		out = append(out, RoutineEntry{
			CourseCode:    c.Section.CourseCode,
			SectionName:   c.Section.SectionName,
			Faculties:     c.Section.Faculties,
			Schedules:     c.Intervals,
			MidExamDate:   c.Section.MidExamDate,
			FinalExamDate: c.Section.FinalExamDate,
		})
	}
	return out
}

// FeedbackPrompt 课表评分提示词，输出以 "Score: X/10" 开头
func FeedbackPrompt(entries []RoutineEntry) string {
	return fmt.Sprintf("Look at this routine:\n%s\n\n", mustJSON(entries)) +
		"First, rate this routine out of 10.\n" +
		"Then give 2-3 quick points about how the schedule looks, what is good and what needs work.\n" +
		"Keep it casual and under 10 words per point.\n" +
		"Start with 'Score: X/10'"
}

// ExamTable 考试日期 Markdown 表格
func ExamTable(entries []RoutineEntry) string {
	var b strings.Builder
	b.WriteString("| Course | Midterm Date | Final Date |\n|--------|--------------|------------|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", e.CourseCode, orNA(e.MidExamDate), orNA(e.FinalExamDate))
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// ExamAnalysisPrompt 考试安排分析提示词；conflicts 为空时只做总结
func ExamAnalysisPrompt(entries []RoutineEntry, conflicts []routine.ExamConflict) string {
	table := ExamTable(entries)
	if len(conflicts) == 0 {
		return fmt.Sprintf("Here is a university routine's exam schedule:\n\n%s\n", table) +
			"Summarize the exam schedule in 2-3 bullet points.\n" +
			"Mention any busy weeks or tight schedules, but do NOT mention any conflicts.\n" +
			"Keep it casual and under 10 words per point.\n" +
			"Start with 'Score: 10/10'."
	}

	var lines strings.Builder
	for _, c := range conflicts {
		fmt.Fprintf(&lines, "- %s (%s) and %s (%s) have exams on %s:\n  %s: %s\n  %s: %s\n",
			c.Course1, c.Type1, c.Course2, c.Type2, c.Date, c.Course1, c.Time1, c.Course2, c.Time2)
	}
	return fmt.Sprintf("Here is a table of all exam dates for the routine:\n\n%s\n", table) +
		fmt.Sprintf("Here are the exam conflicts:\n%s\n", lines.String()) +
		conflictRatingTail
}

// TimeAnalysisPrompt 上课时间分析提示词；conflicts 为空时评估整体安排
func TimeAnalysisPrompt(entries []RoutineEntry, conflicts []routine.TimeConflict) string {
	if len(conflicts) == 0 {
		return fmt.Sprintf("Check this routine for time conflicts:\n%s\n\n", mustJSON(entries)) +
			"First, rate the time schedule out of 10.\n" +
			"Then tell in 2-3 points whether there are class/lab overlaps and gaps in the schedule.\n" +
			"Keep it casual and under 10 words per point.\n" +
			"Start with 'Score: X/10'"
	}

	var lines strings.Builder
	for _, c := range conflicts {
		fmt.Fprintf(&lines, "- %s conflict between %s and %s on %s:\n  %s: %s\n  %s: %s\n",
			c.Type, c.Course1, c.Course2, c.Day, c.Course1, c.Time1, c.Course2, c.Time2)
	}
	return fmt.Sprintf("Here are the time conflicts:\n%s\n", lines.String()) + conflictRatingTail
}

const conflictRatingTail = "First, rate how bad these conflicts are out of 10 (10 being worst).\n" +
	"Then give 2-3 quick points: how bad it is and what can be done.\n" +
	"Keep it casual and under 10 words per point.\n" +
	"Start with 'Score: X/10'"

// AskPrompt 问答提示词，只回答与排课相关的问题
func AskPrompt(question string, entries []RoutineEntry) string {
	var b strings.Builder
	b.WriteString("You are an assistant for a university course routine generator. ")
	b.WriteString("Help students with their course schedules and academic planning, and ONLY answer questions ")
	b.WriteString("related to course scheduling, routine generation and academic matters within this application.\n\n")
	if len(entries) > 0 {
		fmt.Fprintf(&b, "The student has generated the following routine:\n%s\n\n", mustJSON(entries))
		b.WriteString("When answering, refer to this routine if relevant.\n\n")
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Instructions:\n")
	b.WriteString("1. Only answer questions related to course scheduling and academic planning\n")
	b.WriteString("2. If the question is about the current routine, give specific feedback\n")
	b.WriteString("3. If the question is unrelated, politely redirect to course scheduling topics\n")
	b.WriteString("4. Keep answers concise and practical\n")
	b.WriteString("5. Format the response in readable markdown\n")
	return b.String()
}
