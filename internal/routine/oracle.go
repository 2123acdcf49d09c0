package routine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ── 辅助排课策略 ──

// CourseCandidates 单门课程的候选列表
type CourseCandidates struct {
	CourseCode string      `json:"course"`
	Candidates []Candidate `json:"candidates"`
}

// OracleRequest 交给外部辅助策略的输入
type OracleRequest struct {
	Requests          []CourseRequest
	Candidates        []CourseCandidates
	Days              []Day
	Windows           []Window
	CommutePreference string
	Constraints       string
}

// OracleProposal 外部辅助策略返回的结果：每门课程选中的 section ID
type OracleProposal struct {
	SectionIDs []string
	Feedback   string
}

// Oracle 可插拔的外部辅助排课策略。
// 其结果不被信任，Engine 会在返回前重新校验。
type Oracle interface {
	ProposeRoutine(ctx context.Context, req *OracleRequest) (*OracleProposal, error)
}

// HardConstraints 以严格文本形式复述全部硬约束，供外部策略使用
func HardConstraints(requests []CourseRequest, days []Day, windows []Window) string {
	dayNames := make([]string, 0, len(days))
	for _, d := range days {
		dayNames = append(dayNames, string(d))
	}
	labels := make([]string, 0, len(windows))
	for _, w := range windows {
		labels = append(labels, w.Label)
	}

	var b strings.Builder
	b.WriteString("HARD CONSTRAINTS (all mandatory):\n")
	fmt.Fprintf(&b, "1. Select exactly one section for each of these courses: ")
	for i, r := range requests {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.CourseCode)
		if len(r.Faculties) > 0 {
			fmt.Fprintf(&b, " (faculty must be one of: %s)", strings.Join(r.Faculties, " / "))
		}
	}
	b.WriteString(".\n")
	b.WriteString("2. Only choose sections from the candidate list given for that course; use their sectionId verbatim.\n")
	fmt.Fprintf(&b, "3. Every lab and at least one class of each chosen section must fall on these days: %s, within these time windows: %s.\n",
		strings.Join(dayNames, ", "), strings.Join(labels, ", "))
	b.WriteString("4. No two chosen sections may have class or lab times overlapping on the same day (class-class, lab-lab, class-lab).\n")
	b.WriteString("5. A section's own class and lab must never overlap each other on the same day.\n")
	b.WriteString("6. No two chosen sections may have mid-term or final exams on the same date with overlapping times.\n")
	b.WriteString("7. If no routine satisfies every rule above, return an empty JSON array [].\n")
	return b.String()
}

// AssistedAssemble 调用外部辅助策略并对其结果重新校验。
//
// 调用受 timeout 约束；超时、出错或校验失败一律按"未找到可行课表"处理，
// 不会返回部分或未经校验的结果。
func (e *Engine) AssistedAssemble(ctx context.Context, oracle Oracle, timeout time.Duration, req *OracleRequest) (*Selection, error) {
	if req.Constraints == "" {
		req.Constraints = HardConstraints(req.Requests, req.Days, req.Windows)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proposal, err := oracle.ProposeRoutine(callCtx, req)
	if err != nil {
		e.logger.Warn("辅助排课调用失败", zap.Error(err))
		return nil, unsatisfiable("", fmt.Errorf("%w: %v", ErrOracleUnavailable, err))
	}
	if proposal == nil || len(proposal.SectionIDs) == 0 {
		return nil, unsatisfiable("", ErrOracleUnavailable)
	}

	sel, err := e.Validate(req.Requests, req.Candidates, proposal.SectionIDs)
	if err != nil {
		e.logger.Warn("辅助排课结果未通过校验", zap.Error(err))
		return nil, err
	}
	sel.Feedback = proposal.Feedback
	return sel, nil
}

// Validate 校验一组 section ID 是否构成合法课表：
// 每门请求课程恰好一个、必须来自该课程的候选列表、自身无冲突、两两之间无上课与考试冲突。
func (e *Engine) Validate(requests []CourseRequest, candidates []CourseCandidates, sectionIDs []string) (*Selection, error) {
	byCourse := make(map[string]map[string]Candidate, len(candidates))
	for _, cc := range candidates {
		idx := make(map[string]Candidate, len(cc.Candidates))
		for _, c := range cc.Candidates {
			idx[string(c.Section.SectionID)] = c
		}
		byCourse[CandidateKey(cc.CourseCode)] = idx
	}

	proposed := make(map[string]bool, len(sectionIDs))
	for _, id := range sectionIDs {
		proposed[strings.TrimSpace(id)] = true
	}

	selected := make([]Candidate, 0, len(requests))
	used := make(map[string]bool, len(requests))
	for _, req := range requests {
		var picks []Candidate
		for id, c := range byCourse[CandidateKey(req.CourseCode)] {
			if proposed[id] {
				picks = append(picks, c)
				used[id] = true
			}
		}
		if len(picks) != 1 {
			return nil, unsatisfiable(req.CourseCode,
				fmt.Errorf("%w: 课程 %s 选中 %d 个 section", ErrOracleUnavailable, req.CourseCode, len(picks)))
		}
		if InternalConflict(picks[0].Intervals) {
			return nil, unsatisfiable(req.CourseCode,
				fmt.Errorf("%w: section %s 自身存在冲突", ErrOracleUnavailable, picks[0].Section.SectionID))
		}
		selected = append(selected, picks[0])
	}
	for id := range proposed {
		if !used[id] {
			return nil, unsatisfiable("", fmt.Errorf("%w: 未知的 section %s", ErrOracleUnavailable, id))
		}
	}

	timeConflicts := SweepTimeConflicts(selected)
	examConflicts := SweepExamConflicts(selected)
	if len(timeConflicts) > 0 || len(examConflicts) > 0 {
		return nil, &Failure{
			Kind:          FailureConflict,
			TimeConflicts: timeConflicts,
			ExamConflicts: examConflicts,
			Cause:         ErrOracleUnavailable,
		}
	}
	return &Selection{Sections: selected}, nil
}
