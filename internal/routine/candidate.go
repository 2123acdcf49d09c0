package routine

import (
	"strings"

	"go.uber.org/zap"

	"smart-routine/backend/internal/model"
)

// Engine 课表组装引擎。无状态，可被并发请求共享。
type Engine struct {
	norm   *Normalizer
	logger *zap.Logger
}

// NewEngine 创建 Engine 实例
func NewEngine(norm *Normalizer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{norm: norm, logger: logger}
}

// Normalizer 返回引擎使用的时间规范化器
func (e *Engine) Normalizer() *Normalizer {
	return e.norm
}

// Prepare 为 Section 预计算可比较的区间与考试事件
func (e *Engine) Prepare(sec *model.Section) Candidate {
	intervals, wrapped := e.norm.Schedule(sec)
	return Candidate{
		Section:     sec,
		Intervals:   intervals,
		Exams:       e.norm.Exams(sec),
		WrappedLabs: wrapped,
	}
}

// FilterCandidates 枚举某门课程在学生所选星期、时间段与教师条件下的候选 Section。
//
// 步骤：
//  1. 课程代码大小写不敏感匹配
//  2. 指定教师时仅保留匹配者（大小写不敏感，"TBA" 按字面匹配）
//  3. 剔除自身存在冲突的 Section
//  4. 实验课（若有）必须全部落在所选星期且与某个所选时间段重叠，
//     换算时区后跨越午夜的实验课视为不满足；
//     理论课至少有一节落在所选星期且与某个所选时间段重叠
//
// 返回结果保持目录中的原始顺序。
func (e *Engine) FilterCandidates(req CourseRequest, sections []model.Section, days []Day, windows []Window) []Candidate {
	daySet := make(map[Day]bool, len(days))
	for _, d := range days {
		daySet[d] = true
	}

	var result []Candidate
	for i := range sections {
		sec := &sections[i]
		if !strings.EqualFold(strings.TrimSpace(sec.CourseCode), strings.TrimSpace(req.CourseCode)) {
			continue
		}
		if !facultyAccepted(sec.Faculties, req.Faculties) {
			continue
		}

		c := e.Prepare(sec)
		if InternalConflict(c.Intervals) {
			e.logger.Debug("section 自身存在时间冲突，跳过",
				zap.String("course", sec.CourseCode), zap.String("section", sec.SectionName))
			continue
		}

		classMatch, labsOK := false, len(c.WrappedLabs) == 0
		for _, iv := range c.Intervals {
			inWindow := daySet[iv.Day] && overlapsAny(iv, windows)
			switch iv.Kind {
			case KindClass:
				classMatch = classMatch || inWindow
			case KindLab:
				labsOK = labsOK && inWindow
			}
			if inWindow {
				c.Matched = append(c.Matched, iv)
			}
		}
		if !classMatch || !labsOK {
			continue
		}
		result = append(result, c)
	}
	return result
}

// facultyAccepted 教师匹配：未指定时接受任意教师
func facultyAccepted(faculty string, accepted []string) bool {
	if len(accepted) == 0 {
		return true
	}
	faculty = strings.TrimSpace(faculty)
	for _, f := range accepted {
		if strings.EqualFold(faculty, strings.TrimSpace(f)) {
			return true
		}
	}
	return false
}

func overlapsAny(iv Interval, windows []Window) bool {
	for _, w := range windows {
		if Overlap(iv.Start, iv.End, w.Start, w.End) {
			return true
		}
	}
	return false
}
