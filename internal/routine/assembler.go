package routine

import (
	"strings"

	"go.uber.org/zap"
)

// CandidateKey 候选表的索引键（课程代码大写）
func CandidateKey(courseCode string) string {
	return strings.ToUpper(strings.TrimSpace(courseCode))
}

// occupancy 单次组装过程中已占用的课时与考试，仅在请求内使用
type occupancy struct {
	slots map[Day][]Interval
	exams []ExamEvent
}

func newOccupancy() *occupancy {
	return &occupancy{slots: make(map[Day][]Interval)}
}

// fits 判断候选 Section 是否与已占用的课时、考试兼容
func (o *occupancy) fits(c Candidate) bool {
	for _, iv := range c.Intervals {
		for _, taken := range o.slots[iv.Day] {
			if Overlap(iv.Start, iv.End, taken.Start, taken.End) {
				return false
			}
		}
	}
	for _, e1 := range c.Exams {
		for _, e2 := range o.exams {
			if ExamOverlap(e1, e2) {
				return false
			}
		}
	}
	return true
}

func (o *occupancy) commit(c Candidate) {
	for _, iv := range c.Intervals {
		o.slots[iv.Day] = append(o.slots[iv.Day], iv)
	}
	o.exams = append(o.exams, c.Exams...)
}

// Assemble 按请求顺序做一遍贪心组装：
// 每门课程按目录顺序选取第一个与已选课时、考试均不冲突的候选并锁定。
//
// 不回溯、不替换已选结果；换一种课程顺序可能成功而本顺序失败。
// 某门课程无可选候选时返回 ErrUnsatisfiableCourse 并指明课程。
func (e *Engine) Assemble(requests []CourseRequest, candidates map[string][]Candidate) (*Selection, error) {
	occ := newOccupancy()
	selected := make([]Candidate, 0, len(requests))

	for _, req := range requests {
		list := candidates[CandidateKey(req.CourseCode)]
		chosen := -1
		for i := range list {
			if occ.fits(list[i]) {
				chosen = i
				break
			}
			e.logger.Debug("候选 section 与已选课程冲突",
				zap.String("course", list[i].Section.CourseCode), zap.String("section", list[i].Section.SectionName))
		}
		if chosen < 0 {
			return nil, unsatisfiable(req.CourseCode, nil)
		}
		occ.commit(list[chosen])
		selected = append(selected, list[chosen])
	}

	if len(selected) == 0 {
		return nil, unsatisfiable("", nil)
	}

	// 增量检查正确时这里永远为空；用于发现状态异常
	if conflicts := SweepExamConflicts(selected); len(conflicts) > 0 {
		e.logger.Error("贪心组装后仍检测到考试冲突", zap.Int("conflicts", len(conflicts)))
		return nil, &Failure{Kind: FailureConflict, ExamConflicts: conflicts}
	}

	return &Selection{Sections: selected}, nil
}
