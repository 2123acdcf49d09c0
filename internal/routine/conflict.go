package routine

// ── 冲突检测 ──

// InternalConflict 判断同一 Section 自身的理论课/实验课区间是否同日重叠
func InternalConflict(intervals []Interval) bool {
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			if intervals[i].Conflicts(intervals[j]) {
				return true
			}
		}
	}
	return false
}

// TimeConflicts 返回 a、b 两个 Section 之间所有同日重叠的区间对。
// 调用方保证 a 与 b 不是同一个 Section。
func TimeConflicts(a, b Candidate) []TimeConflict {
	var conflicts []TimeConflict
	for _, x := range a.Intervals {
		for _, y := range b.Intervals {
			if !x.Conflicts(y) {
				continue
			}
			conflicts = append(conflicts, TimeConflict{
				Type:    string(x.Kind) + "-" + string(y.Kind),
				Course1: a.Section.CourseCode,
				Course2: b.Section.CourseCode,
				Day:     x.Day,
				Time1:   x.StartTime + " - " + x.EndTime,
				Time2:   y.StartTime + " - " + y.EndTime,
			})
		}
	}
	return conflicts
}

// HasTimeConflict 判断 a、b 是否存在任意上课时间冲突
func HasTimeConflict(a, b Candidate) bool {
	for _, x := range a.Intervals {
		for _, y := range b.Intervals {
			if x.Conflicts(y) {
				return true
			}
		}
	}
	return false
}

// ExamOverlap 判断两场考试是否冲突：
//   - 日期不同永不冲突
//   - 任一时间无法解析（为 0）时保守地判定为冲突
//   - 否则按区间重叠判断
//
// "HH:MM"（省略秒）的考试时间按正常时间解析，不走上面的保守分支。
func ExamOverlap(e1, e2 ExamEvent) bool {
	if e1.Date != e2.Date {
		return false
	}
	if e1.Start == 0 || e1.End == 0 || e2.Start == 0 || e2.End == 0 {
		return true
	}
	return Overlap(e1.Start, e1.End, e2.Start, e2.End)
}

// ExamConflicts 对 a、b 的期中/期末考试做笛卡尔积比较，返回全部冲突对
func ExamConflicts(a, b Candidate) []ExamConflict {
	var conflicts []ExamConflict
	for _, e1 := range a.Exams {
		for _, e2 := range b.Exams {
			if !ExamOverlap(e1, e2) {
				continue
			}
			conflicts = append(conflicts, ExamConflict{
				Course1: a.Section.CourseCode,
				Course2: b.Section.CourseCode,
				Date:    e1.Date,
				Type1:   string(e1.Kind),
				Type2:   string(e2.Kind),
				Time1:   e1.TimeRange(),
				Time2:   e2.TimeRange(),
			})
		}
	}
	return conflicts
}

// SweepExamConflicts 对整张课表两两检查考试冲突
func SweepExamConflicts(sections []Candidate) []ExamConflict {
	var all []ExamConflict
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			all = append(all, ExamConflicts(sections[i], sections[j])...)
		}
	}
	return all
}

// SweepTimeConflicts 对整张课表两两检查上课时间冲突
func SweepTimeConflicts(sections []Candidate) []TimeConflict {
	var all []TimeConflict
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			all = append(all, TimeConflicts(sections[i], sections[j])...)
		}
	}
	return all
}
