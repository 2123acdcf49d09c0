package routine

import (
	"errors"
	"fmt"
	"strings"
)

// ── 课表组装错误 ──

var (
	ErrUnsatisfiableCourse = errors.New("无法为课程找到兼容的 section")
	ErrConflictDetected    = errors.New("课表存在时间或考试冲突")
	ErrOracleUnavailable   = errors.New("辅助排课服务不可用")
)

// FailureKind 失败类型
type FailureKind string

const (
	FailureUnsatisfiable FailureKind = "unsatisfiable_course"
	FailureConflict      FailureKind = "conflict_detected"
)

// Failure 组装失败的结构化结果。
// 辅助排课的任何异常（超时、出错、校验不通过）最终也只会表现为这两种失败之一。
type Failure struct {
	Kind          FailureKind
	CourseCode    string
	ExamConflicts []ExamConflict
	TimeConflicts []TimeConflict
	Cause         error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureUnsatisfiable:
		if f.CourseCode == "" {
			return "无法在所选条件下生成课表"
		}
		return fmt.Sprintf("课程 %s 在所选条件下没有兼容的 section", f.CourseCode)
	default:
		return f.Describe()
	}
}

// Unwrap 使 errors.Is 可匹配 ErrUnsatisfiableCourse / ErrConflictDetected 以及底层原因
func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if f.Kind == FailureUnsatisfiable {
		errs = append(errs, ErrUnsatisfiableCourse)
	} else {
		errs = append(errs, ErrConflictDetected)
	}
	if f.Cause != nil {
		errs = append(errs, f.Cause)
	}
	return errs
}

// Describe 生成面向学生的冲突说明
func (f *Failure) Describe() string {
	var b strings.Builder
	if len(f.ExamConflicts) > 0 {
		b.WriteString("考试时间冲突，无法生成课表:\n\n")
		for _, c := range f.ExamConflicts {
			fmt.Fprintf(&b, "- %s (%s) 与 %s (%s) 均在 %s 考试:\n", c.Course1, c.Type1, c.Course2, c.Type2, c.Date)
			fmt.Fprintf(&b, "  %s: %s\n", c.Course1, c.Time1)
			fmt.Fprintf(&b, "  %s: %s\n\n", c.Course2, c.Time2)
		}
	}
	if len(f.TimeConflicts) > 0 {
		b.WriteString("上课时间冲突，无法生成课表:\n\n")
		for _, c := range f.TimeConflicts {
			fmt.Fprintf(&b, "- %s 与 %s 在 %s 发生 %s 冲突:\n", c.Course1, c.Course2, c.Day, c.Type)
			fmt.Fprintf(&b, "  %s: %s\n", c.Course1, c.Time1)
			fmt.Fprintf(&b, "  %s: %s\n\n", c.Course2, c.Time2)
		}
	}
	if b.Len() == 0 {
		return ErrConflictDetected.Error()
	}
	b.WriteString("请选择其他 section 以避免冲突。")
	return b.String()
}

func unsatisfiable(course string, cause error) *Failure {
	return &Failure{Kind: FailureUnsatisfiable, CourseCode: course, Cause: cause}
}
