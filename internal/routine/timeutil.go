package routine

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像可能缺少系统时区库

	"go.uber.org/zap"

	"smart-routine/backend/internal/model"
)

// ── 星期 ──

// Day 星期（统一为大写英文全称，与上游数据一致）
type Day string

const (
	Saturday  Day = "SATURDAY"
	Sunday    Day = "SUNDAY"
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
)

// AllDays 一周七天（按教务系统的周六起始顺序）
var AllDays = []Day{Saturday, Sunday, Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseDay 大小写不敏感地解析星期名称
func ParseDay(s string) (Day, bool) {
	d := Day(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllDays {
		if d == known {
			return d, true
		}
	}
	return "", false
}

// ── 可选时间段 ──

// TimeSlots 前端可选的七个固定时间段
var TimeSlots = []string{
	"8:00 AM-9:20 AM",
	"9:30 AM-10:50 AM",
	"11:00 AM-12:20 PM",
	"12:30 PM-1:50 PM",
	"2:00 PM-3:20 PM",
	"3:30 PM-4:50 PM",
	"5:00 PM-6:20 PM",
}

// Window 学生可接受的时间窗口（分钟，半开区间）
type Window struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// IsKnownTimeSlot 判断是否为七个固定时间段之一
func IsKnownTimeSlot(label string) bool {
	label = strings.TrimSpace(label)
	for _, s := range TimeSlots {
		if s == label {
			return true
		}
	}
	return false
}

// ParseWindow 解析 "8:00 AM-9:20 AM" 形式的时间段
func ParseWindow(label string) (Window, error) {
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("时间段格式错误: %q", label)
	}
	start, err := ParseClockTime(parts[0])
	if err != nil {
		return Window{}, err
	}
	end, err := ParseClockTime(parts[1])
	if err != nil {
		return Window{}, err
	}
	if start >= end {
		return Window{}, fmt.Errorf("时间段起止颠倒: %q", label)
	}
	return Window{Label: strings.TrimSpace(label), Start: start, End: end}, nil
}

// ── 时间文本解析 ──

const (
	layout24      = "15:04:05"
	layout24Short = "15:04"
	layout12      = "3:04 PM"
)

// ParseClockTime 依次尝试 24 小时制 "HH:MM:SS"（允许省略秒）与 12 小时制 "h:mm AM/PM"，
// 返回距午夜的分钟数。
func ParseClockTime(s string) (int, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{layout24, layout24Short} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	if t, err := time.Parse(layout12, strings.ToUpper(s)); err == nil {
		return t.Hour()*60 + t.Minute(), nil
	}
	return 0, fmt.Errorf("无法解析时间: %q", s)
}

// ClockMinutes 宽松解析：两种格式都失败时记录日志并返回 0。
//
// 注意：返回 0 既可能是午夜也可能是解析失败，调用方无法区分。
// 考试冲突判断依赖这一约定（见 ExamOverlap）。
func ClockMinutes(s string, logger *zap.Logger) int {
	m, err := ParseClockTime(s)
	if err != nil {
		logger.Warn("时间格式无法识别，按 0 处理", zap.String("value", s))
		return 0
	}
	return m
}

var clock24Pattern = regexp.MustCompile(`\b([01]\d|2[0-3]):[0-5]\d(?::[0-5]\d)?\b`)

// To12Hour 将文本中所有 HH:MM[:SS] 替换为 h:mm AM/PM，仅做文本改写
func To12Hour(text string) string {
	return clock24Pattern.ReplaceAllStringFunc(text, func(m string) string {
		t, err := time.Parse(layout24Short, m[:5])
		if err != nil {
			return m
		}
		return t.Format(layout12)
	})
}

// To24Hour 将 "8:00 AM" 转为 "08:00:00"；失败时原样返回
func To24Hour(s string) string {
	t, err := time.Parse(layout12, strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return s
	}
	return t.Format(layout24)
}

// ConvertTimezone 将 from 时区的钟点时间换算为 to 时区的钟点时间。
//
// 换算时附加的是进程当前日期而非排课的实际日期，跨日期变更线或夏令时切换时结果可能不准确。
func ConvertTimezone(s string, from, to *time.Location, now time.Time) (string, error) {
	t, err := time.Parse(layout24, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("无法解析时间 %q: %w", s, err)
	}
	d := now.In(from)
	local := time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, from)
	return local.In(to).Format(layout24), nil
}

// ── Normalizer ──

// Normalizer 把 Section 的原始排课文本转换为可比较的分钟区间与考试事件
type Normalizer struct {
	logger  *zap.Logger
	labFrom *time.Location
	labTo   *time.Location
	now     func() time.Time
}

// NewNormalizer 创建 Normalizer；labFrom/labTo 为实验课时间的来源时区与展示时区
func NewNormalizer(logger *zap.Logger, labFrom, labTo *time.Location) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if labFrom == nil {
		labFrom = time.UTC
	}
	if labTo == nil {
		labTo = labFrom
	}
	return &Normalizer{logger: logger, labFrom: labFrom, labTo: labTo, now: time.Now}
}

// Minutes 宽松解析时间文本
func (n *Normalizer) Minutes(s string) int {
	return ClockMinutes(s, n.logger)
}

// LabTime 将实验课时间换算到展示时区；失败时沿用原始文本
func (n *Normalizer) LabTime(s string) string {
	if n.labFrom.String() == n.labTo.String() {
		return s
	}
	out, err := ConvertTimezone(s, n.labFrom, n.labTo, n.now())
	if err != nil {
		n.logger.Warn("实验课时间时区换算失败，沿用原始时间", zap.String("value", s), zap.Error(err))
		return s
	}
	return out
}

// Intervals 提取 Section 的全部有效课时区间（理论课在前，实验课在后）。
// 缺少星期或时间、或起止不构成正区间的条目会被丢弃。
func (n *Normalizer) Intervals(sec *model.Section) []Interval {
	intervals, _ := n.Schedule(sec)
	return intervals
}

// Schedule 同 Intervals，另返回换算到展示时区后跨越午夜的实验课。
// 这类实验课按原始时间是有效区间，但无法表示为展示时区内同一天的区间：
// 不参与冲突判断，所属 Section 也不满足实验课的时间段要求。
func (n *Normalizer) Schedule(sec *model.Section) (intervals, wrappedLabs []Interval) {
	for _, s := range sec.SectionSchedule.ClassSchedules {
		if iv, ok := n.interval(sec, KindClass, s, s.StartTime, s.EndTime); ok {
			intervals = append(intervals, iv)
		}
	}
	for _, s := range sec.LabSchedules {
		if s.StartTime == "" || s.EndTime == "" {
			continue
		}
		// 起止有效性按原始时间判断，换算只影响展示时区下的位置
		raw, ok := n.interval(sec, KindLab, s, s.StartTime, s.EndTime)
		if !ok {
			continue
		}
		startText, endText := n.LabTime(s.StartTime), n.LabTime(s.EndTime)
		iv := Interval{
			Kind:          KindLab,
			Day:           raw.Day,
			Start:         n.Minutes(startText),
			End:           n.Minutes(endText),
			StartTime:     startText,
			EndTime:       endText,
			Room:          s.Room,
			FormattedTime: To12Hour(startText + " - " + endText),
		}
		if iv.Start >= iv.End {
			n.logger.Warn("实验课换算时区后跨越午夜",
				zap.String("course", sec.CourseCode), zap.String("section", sec.SectionName),
				zap.String("start", startText), zap.String("end", endText))
			wrappedLabs = append(wrappedLabs, iv)
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals, wrappedLabs
}

func (n *Normalizer) interval(sec *model.Section, kind ScheduleKind, s model.Schedule, startText, endText string) (Interval, bool) {
	if strings.TrimSpace(s.Day) == "" || strings.TrimSpace(startText) == "" || strings.TrimSpace(endText) == "" {
		return Interval{}, false
	}
	day, ok := ParseDay(s.Day)
	if !ok {
		n.logger.Warn("未知的星期，忽略该排课",
			zap.String("course", sec.CourseCode), zap.String("section", sec.SectionName), zap.String("day", s.Day))
		return Interval{}, false
	}
	start, end := n.Minutes(startText), n.Minutes(endText)
	if start >= end {
		n.logger.Warn("排课起止时间无效，忽略该排课",
			zap.String("course", sec.CourseCode), zap.String("section", sec.SectionName),
			zap.String("start", startText), zap.String("end", endText))
		return Interval{}, false
	}
	return Interval{
		Kind:          kind,
		Day:           day,
		Start:         start,
		End:           end,
		StartTime:     startText,
		EndTime:       endText,
		Room:          s.Room,
		FormattedTime: To12Hour(startText + " - " + endText),
	}, true
}

// Exams 提取期中、期末考试事件；日期或起止时间缺失的考试视为不存在
func (n *Normalizer) Exams(sec *model.Section) []ExamEvent {
	var exams []ExamEvent
	if sec.MidExamDate != "" && sec.MidExamStartTime != "" && sec.MidExamEndTime != "" {
		exams = append(exams, n.exam(ExamMid, sec.MidExamDate, sec.MidExamStartTime, sec.MidExamEndTime))
	}
	if sec.FinalExamDate != "" && sec.FinalExamStartTime != "" && sec.FinalExamEndTime != "" {
		exams = append(exams, n.exam(ExamFinal, sec.FinalExamDate, sec.FinalExamStartTime, sec.FinalExamEndTime))
	}
	return exams
}

func (n *Normalizer) exam(kind ExamKind, date, start, end string) ExamEvent {
	return ExamEvent{
		Kind:      kind,
		Date:      strings.TrimSpace(date),
		Start:     n.Minutes(start),
		End:       n.Minutes(end),
		StartTime: start,
		EndTime:   end,
	}
}
