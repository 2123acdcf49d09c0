package routine

import "smart-routine/backend/internal/model"

// ScheduleKind 课时类型
type ScheduleKind string

const (
	KindClass ScheduleKind = "class"
	KindLab   ScheduleKind = "lab"
)

// Interval 某一天内的一段课时（分钟，半开区间）
type Interval struct {
	Kind          ScheduleKind `json:"type"`
	Day           Day          `json:"day"`
	Start         int          `json:"start"`
	End           int          `json:"end"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
	Room          string       `json:"room,omitempty"`
	FormattedTime string       `json:"formatted_time"`
}

// Conflicts 判断两个区间是否同日重叠
func (iv Interval) Conflicts(other Interval) bool {
	return iv.Day == other.Day && Overlap(iv.Start, iv.End, other.Start, other.End)
}

// ExamKind 考试类型
type ExamKind string

const (
	ExamMid   ExamKind = "Mid"
	ExamFinal ExamKind = "Final"
)

// ExamEvent 一场考试
type ExamEvent struct {
	Kind      ExamKind `json:"type"`
	Date      string   `json:"exam_date"`
	Start     int      `json:"start"`
	End       int      `json:"end"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

// TimeRange 考试时间的原始文本表示
func (e ExamEvent) TimeRange() string {
	return e.StartTime + " - " + e.EndTime
}

// CourseRequest 学生请求的一门课程；Faculties 为空表示接受任意教师
type CourseRequest struct {
	CourseCode string   `json:"course"`
	Faculties  []string `json:"faculty,omitempty"`
}

// Candidate 通过筛选的 Section 及其预计算的区间与考试
type Candidate struct {
	Section   *model.Section `json:"section"`
	Intervals []Interval     `json:"intervals"`
	Matched   []Interval     `json:"matched"`
	Exams     []ExamEvent    `json:"exams"`

	// WrappedLabs 换算时区后跨越午夜的实验课，非空时不满足实验课时间段要求
	WrappedLabs []Interval `json:"wrapped_labs,omitempty"`
}

// Selection 组装完成的课表，每门请求课程恰好一个 Section，顺序与请求一致
type Selection struct {
	Sections []Candidate
	Feedback string
}

// ExamConflict 两个 Section 的考试冲突明细
type ExamConflict struct {
	Course1 string `json:"course1"`
	Course2 string `json:"course2"`
	Date    string `json:"date"`
	Type1   string `json:"type1"`
	Type2   string `json:"type2"`
	Time1   string `json:"time1"`
	Time2   string `json:"time2"`
}

// TimeConflict 两个 Section 的上课时间冲突明细
type TimeConflict struct {
	Type    string `json:"type"` // class-class | lab-lab | class-lab | lab-class
	Course1 string `json:"course1"`
	Course2 string `json:"course2"`
	Day     Day    `json:"day"`
	Time1   string `json:"time1"`
	Time2   string `json:"time2"`
}
