package dto

// ── 课程目录模块 DTO ──

// FacultyListRequest 教师列表查询参数
type FacultyListRequest struct {
	Courses string `form:"courses" binding:"omitempty,max=2000"` // 逗号分隔的课程代码
}

// ExamScheduleRequest 考试安排查询参数
type ExamScheduleRequest struct {
	CourseCode  string `form:"course_code"  binding:"required,max=20"`
	SectionName string `form:"section_name" binding:"required,max=20"`
}

// ScheduleResponse 单条课时
type ScheduleResponse struct {
	Day           string `json:"day"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Room          string `json:"room,omitempty"`
	FormattedTime string `json:"formatted_time"`
}

// ExamScheduleResponse 考试安排
type ExamScheduleResponse struct {
	CourseCode         string `json:"course_code"`
	SectionName        string `json:"section_name"`
	MidExamDate        string `json:"mid_exam_date"`
	MidExamStartTime   string `json:"mid_exam_start_time"`
	MidExamEndTime     string `json:"mid_exam_end_time"`
	FinalExamDate      string `json:"final_exam_date"`
	FinalExamStartTime string `json:"final_exam_start_time"`
	FinalExamEndTime   string `json:"final_exam_end_time"`
}

// SectionResponse 开课班级信息
type SectionResponse struct {
	SectionID      string               `json:"section_id"`
	CourseCode     string               `json:"course_code"`
	CourseName     string               `json:"course_name,omitempty"`
	SectionName    string               `json:"section_name"`
	Faculties      string               `json:"faculties"`
	Capacity       int                  `json:"capacity"`
	ConsumedSeat   int                  `json:"consumed_seat"`
	AvailableSeats int                  `json:"available_seats"`
	RoomName       string               `json:"room_name,omitempty"`
	LabRoomName    string               `json:"lab_room_name,omitempty"`
	ClassSchedules []ScheduleResponse   `json:"class_schedules"`
	LabSchedules   []ScheduleResponse   `json:"lab_schedules"`
	Exams          ExamScheduleResponse `json:"exams"`
}

// CatalogStatusResponse 目录状态
type CatalogStatusResponse struct {
	Source   string `json:"source"`
	Sections int    `json:"sections"`
	Courses  int    `json:"courses"`
	LoadedAt string `json:"loaded_at"`
}
