package dto

import "smart-routine/backend/internal/routine"

// ── 排课模块 DTO ──

// CourseRequestItem 单门课程及可接受的教师
type CourseRequestItem struct {
	Course  string   `json:"course"  binding:"required,max=20"`
	Faculty []string `json:"faculty" binding:"omitempty,max=20,dive,max=100"`
}

// RoutineRequest 生成课表请求
type RoutineRequest struct {
	Courses           []CourseRequestItem `json:"courses"            binding:"required,min=1,max=10,dive"`
	Days              []string            `json:"days"               binding:"required,min=1,max=7,dive,routine_day"`
	Times             []string            `json:"times"              binding:"required,min=1,max=7,dive,time_slot"`
	UseAI             bool                `json:"use_ai"`
	CommutePreference string              `json:"commute_preference" binding:"omitempty,max=50"` // far | near
}

// RoutineSectionResponse 课表中的一个 section，附带命中所选时间的课时
type RoutineSectionResponse struct {
	SectionResponse
	MatchedSchedules []routine.Interval `json:"matched_schedules"`
}

// RoutineResponse 生成课表结果
type RoutineResponse struct {
	Strategy string                   `json:"strategy"` // greedy | ai
	Sections []RoutineSectionResponse `json:"sections"`
	Feedback string                   `json:"feedback,omitempty"`
}

// RoutineFailureResponse 生成失败的结构化明细
type RoutineFailureResponse struct {
	Kind          routine.FailureKind    `json:"kind"`
	Course        string                 `json:"course,omitempty"`
	ExamConflicts []routine.ExamConflict `json:"exam_conflicts,omitempty"`
	TimeConflicts []routine.TimeConflict `json:"time_conflicts,omitempty"`
}

// RoutineRefRequest 以 section ID 引用一张已生成的课表
type RoutineRefRequest struct {
	SectionIDs []string `json:"section_ids" binding:"required,min=1,max=20,dive,required,max=32"`
}

// ExamConflictReport 考试冲突检查结果
type ExamConflictReport struct {
	HasConflicts bool                   `json:"has_conflicts"`
	Conflicts    []routine.ExamConflict `json:"conflicts"`
	Analysis     string                 `json:"analysis,omitempty"`
}

// TimeConflictReport 上课时间冲突检查结果
type TimeConflictReport struct {
	HasConflicts bool                   `json:"has_conflicts"`
	Conflicts    []routine.TimeConflict `json:"conflicts"`
	Analysis     string                 `json:"analysis,omitempty"`
}

// ExportRequest 课表导出请求
type ExportRequest struct {
	SectionIDs []string `json:"section_ids" binding:"required,min=1,max=20,dive,required,max=32"`
	StartDate  string   `json:"start_date"  binding:"omitempty,datetime=2006-01-02"` // 仅 ics 使用
	Weeks      int      `json:"weeks"       binding:"omitempty,min=1,max=30"`
}

// ExportQuery 导出格式
type ExportQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=xlsx ics"`
}
