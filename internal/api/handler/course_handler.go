package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/service"
	"smart-routine/backend/pkg/response"
)

// CourseHandler 课程查询 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListCourses 课程列表
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseSvc.ListCourses(c.Request.Context())
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, gin.H{"list": courses})
}

// ListSections 某门课程仍有空位的 section
// GET /api/v1/courses/:code/sections
func (h *CourseHandler) ListSections(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.BadRequest(c, 10001, "课程代码不能为空")
		return
	}

	sections, err := h.courseSvc.ListSections(c.Request.Context(), code)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, gin.H{"list": sections})
}

// ListFaculties 教师列表
// GET /api/v1/faculties?courses=CSE110,MAT110
func (h *CourseHandler) ListFaculties(c *gin.Context) {
	var req dto.FacultyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	faculties, err := h.courseSvc.ListFaculties(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, gin.H{"list": faculties})
}

// GetExamSchedule 查询某个 section 的考试安排
// GET /api/v1/exams?course_code=CSE110&section_name=01
func (h *CourseHandler) GetExamSchedule(c *gin.Context) {
	var req dto.ExamScheduleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	exam, err := h.courseSvc.GetExamSchedule(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, exam)
}

func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	if handleCommonError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 15002, "课程不存在或已无空位")
	case errors.Is(err, service.ErrSectionNotFound):
		response.NotFound(c, 15003, "section 不存在")
	default:
		response.InternalError(c)
	}
}
