package model

// Section 开课班级，对应上游 connect.json 的一条记录，同时镜像到 sections 表
//
// 快照加载后只读，不得原地修改。
type Section struct {
	SectionID       SectionID       `gorm:"type:varchar(32);primaryKey"      json:"sectionId"`
	CourseCode      string          `gorm:"type:varchar(20);not null;index"  json:"courseCode"`
	CourseName      string          `gorm:"type:varchar(200)"                json:"courseName,omitempty"`
	SectionName     string          `gorm:"type:varchar(20);not null"        json:"sectionName"`
	Faculties       string          `gorm:"type:varchar(100)"                json:"faculties"` // "TBA" 为字面值
	Capacity        int             `gorm:"not null;default:0"               json:"capacity"`
	ConsumedSeat    int             `gorm:"not null;default:0"               json:"consumedSeat"`
	RoomName        string          `gorm:"type:varchar(50)"                 json:"roomName,omitempty"`
	LabRoomName     string          `gorm:"type:varchar(50)"                 json:"labRoomName,omitempty"`
	SectionSchedule SectionSchedule `gorm:"embedded"                         json:"sectionSchedule"`
	LabSchedules    ScheduleList    `gorm:"type:jsonb;not null"              json:"labSchedules"`

	MidExamDate        string `gorm:"type:varchar(20)" json:"midExamDate,omitempty"`
	MidExamStartTime   string `gorm:"type:varchar(20)" json:"midExamStartTime,omitempty"`
	MidExamEndTime     string `gorm:"type:varchar(20)" json:"midExamEndTime,omitempty"`
	FinalExamDate      string `gorm:"type:varchar(20)" json:"finalExamDate,omitempty"`
	FinalExamStartTime string `gorm:"type:varchar(20)" json:"finalExamStartTime,omitempty"`
	FinalExamEndTime   string `gorm:"type:varchar(20)" json:"finalExamEndTime,omitempty"`

	// 目录顺序；贪心组装按此顺序扫描候选
	Position int `gorm:"not null;default:0;index" json:"-"`
	BaseModel
}

// TableName 指定表名
func (Section) TableName() string { return "sections" }

// AvailableSeats 剩余座位
func (s *Section) AvailableSeats() int {
	return s.Capacity - s.ConsumedSeat
}

// HasExamData 是否带有任意考试日期
func (s *Section) HasExamData() bool {
	return s.MidExamDate != "" || s.FinalExamDate != ""
}

// SectionSchedule 理论课排课
type SectionSchedule struct {
	ClassSchedules ScheduleList `gorm:"column:class_schedules;type:jsonb;not null" json:"classSchedules"`
}

// Schedule 单条排课（理论课或实验课）
type Schedule struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Room      string `json:"room,omitempty"`
}
