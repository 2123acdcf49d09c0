package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"smart-routine/backend/internal/catalog"
	"smart-routine/backend/internal/dto"
	"smart-routine/backend/internal/routine"
)

// ── 导出模块业务错误 ──

var (
	ErrExportFormat       = errors.New("不支持的导出格式")
	ErrExportStartDate    = errors.New("起始日期格式错误")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const (
	FormatXLSX = "xlsx"
	FormatICS  = "ics"

	defaultExportWeeks = 14
)

// ExportFile 导出结果
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService 课表导出接口
//   - xlsx：课表与考试安排两个 Sheet
//   - ics：每节课按周重复的日历事件，以及考试的单次事件
type ExportService interface {
	Export(ctx context.Context, req *dto.ExportRequest, format string) (*ExportFile, error)
}

type exportService struct {
	store  *catalog.Store
	engine *routine.Engine
	tzName string
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例；timezone 为日历事件使用的时区
func NewExportService(store *catalog.Store, engine *routine.Engine, timezone string, logger *zap.Logger) ExportService {
	return &exportService{store: store, engine: engine, tzName: timezone, logger: logger, now: time.Now}
}

func (s *exportService) Export(ctx context.Context, req *dto.ExportRequest, format string) (*ExportFile, error) {
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatICS {
		return nil, ErrExportFormat
	}

	snap, err := currentSnapshot(s.store)
	if err != nil {
		return nil, err
	}
	selected, err := resolveRoutine(snap, s.engine, req.SectionIDs)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatICS:
		return s.exportICS(selected, req)
	default:
		return s.exportXLSX(selected)
	}
}

// ════════════════════════════════════════════════════════════
// Excel
// ════════════════════════════════════════════════════════════

type classRow struct {
	dayIdx int
	iv     routine.Interval
	c      routine.Candidate
}

func dayIndex(d routine.Day) int {
	for i, known := range routine.AllDays {
		if known == d {
			return i
		}
	}
	return len(routine.AllDays)
}

func (s *exportService) exportXLSX(selected []routine.Candidate) (*ExportFile, error) {
	var rows []classRow
	for _, c := range selected {
		for _, iv := range c.Intervals {
			rows = append(rows, classRow{dayIdx: dayIndex(iv.Day), iv: iv, c: c})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].dayIdx != rows[j].dayIdx {
			return rows[i].dayIdx < rows[j].dayIdx
		}
		return rows[i].iv.Start < rows[j].iv.Start
	})

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// ── Sheet 1: 课表 ──
	const routineSheet = "课表"
	idx, err := f.NewSheet(routineSheet)
	if err != nil {
		return nil, s.xlsxFailed(err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	header := []interface{}{"星期", "时间", "课程", "Section", "类型", "教师", "教室"}
	_ = f.SetSheetRow(routineSheet, "A1", &header)
	_ = f.SetCellStyle(routineSheet, "A1", colName(len(header)-1)+"1", headerStyle)
	for i, w := range []float64{12, 22, 12, 10, 8, 16, 12} {
		col := colName(i)
		_ = f.SetColWidth(routineSheet, col, col, w)
	}
	for i, r := range rows {
		room := r.iv.Room
		if room == "" {
			room = r.c.Section.RoomName
			if r.iv.Kind == routine.KindLab && r.c.Section.LabRoomName != "" {
				room = r.c.Section.LabRoomName
			}
		}
		values := []interface{}{
			string(r.iv.Day), r.iv.FormattedTime, r.c.Section.CourseCode, r.c.Section.SectionName,
			string(r.iv.Kind), r.c.Section.Faculties, room,
		}
		if err := f.SetSheetRow(routineSheet, cell("A", i+2), &values); err != nil {
			return nil, s.xlsxFailed(err)
		}
	}

	// ── Sheet 2: 考试 ──
	const examSheet = "考试"
	if _, err := f.NewSheet(examSheet); err != nil {
		return nil, s.xlsxFailed(err)
	}
	examHeader := []interface{}{"课程", "Section", "类型", "日期", "时间"}
	_ = f.SetSheetRow(examSheet, "A1", &examHeader)
	_ = f.SetCellStyle(examSheet, "A1", colName(len(examHeader)-1)+"1", headerStyle)
	row := 2
	for _, c := range selected {
		for _, e := range c.Exams {
			values := []interface{}{c.Section.CourseCode, c.Section.SectionName, string(e.Kind), e.Date, e.TimeRange()}
			if err := f.SetSheetRow(examSheet, cell("A", row), &values); err != nil {
				return nil, s.xlsxFailed(err)
			}
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, s.xlsxFailed(err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("routine_%s.xlsx", s.now().Format("20060102")),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Body:        buf.Bytes(),
	}, nil
}

func (s *exportService) xlsxFailed(err error) error {
	s.logger.Error("写入 Excel 失败", zap.Error(err))
	return ErrExportGenerateFail
}

// ════════════════════════════════════════════════════════════
// iCalendar
// ════════════════════════════════════════════════════════════

var weekdays = map[routine.Day]time.Weekday{
	routine.Saturday:  time.Saturday,
	routine.Sunday:    time.Sunday,
	routine.Monday:    time.Monday,
	routine.Tuesday:   time.Tuesday,
	routine.Wednesday: time.Wednesday,
	routine.Thursday:  time.Thursday,
	routine.Friday:    time.Friday,
}

// eventUID 根据内容生成稳定的事件 UID，重复导入不会产生重复事件
func eventUID(parts ...string) string {
	key := fmt.Sprint(parts)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@smart-routine"
}

func (s *exportService) exportICS(selected []routine.Candidate, req *dto.ExportRequest) (*ExportFile, error) {
	loc, err := time.LoadLocation(s.tzName)
	if err != nil {
		s.logger.Error("加载时区失败", zap.String("timezone", s.tzName), zap.Error(err))
		return nil, ErrExportGenerateFail
	}

	start := s.now().In(loc)
	if req.StartDate != "" {
		start, err = time.ParseInLocation("2006-01-02", req.StartDate, loc)
		if err != nil {
			return nil, ErrExportStartDate
		}
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	weeks := req.Weeks
	if weeks <= 0 {
		weeks = defaultExportWeeks
	}

	stamp := s.now().UTC()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//smart-routine//routine export//EN")
	cal.SetXWRCalName("Routine")
	cal.SetXWRTimezone(s.tzName)

	for _, c := range selected {
		sec := c.Section
		for _, iv := range c.Intervals {
			wd, ok := weekdays[iv.Day]
			if !ok {
				continue
			}
			offset := (int(wd) - int(start.Weekday()) + 7) % 7
			day := start.AddDate(0, 0, offset)

			ev := cal.AddEvent(eventUID(string(sec.SectionID), string(iv.Kind), string(iv.Day), iv.StartTime))
			ev.SetDtStampTime(stamp)
			ev.SetStartAt(day.Add(time.Duration(iv.Start) * time.Minute))
			ev.SetEndAt(day.Add(time.Duration(iv.End) * time.Minute))
			ev.SetSummary(fmt.Sprintf("%s (%s) %s", sec.CourseCode, sec.SectionName, iv.Kind))
			if iv.Room != "" {
				ev.SetLocation(iv.Room)
			}
			ev.SetDescription(fmt.Sprintf("Faculty: %s", sec.Faculties))
			ev.AddProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
		}

		for _, e := range c.Exams {
			date, err := time.ParseInLocation("2006-01-02", e.Date, loc)
			if err != nil || e.Start >= e.End {
				s.logger.Debug("考试日期或时间无法解析，跳过", zap.String("course", sec.CourseCode), zap.String("date", e.Date))
				continue
			}
			ev := cal.AddEvent(eventUID(string(sec.SectionID), string(e.Kind), e.Date))
			ev.SetDtStampTime(stamp)
			ev.SetStartAt(date.Add(time.Duration(e.Start) * time.Minute))
			ev.SetEndAt(date.Add(time.Duration(e.End) * time.Minute))
			ev.SetSummary(fmt.Sprintf("%s %s Exam", sec.CourseCode, e.Kind))
		}
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("routine_%s.ics", start.Format("20060102")),
		ContentType: "text/calendar; charset=utf-8",
		Body:        []byte(cal.Serialize()),
	}, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
