package catalog

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"smart-routine/backend/internal/model"
)

// Course 课程代码与名称
type Course struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Snapshot 某一时刻的完整课程目录，创建后只读
type Snapshot struct {
	sections []model.Section
	byID     map[model.SectionID]int
	courses  []Course

	LoadedAt time.Time
	Source   string
}

// NewSnapshot 基于 sections 构建快照；sections 会被复制，Position 按传入顺序重写
func NewSnapshot(sections []model.Section, source string, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		sections: make([]model.Section, len(sections)),
		byID:     make(map[model.SectionID]int, len(sections)),
		LoadedAt: loadedAt,
		Source:   source,
	}
	copy(s.sections, sections)

	seen := make(map[string]int)
	for i := range s.sections {
		sec := &s.sections[i]
		sec.Position = i
		if _, dup := s.byID[sec.SectionID]; !dup {
			s.byID[sec.SectionID] = i
		}

		// 与上游一致：同一课程代码以最后出现的名称为准，顺序按首次出现
		name := sec.CourseName
		if name == "" {
			name = sec.CourseCode
		}
		if idx, ok := seen[sec.CourseCode]; ok {
			s.courses[idx].Name = name
			continue
		}
		seen[sec.CourseCode] = len(s.courses)
		s.courses = append(s.courses, Course{Code: sec.CourseCode, Name: name})
	}
	return s
}

// Len section 数量
func (s *Snapshot) Len() int { return len(s.sections) }

// Sections 目录顺序的全部 section。返回的切片与快照共享，调用方不得修改。
func (s *Snapshot) Sections() []model.Section { return s.sections }

// Section 按 ID 查找
func (s *Snapshot) Section(id model.SectionID) (*model.Section, bool) {
	i, ok := s.byID[model.SectionID(strings.TrimSpace(string(id)))]
	if !ok {
		return nil, false
	}
	return &s.sections[i], true
}

// Courses 去重后的课程列表
func (s *Snapshot) Courses() []Course {
	out := make([]Course, len(s.courses))
	copy(out, s.courses)
	return out
}

// CourseSections 某门课程的全部 section（课程代码大小写不敏感）
func (s *Snapshot) CourseSections(code string) []model.Section {
	code = strings.TrimSpace(code)
	var out []model.Section
	for i := range s.sections {
		if strings.EqualFold(s.sections[i].CourseCode, code) {
			out = append(out, s.sections[i])
		}
	}
	return out
}

// FindSection 按课程代码与 section 名称查找
func (s *Snapshot) FindSection(code, sectionName string) (*model.Section, bool) {
	code, sectionName = strings.TrimSpace(code), strings.TrimSpace(sectionName)
	for i := range s.sections {
		sec := &s.sections[i]
		if strings.EqualFold(sec.CourseCode, code) && sec.SectionName == sectionName {
			return sec, true
		}
	}
	return nil, false
}

// Faculties 指定课程的教师名称（去重、排序）；codes 为空时返回全部教师
func (s *Snapshot) Faculties(codes []string) []string {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			want[c] = true
		}
	}

	set := make(map[string]bool)
	for i := range s.sections {
		sec := &s.sections[i]
		if sec.Faculties == "" {
			continue
		}
		if len(want) > 0 && !want[strings.ToUpper(sec.CourseCode)] {
			continue
		}
		set[sec.Faculties] = true
	}

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ── Store ──

// Store 持有当前快照；刷新时整体替换指针，读者只会看到完整的旧快照或新快照
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore 创建空 Store
func NewStore() *Store {
	return &Store{}
}

// Current 当前快照；尚未加载时返回 nil
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap 替换当前快照并返回旧快照
func (s *Store) Swap(next *Snapshot) *Snapshot {
	return s.current.Swap(next)
}
