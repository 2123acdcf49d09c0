package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ── PostgreSQL JSONB 自定义类型 ──

// ScheduleList 对应 PostgreSQL JSONB 列，实现 GORM Scanner/Valuer 接口。
type ScheduleList []Schedule

// Scan 将 PostgreSQL 返回的 JSONB 文本解析为 []Schedule。
func (l *ScheduleList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("ScheduleList.Scan: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = ScheduleList{}
		return nil
	}
	var out ScheduleList
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("ScheduleList.Scan: %w", err)
	}
	*l = out
	return nil
}

// Value 将 []Schedule 序列化为 JSONB 文本。
func (l ScheduleList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ── 上游 ID ──

// SectionID 上游数据中的 section 编号；上游可能以数字或字符串下发，统一按字符串处理
type SectionID string

// UnmarshalJSON 同时接受 123 与 "123"
func (id *SectionID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*id = SectionID(strings.TrimSpace(str))
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("SectionID: invalid value %s", s)
	}
	*id = SectionID(s)
	return nil
}

// BaseModel 通用时间戳字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}
