package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smart-routine/backend/internal/model"
)

// sectionBatchSize 批量写入时每批的行数
const sectionBatchSize = 500

// SectionRepository 开课班级镜像表数据访问接口
type SectionRepository interface {
	List(ctx context.Context) ([]model.Section, error)
	ListByCourse(ctx context.Context, courseCode string) ([]model.Section, error)
	Count(ctx context.Context) (int64, error)
	ReplaceAll(ctx context.Context, sections []model.Section) error
}

type sectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo 创建 SectionRepository 实例
func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

// List 按目录顺序返回全部 section
func (r *sectionRepo) List(ctx context.Context) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.WithContext(ctx).
		Order("position ASC").
		Find(&sections).Error
	return sections, err
}

func (r *sectionRepo) ListByCourse(ctx context.Context, courseCode string) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.WithContext(ctx).
		Where("UPPER(course_code) = UPPER(?)", courseCode).
		Order("position ASC").
		Find(&sections).Error
	return sections, err
}

func (r *sectionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Section{}).Count(&n).Error
	return n, err
}

// ReplaceAll 在同一事务内以新目录整体替换镜像表
// position 按传入顺序重写，保证 List 的顺序与上游一致
func (r *sectionRepo) ReplaceAll(ctx context.Context, sections []model.Section) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Delete(&model.Section{}).Error; err != nil {
			return err
		}
		if len(sections) == 0 {
			return nil
		}
		rows := make([]model.Section, len(sections))
		copy(rows, sections)
		for i := range rows {
			rows[i].Position = i
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(rows, sectionBatchSize).Error
	})
}
