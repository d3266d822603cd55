package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/phacogen-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderSequenceRepository 采样单每日序号
type OrderSequenceRepository interface {
	// Next 原子递增并返回当日序号；首次使用时以 seed 返回值为起点
	Next(ctx context.Context, day string, seed func(ctx context.Context) (int, error)) (int, error)
}

// GormOrderSequenceRepository GORM 实现
type GormOrderSequenceRepository struct {
	db *gorm.DB
}

// NewOrderSequenceRepository 创建序号仓库
func NewOrderSequenceRepository(db *gorm.DB) *GormOrderSequenceRepository {
	return &GormOrderSequenceRepository{db: db}
}

// Next 种子在事务外计算，初始化与递增在同一事务内完成
func (r *GormOrderSequenceRepository) Next(ctx context.Context, day string, seed func(ctx context.Context) (int, error)) (int, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return 0, errors.New("order sequence day is empty")
	}
	start := 0
	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.OrderCodeSequence{}).Where("day = ?", day).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing == 0 && seed != nil {
		value, err := seed(ctx)
		if err != nil {
			return 0, err
		}
		start = value
	}

	var next int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.OrderCodeSequence{Day: day, Value: start}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.OrderCodeSequence{}).
			Where("day = ?", day).
			Update("value", gorm.Expr("value + ?", 1)).Error; err != nil {
			return err
		}
		var current models.OrderCodeSequence
		if err := tx.Where("day = ?", day).Take(&current).Error; err != nil {
			return err
		}
		next = current.Value
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
