package repository

import (
	"context"

	"github.com/phacogen-next/internal/models"

	"gorm.io/gorm"
)

// SampleOrderHistoryRepository 采样单流转记录数据访问接口（只追加）
type SampleOrderHistoryRepository interface {
	Append(ctx context.Context, entry *models.SampleOrderHistory) error
	ListByOrder(ctx context.Context, orderID uint) ([]models.SampleOrderHistory, error)
	ListRecent(ctx context.Context, limit int) ([]models.SampleOrderHistory, error)
	CountByOrder(ctx context.Context, orderID uint) (int64, error)
	WithTx(tx *gorm.DB) SampleOrderHistoryRepository
}

// GormSampleOrderHistoryRepository GORM 实现
type GormSampleOrderHistoryRepository struct {
	db *gorm.DB
}

// NewSampleOrderHistoryRepository 创建流转记录仓库
func NewSampleOrderHistoryRepository(db *gorm.DB) *GormSampleOrderHistoryRepository {
	return &GormSampleOrderHistoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSampleOrderHistoryRepository) WithTx(tx *gorm.DB) SampleOrderHistoryRepository {
	if tx == nil {
		return r
	}
	return &GormSampleOrderHistoryRepository{db: tx}
}

// Append 写入一条记录
func (r *GormSampleOrderHistoryRepository) Append(ctx context.Context, entry *models.SampleOrderHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByOrder 按时间升序返回某采样单的记录
func (r *GormSampleOrderHistoryRepository) ListByOrder(ctx context.Context, orderID uint) ([]models.SampleOrderHistory, error) {
	var entries []models.SampleOrderHistory
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRecent 按时间降序返回最近的记录
func (r *GormSampleOrderHistoryRepository) ListRecent(ctx context.Context, limit int) ([]models.SampleOrderHistory, error) {
	var entries []models.SampleOrderHistory
	query := r.db.WithContext(ctx).Order("created_at desc, id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByOrder 统计某采样单的记录数
func (r *GormSampleOrderHistoryRepository) CountByOrder(ctx context.Context, orderID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SampleOrderHistory{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
