package repository

import (
	"context"
	"errors"

	"github.com/phacogen-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	CreateBatch(ctx context.Context, items []models.Notification) error
	CreateIfAbsent(ctx context.Context, item *models.Notification) (bool, error)
	ExistsForOrder(ctx context.Context, orderID uint, notificationType string) (bool, error)
	GetByIDAndUser(ctx context.Context, id, userID uint) (*models.Notification, error)
	ListByUser(ctx context.Context, filter NotificationListFilter) ([]models.Notification, int64, error)
	ListByOrder(ctx context.Context, orderID uint, notificationType string) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (bool, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id, userID uint) (bool, error)
	DeleteAll(ctx context.Context, userID uint) (int64, error)
}

// GormNotificationRepository GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// CreateBatch 批量创建通知
func (r *GormNotificationRepository) CreateBatch(ctx context.Context, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// CreateIfAbsent 按 dedupe_key 幂等写入，已存在时返回 false
func (r *GormNotificationRepository) CreateIfAbsent(ctx context.Context, item *models.Notification) (bool, error) {
	if item == nil {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExistsForOrder 判断某采样单是否已有指定类型的通知
func (r *GormNotificationRepository) ExistsForOrder(ctx context.Context, orderID uint, notificationType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("related_order_id = ? AND type = ?", orderID, notificationType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByIDAndUser 获取用户自己的通知
func (r *GormNotificationRepository) GetByIDAndUser(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var item models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByUser 用户通知列表（最新在前）
func (r *GormNotificationRepository) ListByUser(ctx context.Context, filter NotificationListFilter) ([]models.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", filter.UserID)
	if filter.OnlyUnread {
		query = query.Where("is_read = ?", false)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Notification
	query = query.Scopes(paginate(filter.Page, filter.PageSize))
	if err := query.Order("created_at desc, id desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByOrder 查询某采样单的指定类型通知
func (r *GormNotificationRepository) ListByOrder(ctx context.Context, orderID uint, notificationType string) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Where("related_order_id = ?", orderID)
	if notificationType != "" {
		query = query.Where("type = ?", notificationType)
	}
	var items []models.Notification
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CountUnread 未读数量
func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead 标记单条已读
func (r *GormNotificationRepository) MarkRead(ctx context.Context, id, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkAllRead 标记全部已读
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// Delete 删除单条通知
func (r *GormNotificationRepository) Delete(ctx context.Context, id, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteAll 删除用户全部通知
func (r *GormNotificationRepository) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
