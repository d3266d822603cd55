package service

import (
	"context"

	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"
)

// NotificationService 员工站内信箱
type NotificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService 创建站内信箱服务
func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// ListNotificationsInput 信箱查询参数
type ListNotificationsInput struct {
	UserID     uint
	Page       int
	PageSize   int
	OnlyUnread bool
}

// List 分页查询（最新在前）
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) ([]models.Notification, int64, error) {
	page, pageSize := normalizePagination(input.Page, input.PageSize)
	return s.repo.ListByUser(ctx, repository.NotificationListFilter{
		UserID:     input.UserID,
		Page:       page,
		PageSize:   pageSize,
		OnlyUnread: input.OnlyUnread,
	})
}

// UnreadCount 未读数量
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead 标记已读
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Delete 删除一条
func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	ok, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// DeleteAll 清空信箱
func (s *NotificationService) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	return s.repo.DeleteAll(ctx, userID)
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
