package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"
)

// NotificationFanout 根据采样单计算接收人并逐人写入站内通知
type NotificationFanout struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
}

// NewNotificationFanout 创建通知扇出
func NewNotificationFanout(notificationRepo repository.NotificationRepository, userRepo repository.UserRepository) *NotificationFanout {
	return &NotificationFanout{notificationRepo: notificationRepo, userRepo: userRepo}
}

// NotifyStatusChange 状态变更：派单人、执行员工、全部管理员
func (f *NotificationFanout) NotifyStatusChange(ctx context.Context, order *models.SampleOrder, description string) (int, error) {
	recipients, err := f.recipients(ctx, true, order.DispatcherID, order.AssigneeValue())
	if err != nil {
		return 0, err
	}
	return f.emit(ctx, order, recipients, constants.NotificationTypeOrderStatusChanged,
		"Cập nhật trạng thái lệnh",
		fmt.Sprintf("Lệnh %s đã chuyển sang trạng thái: %s", order.Code, description))
}

// NotifyCreated 新建：仅全部管理员
func (f *NotificationFanout) NotifyCreated(ctx context.Context, order *models.SampleOrder) (int, error) {
	recipients, err := f.recipients(ctx, true)
	if err != nil {
		return 0, err
	}
	return f.emit(ctx, order, recipients, constants.NotificationTypeOrderCreated,
		"Lệnh thu mẫu mới",
		fmt.Sprintf("Lệnh thu mẫu %s đã được tạo", order.Code))
}

// NotifyAssigned 指派：新执行员工、派单人、全部管理员
func (f *NotificationFanout) NotifyAssigned(ctx context.Context, order *models.SampleOrder, assigneeID uint) (int, error) {
	recipients, err := f.recipients(ctx, true, assigneeID, order.DispatcherID)
	if err != nil {
		return 0, err
	}
	return f.emit(ctx, order, recipients, constants.NotificationTypeOrderAssigned,
		"Điều phối lệnh thu mẫu",
		fmt.Sprintf("Lệnh thu mẫu %s đã được điều phối", order.Code))
}

// NotifyOverdue 超时：执行员工、全部管理员；按 dedupe_key 幂等，返回新写入条数
func (f *NotificationFanout) NotifyOverdue(ctx context.Context, order *models.SampleOrder) (int, error) {
	recipients, err := f.recipients(ctx, true, order.AssigneeValue())
	if err != nil {
		return 0, err
	}
	orderID := order.ID
	created := 0
	for _, userID := range recipients {
		key := overdueDedupeKey(order.ID, userID)
		ok, err := f.notificationRepo.CreateIfAbsent(ctx, &models.Notification{
			UserID:         userID,
			Title:          "Lệnh thu mẫu quá hạn",
			Message:        fmt.Sprintf("Lệnh %s đã quá hạn hoàn thành", order.Code),
			Type:           constants.NotificationTypeOrderOverdue,
			RelatedOrderID: &orderID,
			DedupeKey:      &key,
		})
		if err != nil {
			return created, fmt.Errorf("create overdue notification: %w", err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (f *NotificationFanout) emit(ctx context.Context, order *models.SampleOrder, recipients []uint, notificationType, title, message string) (int, error) {
	if len(recipients) == 0 {
		logger.Debugw("sample_order_notification_no_recipients", "order_id", order.ID, "type", notificationType)
		return 0, nil
	}
	orderID := order.ID
	items := make([]models.Notification, 0, len(recipients))
	for _, userID := range recipients {
		items = append(items, models.Notification{
			UserID:         userID,
			Title:          title,
			Message:        message,
			Type:           notificationType,
			RelatedOrderID: &orderID,
		})
	}
	if err := f.notificationRepo.CreateBatch(ctx, items); err != nil {
		return 0, fmt.Errorf("create %s notifications: %w", notificationType, err)
	}
	return len(items), nil
}

// recipients 合并指定用户与管理员，去重、去零并按 ID 升序
func (f *NotificationFanout) recipients(ctx context.Context, withAdmins bool, ids ...uint) ([]uint, error) {
	all := append([]uint{}, ids...)
	if withAdmins {
		admins, err := f.userRepo.ListAdminIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list admin ids: %w", err)
		}
		all = append(all, admins...)
	}
	return uniqueRecipientIDs(all), nil
}

func uniqueRecipientIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func overdueDedupeKey(orderID, userID uint) string {
	return fmt.Sprintf("overdue:%d:%d", orderID, userID)
}
