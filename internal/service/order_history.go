package service

import (
	"context"
	"fmt"
	"time"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"

	"gorm.io/gorm"
)

// HistoryRecord 流转记录输入
type HistoryRecord struct {
	OrderID        uint
	PreviousStatus *string
	Status         string
	ActorID        *uint
	Note           string
	Payload        models.JSON
}

// OrderHistoryLog 采样单审计流水（只追加）
type OrderHistoryLog struct {
	repo repository.SampleOrderHistoryRepository
	now  func() time.Time
}

// NewOrderHistoryLog 创建审计流水
func NewOrderHistoryLog(repo repository.SampleOrderHistoryRepository) *OrderHistoryLog {
	return &OrderHistoryLog{repo: repo, now: time.Now}
}

// WithTx 绑定到生命周期事务
func (l *OrderHistoryLog) WithTx(tx *gorm.DB) *OrderHistoryLog {
	return &OrderHistoryLog{repo: l.repo.WithTx(tx), now: l.now}
}

// Append 写入一条记录，写入失败直接返回
func (l *OrderHistoryLog) Append(ctx context.Context, record HistoryRecord) (*models.SampleOrderHistory, error) {
	if record.OrderID == 0 || record.Status == "" {
		return nil, fmt.Errorf("append sample order history: order id and status are required")
	}
	entry := &models.SampleOrderHistory{
		OrderID:        record.OrderID,
		PreviousStatus: record.PreviousStatus,
		Status:         record.Status,
		ActorID:        record.ActorID,
		Note:           record.Note,
		Payload:        record.Payload,
		CreatedAt:      l.now(),
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append sample order history: %w", err)
	}
	return entry, nil
}

// ListFor 某采样单的记录（时间升序）
func (l *OrderHistoryLog) ListFor(ctx context.Context, orderID uint) ([]models.SampleOrderHistory, error) {
	return l.repo.ListByOrder(ctx, orderID)
}

// ListAll 最近记录（时间降序），limit 限制在 [1, 500]
func (l *OrderHistoryLog) ListAll(ctx context.Context, limit int) ([]models.SampleOrderHistory, error) {
	return l.repo.ListRecent(ctx, clampHistoryLimit(limit))
}

func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return constants.HistoryListDefaultLimit
	}
	if limit > constants.HistoryListMaxLimit {
		return constants.HistoryListMaxLimit
	}
	return limit
}
