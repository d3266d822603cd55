package service

import (
	"context"
	"strings"
	"time"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"
)

// ListSampleOrdersInput 列表查询参数
type ListSampleOrdersInput struct {
	Page         int
	PageSize     int
	Status       string
	Search       string
	AssigneeID   uint
	ClinicID     uint
	DispatcherID uint
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

func (in ListSampleOrdersInput) toFilter() repository.SampleOrderListFilter {
	page, pageSize := normalizePagination(in.Page, in.PageSize)
	return repository.SampleOrderListFilter{
		Page:         page,
		PageSize:     pageSize,
		Status:       normalizeSampleOrderStatus(in.Status),
		Search:       strings.TrimSpace(in.Search),
		AssigneeID:   in.AssigneeID,
		ClinicID:     in.ClinicID,
		DispatcherID: in.DispatcherID,
		CreatedFrom:  in.CreatedFrom,
		CreatedTo:    in.CreatedTo,
	}
}

// Get 根据 ID 获取
func (s *SampleOrderService) Get(ctx context.Context, id uint) (*models.SampleOrder, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	order, err := s.orderRepo.GetByID(storeCtx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetByCode 根据编号获取
func (s *SampleOrderService) GetByCode(ctx context.Context, code string) (*models.SampleOrder, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	order, err := s.orderRepo.GetByCode(storeCtx, code)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// List 分页列表
func (s *SampleOrderService) List(ctx context.Context, input ListSampleOrdersInput) ([]models.SampleOrder, int64, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.orderRepo.List(storeCtx, input.toFilter())
}

// History 单据流水（时间升序）
func (s *SampleOrderService) History(ctx context.Context, id uint) ([]models.SampleOrderHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.history.ListFor(storeCtx, id)
}

// AllHistory 最近流水（时间降序）
func (s *SampleOrderService) AllHistory(ctx context.Context, limit int) ([]models.SampleOrderHistory, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.history.ListAll(storeCtx, limit)
}

// Delete 管理员删除（软删除，流水保留）
func (s *SampleOrderService) Delete(ctx context.Context, id uint) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.orderRepo.Delete(storeCtx, id); err != nil {
		return err
	}
	logger.Infow("sample_order_deleted", "order_id", order.ID, "code", order.Code)
	return nil
}

// SampleOrderStats 统计汇总
type SampleOrderStats struct {
	Total         int64                                 `json:"total"`
	ByStatus      map[string]int64                      `json:"by_status"`
	CollectionFee models.Money                          `json:"collection_fee"`
	ShippingFee   models.Money                          `json:"shipping_fee"`
	ParkingFee    models.Money                          `json:"parking_fee"`
	TotalFee      models.Money                          `json:"total_fee"`
	ByAssignee    []repository.SampleOrderAssigneeCount `json:"by_assignee"`
}

// Stats 按筛选条件统计状态分布、费用合计与员工完成数
func (s *SampleOrderService) Stats(ctx context.Context, input ListSampleOrdersInput) (*SampleOrderStats, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	filter := input.toFilter()
	filter.Page, filter.PageSize = 0, 0

	counts, err := s.orderRepo.CountByStatus(storeCtx, filter)
	if err != nil {
		return nil, err
	}
	stats := &SampleOrderStats{
		ByStatus:      make(map[string]int64, len(counts)),
		CollectionFee: models.NewMoneyFromInt(0),
		ShippingFee:   models.NewMoneyFromInt(0),
		ParkingFee:    models.NewMoneyFromInt(0),
		TotalFee:      models.NewMoneyFromInt(0),
	}
	for _, row := range counts {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	orders, err := s.orderRepo.ListAll(storeCtx, filter)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if order.Status == constants.SampleOrderStatusCancelled {
			continue
		}
		for _, item := range order.ClinicItems {
			stats.CollectionFee = stats.CollectionFee.Add(item.CollectionFee)
			stats.ShippingFee = stats.ShippingFee.Add(item.ShippingFee)
			stats.ParkingFee = stats.ParkingFee.Add(item.ParkingFee)
			stats.TotalFee = stats.TotalFee.Add(item.Total())
		}
	}

	byAssignee, err := s.orderRepo.CountByAssignee(storeCtx, filter, []string{
		constants.SampleOrderStatusCompleted,
		constants.SampleOrderStatusVerified,
	})
	if err != nil {
		return nil, err
	}
	stats.ByAssignee = byAssignee
	return stats, nil
}
