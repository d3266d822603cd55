package service

import (
	"context"
	"fmt"
	"time"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
)

// OverdueResult 超时巡检结果
type OverdueResult struct {
	Checked       int      `json:"checked"`
	Notified      int      `json:"notified"`
	Notifications int      `json:"notifications"`
	Errors        []string `json:"errors"`
}

// AutoCreateResult 自动建单结果
type AutoCreateResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// FindOverdue 未终结且约定完成时间早于 now 的采样单
func (s *SampleOrderService) FindOverdue(ctx context.Context, now time.Time) ([]models.SampleOrder, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.orderRepo.ListOverdue(storeCtx, now, terminalSampleOrderStatuses())
}

// SendOverdueNotifications 每单只提醒一次，可重复执行
func (s *SampleOrderService) SendOverdueNotifications(ctx context.Context) (*OverdueResult, error) {
	orders, err := s.FindOverdue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	result := &OverdueResult{Checked: len(orders), Errors: []string{}}
	for i := range orders {
		order := orders[i]
		exists, err := s.notificationRepo.ExistsForOrder(ctx, order.ID, constants.NotificationTypeOrderOverdue)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", order.Code, err))
			continue
		}
		if exists {
			continue
		}
		report := s.effects.Dispatch(ctx, []OrderEffect{{Kind: EffectNotifyOverdue, Order: order}})
		for _, effectErr := range report.Errors {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", order.Code, effectErr))
		}
		if report.Notified > 0 {
			result.Notified++
			result.Notifications += report.Notified
		}
	}
	logger.Infow("sample_order_overdue_sweep_done",
		"checked", result.Checked,
		"notified", result.Notified,
		"errors", len(result.Errors),
	)
	return result, nil
}

// AutoCreateOrders 按诊所规则为今天建单，单个诊所失败不影响其他诊所
func (s *SampleOrderService) AutoCreateOrders(ctx context.Context, dispatcherID uint) (*AutoCreateResult, error) {
	if dispatcherID == 0 {
		return nil, ErrDispatcherRequired
	}
	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekday := int(now.Weekday())

	storeCtx, cancel := s.storeContext(ctx)
	clinics, err := s.clinicRepo.ListAutoCreateEnabled(storeCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	result := &AutoCreateResult{Errors: []string{}}
	for i := range clinics {
		clinic := clinics[i]
		created, skipped, err := s.autoCreateForClinic(ctx, &clinic, dispatcherID, weekday, now, dayStart, dayEnd)
		result.Created += created
		result.Skipped += skipped
		if err != nil {
			logger.Warnw("sample_order_auto_create_clinic_failed", "clinic_id", clinic.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", clinic.Name, err))
		}
	}
	logger.Infow("sample_order_auto_create_done",
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *SampleOrderService) autoCreateForClinic(ctx context.Context, clinic *models.Clinic, dispatcherID uint, weekday int, now, dayStart, dayEnd time.Time) (int, int, error) {
	created, skipped := 0, 0
	for _, rule := range clinic.AutoRules {
		if !rule.Weekdays.Contains(weekday) {
			continue
		}
		if rule.WorkContentID == 0 {
			return created, skipped, fmt.Errorf("rule without work content")
		}
		storeCtx, cancel := s.storeContext(ctx)
		exists, err := s.orderRepo.ExistsForClinicWorkContent(storeCtx, clinic.ID, rule.WorkContentID, dayStart, dayEnd)
		cancel()
		if err != nil {
			return created, skipped, err
		}
		if exists {
			skipped++
			continue
		}

		input := CreateOrderInput{
			DispatcherID:  dispatcherID,
			WorkContentID: rule.WorkContentID,
			ClinicID:      clinic.ID,
			Note:          rule.Note,
			Priority:      FlexBool(rule.Priority),
		}
		if rule.DueInHours > 0 {
			due := now.Add(time.Duration(rule.DueInHours) * time.Hour)
			input.DueAt = &due
		}
		order, err := s.Create(ctx, input)
		if err != nil {
			return created, skipped, err
		}
		created++
		if clinic.StaffInChargeID != nil && *clinic.StaffInChargeID != 0 {
			if _, err := s.Assign(ctx, order.ID, *clinic.StaffInChargeID, dispatcherID); err != nil {
				return created, skipped, fmt.Errorf("assign %s: %w", order.Code, err)
			}
		}
	}
	return created, skipped, nil
}

// RunDailyAutoCreate 以第一位管理员为派单人执行自动建单
func (s *SampleOrderService) RunDailyAutoCreate(ctx context.Context) (*AutoCreateResult, error) {
	storeCtx, cancel := s.storeContext(ctx)
	admin, err := s.userRepo.FirstAdmin(storeCtx)
	cancel()
	if err != nil {
		return nil, err
	}
	if admin == nil {
		logger.Warnw("sample_order_auto_create_no_admin")
		return nil, ErrNoAdminAvailable
	}
	return s.AutoCreateOrders(ctx, admin.ID)
}
