package service

import (
	"context"
	"fmt"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
)

const historyNoteVerifiedMultiStop = "Hoàn thành kiểm tra với nhiều phòng khám"

// CompleteMultiStop 多站点单完成：只上传照片
func (s *SampleOrderService) CompleteMultiStop(ctx context.Context, orderID uint, photos []string, actorID uint) (*OrderResult, error) {
	extra := StatusExtra{CompletionPhotos: photos}
	if actorID != 0 {
		extra.ActorID = &actorID
	}
	return s.transition(ctx, orderID, constants.SampleOrderStatusCompleted, extra, "", func(order *models.SampleOrder, _ map[string]interface{}) error {
		if !order.IsMultiStop() {
			return ErrOrderNotMultiStop
		}
		return nil
	})
}

// VerifyWithClinicItems 多站点单核验：替换诊所明细并进入核验完成，逐诊所发送费用邮件
func (s *SampleOrderService) VerifyWithClinicItems(ctx context.Context, orderID uint, items []models.OrderClinicItem, actorID uint) (*OrderResult, error) {
	normalized, err := normalizeClinicItems(items)
	if err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(ctx)
	err = s.checkReferences(storeCtx, nil, normalized)
	cancel()
	if err != nil {
		return nil, err
	}
	extra := StatusExtra{Extra: models.JSON{"clinic_count": len(normalized)}}
	if actorID != 0 {
		extra.ActorID = &actorID
	}
	return s.transition(ctx, orderID, constants.SampleOrderStatusVerified, extra, historyNoteVerifiedMultiStop, func(order *models.SampleOrder, updates map[string]interface{}) error {
		if !order.IsMultiStop() {
			return ErrOrderNotMultiStop
		}
		updates["clinic_items"] = normalized
		updates["clinic_id"] = normalized[0].ClinicID
		return nil
	})
}

// ResendCompletionEmails 管理员手动补发完成邮件，clinicIDs 为空时发送全部
func (s *SampleOrderService) ResendCompletionEmails(ctx context.Context, orderID uint, clinicIDs []uint) (*EmailStatus, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != constants.SampleOrderStatusVerified {
		return nil, ErrOrderStatusInvalid
	}
	effectCtx, cancel := context.WithTimeout(ctx, s.cfg.EffectTimeout())
	defer cancel()
	status := s.effects.SendCompletionEmails(effectCtx, order, clinicIDs)
	return &status, nil
}

// RetryCompletionEmails 队列补发，仍有失败时返回错误以触发重试
func (s *SampleOrderService) RetryCompletionEmails(ctx context.Context, orderID uint, clinicIDs []uint) error {
	storeCtx, cancel := s.storeContext(ctx)
	order, err := s.orderRepo.GetByID(storeCtx, orderID)
	cancel()
	if err != nil {
		return err
	}
	if order == nil {
		logger.Warnw("sample_order_email_retry_order_missing", "order_id", orderID)
		return nil
	}
	effectCtx, cancelEffect := context.WithTimeout(ctx, s.cfg.EffectTimeout())
	defer cancelEffect()
	status := s.effects.SendCompletionEmails(effectCtx, order, clinicIDs)
	if len(status.Failures) > 0 {
		return fmt.Errorf("completion email failed for %d clinic(s)", len(status.Failures))
	}
	return nil
}
