package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/provider"
	"github.com/phacogen-next/internal/queue"
	"github.com/phacogen-next/internal/service"

	"github.com/hibiken/asynq"
)

// SampleOrderJobs 后台任务依赖的采样单能力
type SampleOrderJobs interface {
	RetryCompletionEmails(ctx context.Context, orderID uint, clinicIDs []uint) error
	SendOverdueNotifications(ctx context.Context) (*service.OverdueResult, error)
	RunDailyAutoCreate(ctx context.Context) (*service.AutoCreateResult, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	jobs SampleOrderJobs
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil || c.SampleOrderService == nil {
		return &Consumer{}
	}
	return &Consumer{jobs: c.SampleOrderService}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCompletionEmail, c.handleCompletionEmail)
	mux.HandleFunc(queue.TaskOverdueSweep, c.handleOverdueSweep)
	mux.HandleFunc(queue.TaskAutoCreate, c.handleAutoCreate)
}

func (c *Consumer) handleCompletionEmail(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.jobs == nil || task == nil {
		logger.Debugw("worker_completion_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CompletionEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_completion_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_completion_email_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	err := c.jobs.RetryCompletionEmails(ctx, payload.OrderID, payload.ClinicIDs)
	switch {
	case err == nil:
		logger.Infow("worker_completion_email_done", "order_id", payload.OrderID, "clinic_ids", payload.ClinicIDs)
		return nil
	case errors.Is(err, service.ErrOrderNotFound):
		logger.Debugw("worker_completion_email_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	case errors.Is(err, service.ErrOrderStatusInvalid):
		logger.Debugw("worker_completion_email_skip_not_verified", "order_id", payload.OrderID)
		return nil
	default:
		logger.Warnw("worker_completion_email_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
}

func (c *Consumer) handleOverdueSweep(ctx context.Context, _ *asynq.Task) error {
	return c.runOverdueSweep(ctx)
}

func (c *Consumer) handleAutoCreate(ctx context.Context, _ *asynq.Task) error {
	return c.runAutoCreate(ctx)
}

func (c *Consumer) runOverdueSweep(ctx context.Context) error {
	if c == nil || c.jobs == nil {
		logger.Debugw("worker_overdue_sweep_skip_nil")
		return nil
	}
	result, err := c.jobs.SendOverdueNotifications(ctx)
	if err != nil {
		logger.Warnw("worker_overdue_sweep_failed", "error", err)
		return err
	}
	for _, msg := range result.Errors {
		logger.Warnw("worker_overdue_sweep_order_failed", "error", msg)
	}
	return nil
}

func (c *Consumer) runAutoCreate(ctx context.Context) error {
	if c == nil || c.jobs == nil {
		logger.Debugw("worker_auto_create_skip_nil")
		return nil
	}
	result, err := c.jobs.RunDailyAutoCreate(ctx)
	if err != nil {
		if errors.Is(err, service.ErrNoAdminAvailable) {
			logger.Warnw("worker_auto_create_skip_no_admin")
			return nil
		}
		logger.Warnw("worker_auto_create_failed", "error", err)
		return err
	}
	for _, msg := range result.Errors {
		logger.Warnw("worker_auto_create_clinic_failed", "error", msg)
	}
	return nil
}
