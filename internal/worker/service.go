package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultOverdueCron    = "@every 1h"
	defaultAutoCreateCron = "0 6 * * *"
)

// Service 异步队列服务（消费者 + 定时调度器）
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	consumer  *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	svc := &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}
	if cfg.Schedule.Enabled {
		redisOpt, schedulerOpts := queue.BuildSchedulerOpts(&cfg.Queue, cfg.Order.Location())
		scheduler := asynq.NewScheduler(redisOpt, schedulerOpts)
		if err := registerSchedules(scheduler, cfg.Schedule); err != nil {
			return nil, err
		}
		svc.scheduler = scheduler
	}
	return svc, nil
}

func registerSchedules(scheduler *asynq.Scheduler, schedule config.ScheduleConfig) error {
	overdueSpec, autoCreateSpec := scheduleSpecs(schedule)
	if _, err := scheduler.Register(overdueSpec, queue.NewOverdueSweepTask(),
		asynq.Queue(constants.QueueCritical),
		asynq.Unique(time.Minute),
	); err != nil {
		return fmt.Errorf("register overdue sweep %q: %w", overdueSpec, err)
	}
	if _, err := scheduler.Register(autoCreateSpec, queue.NewAutoCreateTask(),
		asynq.Queue(constants.QueueDefault),
		asynq.Unique(time.Hour),
		asynq.MaxRetry(3),
	); err != nil {
		return fmt.Errorf("register auto create %q: %w", autoCreateSpec, err)
	}
	logger.Infow("worker_schedules_registered", "overdue_cron", overdueSpec, "auto_create_cron", autoCreateSpec)
	return nil
}

func scheduleSpecs(schedule config.ScheduleConfig) (string, string) {
	overdue := strings.TrimSpace(schedule.OverdueCron)
	if overdue == "" {
		overdue = defaultOverdueCron
	}
	autoCreate := strings.TrimSpace(schedule.AutoCreateCron)
	if autoCreate == "" {
		autoCreate = defaultAutoCreateCron
	}
	return overdue, autoCreate
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务；ctx 到期时不再等待执行中的任务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return waitShutdown(ctx, func() {
		if s.scheduler != nil {
			s.scheduler.Shutdown()
		}
		s.server.Shutdown()
	})
}

func waitShutdown(ctx context.Context, shutdown func()) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		shutdown()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
