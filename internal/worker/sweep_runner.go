package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/logger"

	"github.com/robfig/cron/v3"
)

// SweepRunner 队列关闭时在进程内按 cron 表达式执行巡检与自动建单
type SweepRunner struct {
	name     string
	cron     *cron.Cron
	consumer *Consumer

	mu     sync.Mutex
	runCtx context.Context
}

// NewSweepRunner 创建进程内定时执行器
func NewSweepRunner(schedule config.ScheduleConfig, loc *time.Location, consumer *Consumer) (*SweepRunner, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	if loc == nil {
		loc = time.Local
	}
	r := &SweepRunner{
		name:     "sweep_runner",
		cron:     cron.New(cron.WithLocation(loc)),
		consumer: consumer,
		runCtx:   context.Background(),
	}
	overdueSpec, autoCreateSpec := scheduleSpecs(schedule)
	if _, err := r.cron.AddFunc(overdueSpec, r.job("overdue_sweep", consumer.runOverdueSweep)); err != nil {
		return nil, fmt.Errorf("parse overdue cron %q: %w", overdueSpec, err)
	}
	if _, err := r.cron.AddFunc(autoCreateSpec, r.job("auto_create", consumer.runAutoCreate)); err != nil {
		return nil, fmt.Errorf("parse auto create cron %q: %w", autoCreateSpec, err)
	}
	return r, nil
}

func (r *SweepRunner) job(name string, fn func(ctx context.Context) error) func() {
	return func() {
		started := time.Now()
		if err := fn(r.context()); err != nil {
			logger.Warnw("sweep_runner_job_failed", "job", name, "error", err)
			return
		}
		logger.Debugw("sweep_runner_job_done", "job", name, "elapsed_ms", time.Since(started).Milliseconds())
	}
}

func (r *SweepRunner) context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runCtx
}

// Name 服务名称
func (r *SweepRunner) Name() string {
	if r == nil || r.name == "" {
		return "sweep_runner"
	}
	return r.name
}

// Start 启动定时执行，直到 ctx 结束
func (r *SweepRunner) Start(ctx context.Context) error {
	if r == nil || r.cron == nil {
		return errors.New("sweep runner not initialized")
	}
	r.mu.Lock()
	r.runCtx = ctx
	r.mu.Unlock()
	r.cron.Start()
	logger.Infow("sweep_runner_started", "entries", len(r.cron.Entries()))
	<-ctx.Done()
	return nil
}

// Stop 停止调度并等待执行中的任务结束
func (r *SweepRunner) Stop(ctx context.Context) error {
	if r == nil || r.cron == nil {
		return nil
	}
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
