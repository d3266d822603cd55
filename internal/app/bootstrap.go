package app

import (
	"errors"
	"fmt"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/provider"
	"github.com/phacogen-next/internal/router"
	"github.com/phacogen-next/internal/worker"
)

// BuildRunner 按启动模式组装服务
func BuildRunner(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	if cfg == nil || container == nil {
		return nil, errors.New("config or container is nil")
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	// 初始化 Worker 服务；队列关闭时改用进程内定时执行器
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		switch {
		case cfg.Queue.Enabled:
			workerService, err := worker.NewService(cfg, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		case cfg.Schedule.Enabled:
			runner, err := worker.NewSweepRunner(cfg.Schedule, cfg.Order.Location(), consumer)
			if err != nil {
				return nil, err
			}
			logger.Warnw("app_queue_disabled_use_sweep_runner")
			services = append(services, runner)
		default:
			logger.Warnw("app_worker_skipped", "queue_enabled", false, "schedule_enabled", false)
		}
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no services initialized for mode %q", mode)
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	container := provider.NewContainer(opts.Config)
	defer container.Close()

	runner, err := BuildRunner(opts.Config, container, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
