package opsctl

import (
	"errors"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/provider"

	"github.com/spf13/cobra"
)

// Env 命令运行所需的依赖
type Env struct {
	Config    *config.Config
	Container *provider.Container
}

// EnvLoader 延迟构建依赖，仅在子命令执行时调用
type EnvLoader func() (*Env, error)

// NewRootCmd 运维命令入口
func NewRootCmd(load EnvLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Công cụ vận hành cho hệ thống lệnh thu mẫu",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(seedCmd(load))
	root.AddCommand(sweepCmd(load))
	root.AddCommand(ordersCmd(load))
	root.AddCommand(authzCmd(load))
	return root
}

// LoadEnv 按 config.yml 初始化日志、数据库与容器
func LoadEnv() (*Env, error) {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, err
	}
	return &Env{Config: cfg, Container: provider.NewContainer(cfg)}, nil
}

func loadEnv(load EnvLoader) (*Env, error) {
	if load == nil {
		return nil, errors.New("env loader is nil")
	}
	env, err := load()
	if err != nil {
		return nil, err
	}
	if env == nil || env.Container == nil {
		return nil, errors.New("env is not initialized")
	}
	return env, nil
}
