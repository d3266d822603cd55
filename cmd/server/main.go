package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/phacogen-next/internal/app"
	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
)

func main() {
	var rawMode string
	flag.StringVar(&rawMode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner()
	if err := run(rawMode); err != nil {
		logger.StdLogger().Fatalf("服务运行失败: %v", err)
	}
}

func run(rawMode string) error {
	mode, err := app.ParseMode(rawMode)
	if err != nil {
		return err
	}

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	release := cfg.Server.Mode == "release"

	if isWeakSecret(cfg.JWT.SecretKey) {
		if release {
			return fmt.Errorf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
		logger.Warnw("config_jwt_secret_weak")
	}

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	adminUser := os.Getenv("PG_DEFAULT_ADMIN_USERNAME")
	adminPass := os.Getenv("PG_DEFAULT_ADMIN_PASSWORD")
	if release && adminPass == "" {
		logger.Warnw("default_admin_skipped", "reason", "PG_DEFAULT_ADMIN_PASSWORD is empty")
	} else if err := models.InitDefaultAdmin(adminUser, adminPass); err != nil {
		logger.Warnw("default_admin_init_failed", "error", err)
	}

	if release {
		gin.SetMode(gin.ReleaseMode)
	}
	return app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
}

func printStartupBanner() {
	color.New(color.FgHiMagenta, color.Bold).Println("Phacogen sample-collection API")
	color.New(color.FgCyan).Println("Modes: all | api | worker   CLI: opsctl seed | sweep | orders | authz")
	color.New(color.Faint).Println("--------------------------------------------------------------")
}

// isWeakSecret 长度不足 32 或仍含示例占位词
func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range []string{"change-me", "change-in-production", "your-secret-key"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
