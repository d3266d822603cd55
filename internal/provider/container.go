package provider

import (
	"github.com/phacogen-next/internal/authz"
	"github.com/phacogen-next/internal/cache"
	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/queue"
	"github.com/phacogen-next/internal/repository"
	"github.com/phacogen-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo          repository.UserRepository
	RoleRepo          repository.RoleRepository
	ClinicRepo        repository.ClinicRepository
	WorkContentRepo   repository.WorkContentRepository
	SampleOrderRepo   repository.SampleOrderRepository
	OrderHistoryRepo  repository.SampleOrderHistoryRepository
	OrderSequenceRepo repository.OrderSequenceRepository
	NotificationRepo  repository.NotificationRepository
	UserLoginLogRepo  repository.UserLoginLogRepository

	// Services
	AuthzService          *authz.Service
	AuthService           *service.AuthService
	EmailService          *service.EmailService
	OrderCodeGenerator    *service.OrderCodeGenerator
	OrderHistoryLog       *service.OrderHistoryLog
	NotificationFanout    *service.NotificationFanout
	OrderEffectDispatcher *service.OrderEffectDispatcher
	SampleOrderService    *service.SampleOrderService
	NotificationService   *service.NotificationService
	UserLoginLogService   *service.UserLoginLogService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.RoleRepo = repository.NewRoleRepository(db)
	c.ClinicRepo = repository.NewClinicRepository(db)
	c.WorkContentRepo = repository.NewWorkContentRepository(db)
	c.SampleOrderRepo = repository.NewSampleOrderRepository(db)
	c.OrderHistoryRepo = repository.NewSampleOrderHistoryRepository(db)
	c.OrderSequenceRepo = repository.NewOrderSequenceRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
	c.UserLoginLogRepo = repository.NewUserLoginLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	orderCfg := c.Config.Order
	loc := orderCfg.Location()

	c.UserLoginLogService = service.NewUserLoginLogService(c.UserLoginLogRepo)
	c.AuthService = service.NewAuthService(c.Config, c.UserRepo, c.UserLoginLogService)
	c.EmailService = service.NewEmailService(&c.Config.Email, loc)
	c.OrderCodeGenerator = service.NewOrderCodeGenerator(orderCfg.CodePrefix, loc, c.SampleOrderRepo, c.OrderSequenceRepo)
	c.OrderHistoryLog = service.NewOrderHistoryLog(c.OrderHistoryRepo)
	c.NotificationFanout = service.NewNotificationFanout(c.NotificationRepo, c.UserRepo)
	c.OrderEffectDispatcher = service.NewOrderEffectDispatcher(
		c.NotificationFanout,
		c.EmailService,
		c.ClinicRepo,
		c.UserRepo,
		c.QueueClient,
		orderCfg.EffectTimeout(),
		orderCfg.EmailConcurrency,
	)
	c.SampleOrderService = service.NewSampleOrderService(
		c.SampleOrderRepo,
		c.UserRepo,
		c.ClinicRepo,
		c.WorkContentRepo,
		c.NotificationRepo,
		c.OrderHistoryLog,
		c.OrderCodeGenerator,
		c.OrderEffectDispatcher,
		orderCfg,
	)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo)
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
