package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phacogen-next/internal/authz"
	"github.com/phacogen-next/internal/cache"
	"github.com/phacogen-next/internal/config"
	adminhandlers "github.com/phacogen-next/internal/http/handlers/admin"
	publichandlers "github.com/phacogen-next/internal/http/handlers/public"
	"github.com/phacogen-next/internal/http/response"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pg"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", RateLimitMiddleware(cache.Client(), loginRule, KeyByIPAndJSONField("username")), publicHandler.Login)
		}

		// 员工接口（需鉴权）
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(c.AuthService), RBACMiddleware(c.AuthzService))
		{
			// 采样单
			orders := admin.Group("/sample-orders")
			{
				orders.GET("", adminHandler.ListSampleOrders)
				orders.POST("", adminHandler.CreateSampleOrder)
				orders.GET("/code/:code", adminHandler.GetSampleOrderByCode)
				orders.GET("/history/all", adminHandler.ListAllSampleOrderHistory)
				orders.GET("/stats/summary", adminHandler.GetSampleOrderStats)
				orders.GET("/overdue", adminHandler.ListOverdueSampleOrders)
				orders.POST("/overdue/notify", adminHandler.NotifyOverdueSampleOrders)
				orders.POST("/auto-create", adminHandler.AutoCreateSampleOrders)
				orders.GET("/:id", adminHandler.GetSampleOrder)
				orders.PUT("/:id", adminHandler.UpdateSampleOrder)
				orders.DELETE("/:id", adminHandler.DeleteSampleOrder)
				orders.PUT("/:id/assign", adminHandler.AssignSampleOrder)
				orders.PUT("/:id/status", adminHandler.UpdateSampleOrderStatus)
				orders.POST("/:id/complete-multi-stop", adminHandler.CompleteMultiStopSampleOrder)
				orders.POST("/:id/verify-items", adminHandler.VerifySampleOrderClinicItems)
				orders.POST("/:id/resend-email", adminHandler.ResendSampleOrderEmail)
				orders.GET("/:id/history", adminHandler.GetSampleOrderHistory)
			}

			// 站内信
			notifications := admin.Group("/notifications")
			{
				notifications.GET("", adminHandler.ListNotifications)
				notifications.GET("/unread-count", adminHandler.GetUnreadNotificationCount)
				notifications.PUT("/read-all", adminHandler.MarkAllNotificationsRead)
				notifications.PUT("/:id/read", adminHandler.MarkNotificationRead)
				notifications.DELETE("/:id", adminHandler.DeleteNotification)
				notifications.DELETE("", adminHandler.DeleteAllNotifications)
			}

			// 登录记录
			admin.GET("/login-logs", adminHandler.ListLoginLogs)
			admin.GET("/users/:id/login-logs", adminHandler.ListUserLoginLogs)

			// 权限管理（仅 Admin 角色，未配置策略）
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.GET("/authz/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
