package admin

import "github.com/phacogen-next/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：员工登录后访问，由 RBAC 中间件按角色授权。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
