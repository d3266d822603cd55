package public

import "github.com/phacogen-next/internal/provider"

// Handler 公开接口处理器入口
// 说明：无需登录即可访问，目前只有员工登录。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
