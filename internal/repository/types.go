package repository

import "time"

// SampleOrderListFilter 采样单列表过滤条件
type SampleOrderListFilter struct {
	Page         int
	PageSize     int
	Status       string
	Statuses     []string
	Search       string // 编号 / 备注模糊匹配
	AssigneeID   uint
	ClinicID     uint
	DispatcherID uint
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// NotificationListFilter 通知列表过滤条件
type NotificationListFilter struct {
	Page       int
	PageSize   int
	UserID     uint
	OnlyUnread bool
}

// UserLoginLogListFilter 登录记录过滤条件
type UserLoginLogListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// SampleOrderStatusCount 状态分布
type SampleOrderStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// SampleOrderAssigneeCount 员工维度统计
type SampleOrderAssigneeCount struct {
	AssigneeID uint  `json:"assignee_id"`
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
}
