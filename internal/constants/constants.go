package constants

// 采样单状态常量（取值与已有数据及客户端保持一致）
const (
	SampleOrderStatusAwaitingDispatch   = "CHO_DIEU_PHOI"
	SampleOrderStatusAwaitingAcceptance = "CHO_NHAN_LENH"
	SampleOrderStatusInProgress         = "DANG_THUC_HIEN"
	SampleOrderStatusCompleted          = "HOAN_THANH"
	SampleOrderStatusVerified           = "HOAN_THANH_KIEM_TRA"
	SampleOrderStatusCancelled          = "DA_HUY"
)

// 通知类型常量
const (
	NotificationTypeOrderAssigned      = "ORDER_ASSIGNED"
	NotificationTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	NotificationTypeOrderCreated       = "ORDER_CREATED"
	NotificationTypeOrderOverdue       = "ORDER_OVERDUE"
)

// 角色常量
const (
	RoleAdmin      = "Admin"
	RoleDispatcher = "dispatcher"
	RoleStaff      = "staff"
	RoleAuditor    = "auditor"
)

// 采样单编号
const (
	DefaultOrderCodePrefix = "TM"
	OrderCodeDateLayout    = "020106"
	DefaultTimezone        = "Asia/Ho_Chi_Minh"
)

// 队列与任务常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskSampleOrderCompletionEmail = "sample_order:completion_email"
	TaskSampleOrderOverdueSweep    = "sample_order:overdue_sweep"
	TaskSampleOrderAutoCreate      = "sample_order:auto_create"
)

// 历史记录查询上限
const (
	HistoryListMaxLimit     = 500
	HistoryListDefaultLimit = 500
)

// 登录记录
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"

	LoginLogFailReasonInvalidCredentials = "invalid_credentials"
	LoginLogFailReasonUserDisabled       = "user_disabled"
	LoginLogFailReasonInternalError      = "internal_error"

	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeDesktop = "desktop"
)
