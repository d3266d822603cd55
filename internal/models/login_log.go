package models

import "time"

// UserLoginLog 员工登录记录
// 说明：成功与失败都会记录，供审计查看单个员工或全部员工的登录历史。
type UserLoginLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"` // 用户不存在时为 0
	Username   string    `gorm:"size:64;index;not null" json:"username"`
	Status     string    `gorm:"size:16;index;not null" json:"status"` // success / failed
	FailReason string    `gorm:"size:32;index" json:"fail_reason,omitempty"`
	ClientIP   string    `gorm:"type:varchar(64);index" json:"client_ip"`
	UserAgent  string    `gorm:"type:text" json:"user_agent"`
	DeviceType string    `gorm:"size:16" json:"device_type"` // mobile / tablet / desktop
	RequestID  string    `gorm:"type:varchar(64);index" json:"request_id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (UserLoginLog) TableName() string {
	return "user_login_logs"
}
