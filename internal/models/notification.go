package models

import "time"

// Notification 站内通知
type Notification struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	UserID         uint      `gorm:"index:idx_notifications_user_read,priority:1;not null" json:"user_id"` // 接收人
	Title          string    `gorm:"size:255;not null" json:"title"`
	Message        string    `gorm:"type:text;not null" json:"message"`
	Type           string    `gorm:"size:32;index;not null" json:"type"`
	RelatedOrderID *uint     `gorm:"index" json:"related_order_id,omitempty"`
	IsRead         bool      `gorm:"index:idx_notifications_user_read,priority:2;not null;default:false" json:"is_read"`
	DedupeKey      *string   `gorm:"size:128;uniqueIndex" json:"-"` // 仅需去重的通知填写（如超时提醒）
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
