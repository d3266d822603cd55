package models

import (
	"time"

	"gorm.io/gorm"
)

// User 员工账号
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	StaffCode    string         `gorm:"size:32;uniqueIndex;not null" json:"staff_code"` // 员工编号
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	FullName     string         `gorm:"size:128" json:"full_name"`
	RoleID       uint           `gorm:"index;not null" json:"role_id"`
	Role         *Role          `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Email        string         `gorm:"size:255" json:"email"`
	Phone        string         `gorm:"size:32" json:"phone"`
	IsActive     bool           `gorm:"not null;default:true;index" json:"is_active"`
	TokenVersion uint64         `gorm:"not null;default:0" json:"-"` // Token 版本（用于全量失效）
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// DisplayName 优先返回姓名
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Role 角色
type Role struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	IsAdmin     bool      `gorm:"not null;default:false;index" json:"is_admin"` // 管理员角色：接收全部通知并跳过 RBAC
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Role) TableName() string {
	return "roles"
}
