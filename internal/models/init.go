package models

import (
	"errors"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultAdminPassword = "admin123"

// DefaultRoles 预置角色
func DefaultRoles() []Role {
	return []Role{
		{Name: constants.RoleAdmin, IsAdmin: true, Description: "Quản trị hệ thống"},
		{Name: constants.RoleDispatcher, Description: "Điều phối lệnh thu mẫu"},
		{Name: constants.RoleStaff, Description: "Nhân viên thu mẫu"},
		{Name: constants.RoleAuditor, Description: "Chỉ xem"},
	}
}

// EnsureDefaultRoles 确保预置角色存在，并保证 Admin 角色带有管理员标记
func EnsureDefaultRoles(db *gorm.DB) error {
	for _, seed := range DefaultRoles() {
		var role Role
		err := db.Where("name = ?", seed.Name).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item := seed
			if err := db.Create(&item).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if seed.IsAdmin && !role.IsAdmin {
			if err := db.Model(&role).Update("is_admin", true).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// InitDefaultAdmin 初始化默认管理员账号
func InitDefaultAdmin(username, password string) error {
	if err := EnsureDefaultRoles(DB); err != nil {
		return err
	}

	var adminRole Role
	if err := DB.Where("name = ?", constants.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}
	var count int64
	if err := DB.Model(&User{}).Where("role_id = ?", adminRole.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := User{
		StaffCode:    "NV-ADMIN",
		Username:     username,
		PasswordHash: string(hash),
		FullName:     "Administrator",
		RoleID:       adminRole.ID,
		IsActive:     true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
