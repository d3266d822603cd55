package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Clinic 诊所
type Clinic struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	Code            string          `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Address         string          `gorm:"size:512" json:"address"`
	Phone           string          `gorm:"size:32" json:"phone"`
	Email           string          `gorm:"size:255" json:"email"`
	Representative  string          `gorm:"size:128" json:"representative"`
	Specialty       string          `gorm:"size:128" json:"specialty"`
	IsActive        bool            `gorm:"not null;default:true;index" json:"is_active"`
	Note            string          `gorm:"type:text" json:"note"`
	AutoCreate      bool            `gorm:"not null;default:false;index" json:"auto_create"` // 是否自动建单
	AutoRules       ClinicAutoRules `gorm:"type:text" json:"auto_rules"`
	StaffInChargeID *uint           `gorm:"index" json:"staff_in_charge_id,omitempty"` // 负责员工
	ContactPhone    string          `gorm:"size:32" json:"contact_phone"`
	ZaloLink        string          `gorm:"size:255" json:"zalo_link"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Clinic) TableName() string {
	return "clinics"
}

// ClinicAutoRule 自动建单规则
type ClinicAutoRule struct {
	Weekdays      IntArray `json:"weekdays"` // 0 = 周日
	WorkContentID uint     `json:"work_content_id"`
	Note          string   `json:"note"`
	Priority      bool     `json:"priority"`
	DueInHours    int      `json:"due_in_hours"`
}

// ClinicAutoRules 规则列表
type ClinicAutoRules []ClinicAutoRule

// Value 实现 driver.Valuer 接口
func (r ClinicAutoRules) Value() (driver.Value, error) {
	if r == nil {
		return marshalColumn([]ClinicAutoRule{})
	}
	return marshalColumn([]ClinicAutoRule(r))
}

// Scan 实现 sql.Scanner 接口
func (r *ClinicAutoRules) Scan(value interface{}) error {
	*r = ClinicAutoRules{}
	return scanColumn(value, r)
}

// WorkContent 工作内容
type WorkContent struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (WorkContent) TableName() string {
	return "work_contents"
}
