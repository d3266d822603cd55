package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// SampleOrder 采样单（lệnh thu mẫu）
type SampleOrder struct {
	ID                 uint             `gorm:"primarykey" json:"id"`
	Code               string           `gorm:"size:32;uniqueIndex;not null" json:"code"`                 // 采样单编号，创建后不可变
	Status             string           `gorm:"size:32;index;not null" json:"status"`                     // 当前状态
	ClinicID           uint             `gorm:"index;not null" json:"clinic_id"`                          // 主诊所（多站点单为汇集点）
	WorkContentID      uint             `gorm:"index;not null" json:"work_content_id"`                    // 工作内容
	DispatcherID       uint             `gorm:"index;not null" json:"dispatcher_id"`                      // 派单人，创建后不可变
	AssigneeID         *uint            `gorm:"index" json:"assignee_id,omitempty"`                       // 执行员工
	ClinicItems        OrderClinicItems `gorm:"type:text" json:"clinic_items"`                            // 诊所明细
	CompletionPhotos   StringArray      `gorm:"type:text" json:"completion_photos"`                       // 完成照片
	VerificationPhotos StringArray      `gorm:"type:text" json:"verification_photos"`                     // 核验照片
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`                                   // 完成时间
	VerifiedAt         *time.Time       `json:"verified_at,omitempty"`                                    // 核验完成时间
	VerifyClinicID     *uint            `json:"verify_clinic_id,omitempty"`                               // 核验诊所
	Location           *GeoPoint        `gorm:"type:text" json:"location,omitempty"`                      // 最近一次上报位置
	Priority           bool             `gorm:"not null;default:false" json:"priority"`                   // 是否优先
	MultiStop          bool             `gorm:"not null;default:false" json:"multi_stop"`                 // 多站点单（车站收样）
	DueAt              *time.Time       `gorm:"index" json:"due_at,omitempty"`                            // 约定完成时间
	Note               string           `gorm:"type:text" json:"note"`                                    // 备注
	Version            uint64           `gorm:"not null;default:0" json:"version"`                        // 乐观锁版本
	CreatedAt          time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName 指定表名
func (SampleOrder) TableName() string {
	return "sample_orders"
}

// IsMultiStop 多站点单：创建时标记，或拥有多条诊所明细
func (o *SampleOrder) IsMultiStop() bool {
	return o != nil && (o.MultiStop || len(o.ClinicItems) > 1)
}

// AssigneeValue 返回执行员工 ID，未指派为 0
func (o *SampleOrder) AssigneeValue() uint {
	if o == nil || o.AssigneeID == nil {
		return 0
	}
	return *o.AssigneeID
}

// OrderClinicItem 采样单诊所明细
type OrderClinicItem struct {
	ClinicID      uint        `json:"clinic_id"`
	CollectionFee Money       `json:"collection_fee"` // 收样费
	ShippingFee   Money       `json:"shipping_fee"`   // 运费
	ParkingFee    Money       `json:"parking_fee"`    // 停车费
	Photos        StringArray `json:"photos"`         // 核验照片
}

// Total 明细费用合计
func (i OrderClinicItem) Total() Money {
	return i.CollectionFee.Add(i.ShippingFee).Add(i.ParkingFee)
}

// OrderClinicItems 明细列表（整体读写，不做子文档级锁）
type OrderClinicItems []OrderClinicItem

// Value 实现 driver.Valuer 接口
func (items OrderClinicItems) Value() (driver.Value, error) {
	if items == nil {
		return marshalColumn([]OrderClinicItem{})
	}
	return marshalColumn([]OrderClinicItem(items))
}

// Scan 实现 sql.Scanner 接口
func (items *OrderClinicItems) Scan(value interface{}) error {
	*items = OrderClinicItems{}
	return scanColumn(value, items)
}

// ClinicIDs 返回去重后的诊所 ID（保持顺序）
func (items OrderClinicItems) ClinicIDs() []uint {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]struct{}, len(items))
	for _, item := range items {
		if item.ClinicID == 0 {
			continue
		}
		if _, ok := seen[item.ClinicID]; ok {
			continue
		}
		seen[item.ClinicID] = struct{}{}
		ids = append(ids, item.ClinicID)
	}
	return ids
}

// SampleOrderHistory 采样单状态流转记录，只追加不修改
type SampleOrderHistory struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	OrderID        uint      `gorm:"index;not null" json:"order_id"`
	PreviousStatus *string   `gorm:"size:32" json:"previous_status"` // 创建记录为空
	Status         string    `gorm:"size:32;not null" json:"status"`
	ActorID        *uint     `gorm:"index" json:"actor_id,omitempty"` // 系统触发时为空
	Note           string    `gorm:"type:text" json:"note"`
	Payload        JSON      `gorm:"type:text" json:"payload,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SampleOrderHistory) TableName() string {
	return "sample_order_histories"
}

// OrderCodeSequence 采样单每日序号
type OrderCodeSequence struct {
	Day       string    `gorm:"primaryKey;size:16" json:"day"` // ddmmyy
	Value     int       `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (OrderCodeSequence) TableName() string {
	return "order_code_sequences"
}
