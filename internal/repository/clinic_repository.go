package repository

import (
	"context"
	"errors"

	"github.com/phacogen-next/internal/models"

	"gorm.io/gorm"
)

// ClinicRepository 诊所数据访问接口
type ClinicRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Clinic, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Clinic, error)
	ListAutoCreateEnabled(ctx context.Context) ([]models.Clinic, error)
	Create(ctx context.Context, clinic *models.Clinic) error
}

// GormClinicRepository GORM 实现
type GormClinicRepository struct {
	db *gorm.DB
}

// NewClinicRepository 创建诊所仓库
func NewClinicRepository(db *gorm.DB) *GormClinicRepository {
	return &GormClinicRepository{db: db}
}

// GetByID 根据 ID 获取诊所
func (r *GormClinicRepository) GetByID(ctx context.Context, id uint) (*models.Clinic, error) {
	var clinic models.Clinic
	if err := r.db.WithContext(ctx).First(&clinic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &clinic, nil
}

// ListByIDs 批量获取诊所（按 ID 升序）
func (r *GormClinicRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Clinic, error) {
	if len(ids) == 0 {
		return []models.Clinic{}, nil
	}
	var clinics []models.Clinic
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&clinics).Error; err != nil {
		return nil, err
	}
	return clinics, nil
}

// ListAutoCreateEnabled 启用且开启自动建单的诊所
func (r *GormClinicRepository) ListAutoCreateEnabled(ctx context.Context) ([]models.Clinic, error) {
	var clinics []models.Clinic
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND auto_create = ?", true, true).
		Order("id asc").
		Find(&clinics).Error
	if err != nil {
		return nil, err
	}
	return clinics, nil
}

// Create 创建诊所
func (r *GormClinicRepository) Create(ctx context.Context, clinic *models.Clinic) error {
	return r.db.WithContext(ctx).Create(clinic).Error
}

// WorkContentRepository 工作内容数据访问接口
type WorkContentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.WorkContent, error)
	List(ctx context.Context) ([]models.WorkContent, error)
	Create(ctx context.Context, item *models.WorkContent) error
}

// GormWorkContentRepository GORM 实现
type GormWorkContentRepository struct {
	db *gorm.DB
}

// NewWorkContentRepository 创建工作内容仓库
func NewWorkContentRepository(db *gorm.DB) *GormWorkContentRepository {
	return &GormWorkContentRepository{db: db}
}

// GetByID 根据 ID 获取工作内容
func (r *GormWorkContentRepository) GetByID(ctx context.Context, id uint) (*models.WorkContent, error) {
	var item models.WorkContent
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// List 全部工作内容
func (r *GormWorkContentRepository) List(ctx context.Context) ([]models.WorkContent, error) {
	var items []models.WorkContent
	if err := r.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Create 创建工作内容
func (r *GormWorkContentRepository) Create(ctx context.Context, item *models.WorkContent) error {
	return r.db.WithContext(ctx).Create(item).Error
}
