package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/phacogen-next/internal/models"

	"gorm.io/gorm"
)

// ErrVersionConflict 乐观锁版本不匹配（记录已被并发修改）
var ErrVersionConflict = errors.New("sample order version conflict")

// SampleOrderRepository 采样单数据访问接口
type SampleOrderRepository interface {
	Create(ctx context.Context, order *models.SampleOrder) error
	GetByID(ctx context.Context, id uint) (*models.SampleOrder, error)
	GetByCode(ctx context.Context, code string) (*models.SampleOrder, error)
	UpdateWithVersion(ctx context.Context, id uint, version uint64, updates map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter SampleOrderListFilter) ([]models.SampleOrder, int64, error)
	ListAll(ctx context.Context, filter SampleOrderListFilter) ([]models.SampleOrder, error)
	ListOverdue(ctx context.Context, now time.Time, excludeStatuses []string) ([]models.SampleOrder, error)
	ExistsForClinicWorkContent(ctx context.Context, clinicID, workContentID uint, from, to time.Time) (bool, error)
	MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error)
	CountByStatus(ctx context.Context, filter SampleOrderListFilter) ([]SampleOrderStatusCount, error)
	CountByAssignee(ctx context.Context, filter SampleOrderListFilter, completedStatuses []string) ([]SampleOrderAssigneeCount, error)
	WithTx(tx *gorm.DB) SampleOrderRepository
}

// GormSampleOrderRepository GORM 实现
type GormSampleOrderRepository struct {
	db *gorm.DB
}

// NewSampleOrderRepository 创建采样单仓库
func NewSampleOrderRepository(db *gorm.DB) *GormSampleOrderRepository {
	return &GormSampleOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSampleOrderRepository) WithTx(tx *gorm.DB) SampleOrderRepository {
	if tx == nil {
		return r
	}
	return &GormSampleOrderRepository{db: tx}
}

// Create 创建采样单
func (r *GormSampleOrderRepository) Create(ctx context.Context, order *models.SampleOrder) error {
	if order != nil {
		order.DueAt = localTimePtr(order.DueAt)
		order.CompletedAt = localTimePtr(order.CompletedAt)
		order.VerifiedAt = localTimePtr(order.VerifiedAt)
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID 根据 ID 获取采样单，不存在返回 nil
func (r *GormSampleOrderRepository) GetByID(ctx context.Context, id uint) (*models.SampleOrder, error) {
	var order models.SampleOrder
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByCode 根据编号获取采样单
func (r *GormSampleOrderRepository) GetByCode(ctx context.Context, code string) (*models.SampleOrder, error) {
	var order models.SampleOrder
	if err := r.db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateWithVersion 条件更新：仅当版本一致时写入，并递增版本号
func (r *GormSampleOrderRepository) UpdateWithVersion(ctx context.Context, id uint, version uint64, updates map[string]interface{}) error {
	payload := make(map[string]interface{}, len(updates)+1)
	for key, value := range updates {
		payload[key] = localTimeValue(value)
	}
	payload["version"] = gorm.Expr("version + ?", 1)

	result := r.db.WithContext(ctx).
		Model(&models.SampleOrder{}).
		Where("id = ? AND version = ?", id, version).
		Updates(payload)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Delete 删除采样单（软删除，编号仍占用）
func (r *GormSampleOrderRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.SampleOrder{}, id).Error
}

// List 分页查询
func (r *GormSampleOrderRepository) List(ctx context.Context, filter SampleOrderListFilter) ([]models.SampleOrder, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SampleOrder{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))
	var orders []models.SampleOrder
	if err := query.Order("priority desc, created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListAll 不分页查询（统计使用）
func (r *GormSampleOrderRepository) ListAll(ctx context.Context, filter SampleOrderListFilter) ([]models.SampleOrder, error) {
	var orders []models.SampleOrder
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SampleOrder{}), filter)
	if err := query.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOverdue 查询已超过约定完成时间且未终结的采样单
func (r *GormSampleOrderRepository) ListOverdue(ctx context.Context, now time.Time, excludeStatuses []string) ([]models.SampleOrder, error) {
	query := r.db.WithContext(ctx).
		Where("due_at IS NOT NULL AND due_at < ?", now.Local())
	if len(excludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", excludeStatuses)
	}
	var orders []models.SampleOrder
	if err := query.Order("due_at asc, id asc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ExistsForClinicWorkContent 判断时间窗口内是否已存在同诊所同工作内容的采样单（诊所出现在任一明细即算）
func (r *GormSampleOrderRepository) ExistsForClinicWorkContent(ctx context.Context, clinicID, workContentID uint, from, to time.Time) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.SampleOrder{})
	err := r.whereClinic(query, clinicID).
		Where("work_content_id = ?", workContentID).
		Where("created_at >= ? AND created_at < ?", from.Local(), to.Local()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MaxCodeWithPrefix 查询指定前缀下序号最大的编号（包含已删除记录）
func (r *GormSampleOrderRepository) MaxCodeWithPrefix(ctx context.Context, prefix string) (string, error) {
	var order models.SampleOrder
	err := r.db.WithContext(ctx).Unscoped().
		Select("code").
		Where("code LIKE ?", prefix+"%").
		Order("LENGTH(code) desc, code desc").
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return order.Code, nil
}

// CountByStatus 状态分布统计
func (r *GormSampleOrderRepository) CountByStatus(ctx context.Context, filter SampleOrderListFilter) ([]SampleOrderStatusCount, error) {
	filter.Status = ""
	filter.Statuses = nil
	var rows []SampleOrderStatusCount
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SampleOrder{}), filter).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByAssignee 员工维度统计
func (r *GormSampleOrderRepository) CountByAssignee(ctx context.Context, filter SampleOrderListFilter, completedStatuses []string) ([]SampleOrderAssigneeCount, error) {
	filter.AssigneeID = 0
	var rows []SampleOrderAssigneeCount
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SampleOrder{}), filter).
		Where("assignee_id IS NOT NULL")
	if len(completedStatuses) > 0 {
		query = query.Select("assignee_id, COUNT(*) AS total, SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS completed", completedStatuses)
	} else {
		query = query.Select("assignee_id, COUNT(*) AS total, 0 AS completed")
	}
	if err := query.Group("assignee_id").Order("total desc, assignee_id asc").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// whereClinic 匹配主诊所或任一明细中的诊所
func (r *GormSampleOrderRepository) whereClinic(query *gorm.DB, clinicID uint) *gorm.DB {
	return query.Where("(clinic_id = ? OR "+jsonArrayHasValue(r.db, "clinic_items", "clinic_id")+")", clinicID, clinicID)
}

func (r *GormSampleOrderRepository) applyFilter(query *gorm.DB, filter SampleOrderListFilter) *gorm.DB {
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.AssigneeID != 0 {
		query = query.Where("assignee_id = ?", filter.AssigneeID)
	}
	if filter.ClinicID != 0 {
		query = r.whereClinic(query, filter.ClinicID)
	}
	if filter.DispatcherID != 0 {
		query = query.Where("dispatcher_id = ?", filter.DispatcherID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.Local())
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", filter.CreatedTo.Local())
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(query, []string{"code", "note"})
		query = query.Where("("+condition+")", repeatLikeArgs("%"+search+"%", argCount)...)
	}
	return query
}

// 时间列统一以本地时区写入，与查询条件中的 Local() 保持一致；
// sqlite 以带偏移量的文本存储时间，不同偏移量之间无法直接比较
func localTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	local := t.Local()
	return &local
}

func localTimeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.Local()
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Local()
	default:
		return value
	}
}
