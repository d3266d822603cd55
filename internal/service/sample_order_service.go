package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"

	"gorm.io/gorm"
)

// SampleOrderService 采样单生命周期服务
type SampleOrderService struct {
	orderRepo        repository.SampleOrderRepository
	userRepo         repository.UserRepository
	clinicRepo       repository.ClinicRepository
	workContentRepo  repository.WorkContentRepository
	notificationRepo repository.NotificationRepository
	history          *OrderHistoryLog
	codes            *OrderCodeGenerator
	effects          *OrderEffectDispatcher
	cfg              config.OrderConfig
	loc              *time.Location
	now              func() time.Time
}

// NewSampleOrderService 创建采样单服务
func NewSampleOrderService(
	orderRepo repository.SampleOrderRepository,
	userRepo repository.UserRepository,
	clinicRepo repository.ClinicRepository,
	workContentRepo repository.WorkContentRepository,
	notificationRepo repository.NotificationRepository,
	history *OrderHistoryLog,
	codes *OrderCodeGenerator,
	effects *OrderEffectDispatcher,
	cfg config.OrderConfig,
) *SampleOrderService {
	return &SampleOrderService{
		orderRepo:        orderRepo,
		userRepo:         userRepo,
		clinicRepo:       clinicRepo,
		workContentRepo:  workContentRepo,
		notificationRepo: notificationRepo,
		history:          history,
		codes:            codes,
		effects:          effects,
		cfg:              cfg,
		loc:              cfg.Location(),
		now:              time.Now,
	}
}

// CreateOrderInput 创建采样单输入
type CreateOrderInput struct {
	DispatcherID  uint
	WorkContentID uint
	ClinicID      uint
	ClinicItems   []models.OrderClinicItem
	Note          string
	Priority      FlexBool
	DueAt         *time.Time
	MultiStop     bool
}

// StatusExtra 状态流转附带字段
type StatusExtra struct {
	ActorID            *uint
	Location           *models.GeoPoint
	CompletedAt        *time.Time
	CompletionPhotos   []string
	VerificationPhotos []string
	VerifyClinicID     *uint
	Extra              models.JSON // 仅写入审计载荷
}

// OrderPatch 通用字段更新，nil 表示不修改
type OrderPatch struct {
	WorkContentID *uint
	ClinicItems   []models.OrderClinicItem
	Note          *string
	Priority      *FlexBool
	DueAt         *time.Time
	ClearDueAt    bool
	AssigneeID    *uint
	Status        *string
	Location      *models.GeoPoint
	ActorID       *uint
	Extra         models.JSON
}

// OrderResult 生命周期操作结果
type OrderResult struct {
	Order       *models.SampleOrder `json:"order"`
	EmailStatus *EmailStatus        `json:"email_status,omitempty"`
}

// Create 创建采样单，编号冲突时有限次重试
func (s *SampleOrderService) Create(ctx context.Context, input CreateOrderInput) (*models.SampleOrder, error) {
	if input.DispatcherID == 0 {
		return nil, ErrDispatcherRequired
	}
	items, err := normalizeCreateItems(input)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	workContentID := input.WorkContentID
	if err := s.checkReferences(storeCtx, &workContentID, items); err != nil {
		return nil, err
	}

	maxRetries := s.cfg.MaxCodeRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	dispatcherID := input.DispatcherID
	var order *models.SampleOrder
	for attempt := 1; attempt <= maxRetries; attempt++ {
		code, err := s.codes.Next(storeCtx)
		if err != nil {
			return nil, err
		}
		candidate := &models.SampleOrder{
			Code:          code,
			Status:        constants.SampleOrderStatusAwaitingDispatch,
			ClinicID:      items[0].ClinicID,
			WorkContentID: input.WorkContentID,
			DispatcherID:  dispatcherID,
			ClinicItems:   items,
			Priority:      input.Priority.Bool(),
			MultiStop:     input.MultiStop,
			DueAt:         input.DueAt,
			Note:          strings.TrimSpace(input.Note),
		}
		err = s.withTx(storeCtx, func(tx *gorm.DB) error {
			if err := s.orderRepo.WithTx(tx).Create(storeCtx, candidate); err != nil {
				return err
			}
			_, err := s.history.WithTx(tx).Append(storeCtx, HistoryRecord{
				OrderID: candidate.ID,
				Status:  constants.SampleOrderStatusAwaitingDispatch,
				ActorID: &dispatcherID,
				Note:    historyNoteCreated,
			})
			return err
		})
		if err == nil {
			order = candidate
			break
		}
		if !isDuplicateKeyError(err) {
			return nil, fmt.Errorf("create sample order: %w", err)
		}
		logger.Warnw("sample_order_code_conflict", "code", code, "attempt", attempt)
		s.codes.Resync(storeCtx)
	}
	if order == nil {
		return nil, ErrOrderCodeExhausted
	}

	logger.Infow("sample_order_created", "order_id", order.ID, "code", order.Code, "dispatcher_id", dispatcherID)
	s.effects.Dispatch(ctx, []OrderEffect{{Kind: EffectNotifyCreated, Order: *order}})
	return order, nil
}

// Assign 指派员工并进入执行中；从终态或已完成状态指派会被拒绝
func (s *SampleOrderService) Assign(ctx context.Context, orderID, staffID, actorID uint) (*models.SampleOrder, error) {
	if staffID == 0 {
		return nil, ErrAssigneeRequired
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	staff, err := s.userRepo.GetByID(storeCtx, staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil || !staff.IsActive {
		return nil, ErrUserNotFound
	}

	var (
		updated  *models.SampleOrder
		previous string
	)
	err = s.withTx(storeCtx, func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		order, err := orders.GetByID(storeCtx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !isAssignableStatus(order.Status) {
			return ErrOrderStatusInvalid
		}
		previous = order.Status
		payload := models.JSON{"assignee_id": staffID}
		if actorID != 0 {
			payload["assigned_by"] = actorID
		}
		updated, err = s.commitTransition(storeCtx, tx, order, map[string]interface{}{
			"assignee_id": staffID,
			"status":      constants.SampleOrderStatusInProgress,
		}, HistoryRecord{
			PreviousStatus: &previous,
			Status:         constants.SampleOrderStatusInProgress,
			ActorID:        &staffID,
			Note:           historyNoteAssigned,
			Payload:        payload,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("sample_order_assigned", "order_id", updated.ID, "code", updated.Code, "assignee_id", staffID)
	effects := []OrderEffect{{Kind: EffectNotifyAssigned, Order: *updated, AssigneeID: staffID}}
	if previous != constants.SampleOrderStatusInProgress {
		effects = append(effects, OrderEffect{
			Kind:        EffectNotifyStatusChanged,
			Order:       *updated,
			Description: sampleOrderStatusLabel(constants.SampleOrderStatusInProgress),
		})
	}
	s.effects.Dispatch(ctx, effects)
	return updated, nil
}

// UpdateStatus 按状态机流转状态
func (s *SampleOrderService) UpdateStatus(ctx context.Context, orderID uint, newStatus string, extra StatusExtra) (*OrderResult, error) {
	return s.transition(ctx, orderID, newStatus, extra, "", nil)
}

// transition 状态流转的公共实现，precheck 在事务内对当前单据做附加校验
func (s *SampleOrderService) transition(ctx context.Context, orderID uint, newStatus string, extra StatusExtra, note string, precheck func(order *models.SampleOrder, updates map[string]interface{}) error) (*OrderResult, error) {
	status := normalizeSampleOrderStatus(newStatus)
	if !isKnownSampleOrderStatus(status) {
		return nil, ErrOrderStatusInvalid
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	var updated *models.SampleOrder
	err := s.withTx(storeCtx, func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByID(storeCtx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if !isTransitionAllowed(order.Status, status) {
			return ErrOrderStatusInvalid
		}
		updates := map[string]interface{}{"status": status}
		if precheck != nil {
			if err := precheck(order, updates); err != nil {
				return err
			}
		}
		payload := s.applyStatusExtra(order, status, extra, updates)
		previous := order.Status
		if note == "" {
			note = sampleOrderStatusNote(status)
		}
		updated, err = s.commitTransition(storeCtx, tx, order, updates, HistoryRecord{
			PreviousStatus: &previous,
			Status:         status,
			ActorID:        resolveActor(extra.ActorID, order),
			Note:           note,
			Payload:        payload,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("sample_order_status_updated", "order_id", updated.ID, "code", updated.Code, "status", status)
	report := s.effects.Dispatch(ctx, statusEffects(updated, status))
	return &OrderResult{Order: updated, EmailStatus: report.EmailStatus}, nil
}

// Update 通用更新；状态变化与执行员工变化分别触发对应的流水与通知
func (s *SampleOrderService) Update(ctx context.Context, orderID uint, patch OrderPatch) (*OrderResult, error) {
	var status string
	if patch.Status != nil {
		status = normalizeSampleOrderStatus(*patch.Status)
		if !isKnownSampleOrderStatus(status) {
			return nil, ErrOrderStatusInvalid
		}
	}
	var items models.OrderClinicItems
	if patch.ClinicItems != nil {
		normalized, err := normalizeClinicItems(patch.ClinicItems)
		if err != nil {
			return nil, err
		}
		items = normalized
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.checkReferences(storeCtx, patch.WorkContentID, items); err != nil {
		return nil, err
	}
	if patch.AssigneeID != nil && *patch.AssigneeID != 0 {
		staff, err := s.userRepo.GetByID(storeCtx, *patch.AssigneeID)
		if err != nil {
			return nil, err
		}
		if staff == nil || !staff.IsActive {
			return nil, ErrUserNotFound
		}
	}

	var (
		updated         *models.SampleOrder
		statusChanged   bool
		assigneeChanged bool
		newAssignee     uint
	)
	err := s.withTx(storeCtx, func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		order, err := orders.GetByID(storeCtx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		updates := map[string]interface{}{}
		if patch.WorkContentID != nil {
			updates["work_content_id"] = *patch.WorkContentID
		}
		if items != nil {
			updates["clinic_items"] = items
			updates["clinic_id"] = items[0].ClinicID
		}
		if patch.Note != nil {
			updates["note"] = strings.TrimSpace(*patch.Note)
		}
		if patch.Priority != nil {
			updates["priority"] = patch.Priority.Bool()
		}
		if patch.ClearDueAt {
			updates["due_at"] = nil
		} else if patch.DueAt != nil {
			updates["due_at"] = *patch.DueAt
		}
		if patch.AssigneeID != nil && *patch.AssigneeID != order.AssigneeValue() {
			newAssignee = *patch.AssigneeID
			assigneeChanged = newAssignee != 0
			if newAssignee == 0 {
				updates["assignee_id"] = nil
			} else {
				updates["assignee_id"] = newAssignee
			}
		}

		var payload models.JSON
		if status != "" && status != order.Status {
			if !isTransitionAllowed(order.Status, status) {
				return ErrOrderStatusInvalid
			}
			statusChanged = true
			updates["status"] = status
			payload = s.applyStatusExtra(order, status, StatusExtra{
				ActorID:  patch.ActorID,
				Location: patch.Location,
				Extra:    patch.Extra,
			}, updates)
		} else if patch.Location != nil {
			updates["location"] = patch.Location
		}

		if len(updates) == 0 {
			updated = order
			return nil
		}
		if err := orders.UpdateWithVersion(storeCtx, order.ID, order.Version, updates); err != nil {
			return mapVersionConflict(err)
		}
		if statusChanged {
			previous := order.Status
			actor := patch.ActorID
			if actor == nil && newAssignee != 0 {
				actor = &newAssignee
			}
			if _, err := s.history.WithTx(tx).Append(storeCtx, HistoryRecord{
				OrderID:        order.ID,
				PreviousStatus: &previous,
				Status:         status,
				ActorID:        resolveActor(actor, order),
				Note:           sampleOrderStatusNote(status),
				Payload:        payload,
			}); err != nil {
				return err
			}
		}
		updated, err = orders.GetByID(storeCtx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var effects []OrderEffect
	if statusChanged {
		effects = append(effects, statusEffects(updated, status)...)
	}
	if assigneeChanged {
		effects = append(effects, OrderEffect{Kind: EffectNotifyAssigned, Order: *updated, AssigneeID: newAssignee})
	}
	logger.Infow("sample_order_updated",
		"order_id", updated.ID,
		"code", updated.Code,
		"status_changed", statusChanged,
		"assignee_changed", assigneeChanged,
	)
	report := s.effects.Dispatch(ctx, effects)
	return &OrderResult{Order: updated, EmailStatus: report.EmailStatus}, nil
}

// commitTransition 版本校验写入并追加流水，返回更新后的单据
func (s *SampleOrderService) commitTransition(ctx context.Context, tx *gorm.DB, order *models.SampleOrder, updates map[string]interface{}, record HistoryRecord) (*models.SampleOrder, error) {
	orders := s.orderRepo.WithTx(tx)
	if err := orders.UpdateWithVersion(ctx, order.ID, order.Version, updates); err != nil {
		return nil, mapVersionConflict(err)
	}
	record.OrderID = order.ID
	if _, err := s.history.WithTx(tx).Append(ctx, record); err != nil {
		return nil, err
	}
	updated, err := orders.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}
	return updated, nil
}

// applyStatusExtra 写入状态相关字段并返回审计载荷
func (s *SampleOrderService) applyStatusExtra(order *models.SampleOrder, status string, extra StatusExtra, updates map[string]interface{}) models.JSON {
	payload := models.JSON{}
	now := s.now()
	if extra.Location != nil {
		updates["location"] = extra.Location
		payload["location"] = extra.Location
	}
	switch status {
	case constants.SampleOrderStatusCompleted:
		if order.CompletedAt == nil {
			completedAt := now
			if extra.CompletedAt != nil {
				completedAt = *extra.CompletedAt
			}
			updates["completed_at"] = completedAt
		}
		if len(extra.CompletionPhotos) > 0 {
			updates["completion_photos"] = models.StringArray(extra.CompletionPhotos)
			payload["completion_photos"] = extra.CompletionPhotos
		}
	case constants.SampleOrderStatusVerified:
		if order.VerifiedAt == nil {
			updates["verified_at"] = now
		}
		if len(extra.VerificationPhotos) > 0 {
			updates["verification_photos"] = models.StringArray(extra.VerificationPhotos)
			payload["verification_photos"] = extra.VerificationPhotos
		}
		if extra.VerifyClinicID != nil && *extra.VerifyClinicID != 0 {
			updates["verify_clinic_id"] = *extra.VerifyClinicID
			payload["verify_clinic_id"] = *extra.VerifyClinicID
		}
	}
	if len(extra.Extra) > 0 {
		payload["extra"] = extra.Extra
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}

// statusEffects 状态变化的通知，进入核验完成时追加完成邮件
func statusEffects(order *models.SampleOrder, status string) []OrderEffect {
	effects := []OrderEffect{{
		Kind:        EffectNotifyStatusChanged,
		Order:       *order,
		Description: sampleOrderStatusLabel(status),
	}}
	if status == constants.SampleOrderStatusVerified {
		effects = append(effects, OrderEffect{Kind: EffectCompletionEmail, Order: *order})
	}
	return effects
}

// resolveActor 显式操作人优先，否则回退到当前执行员工
func resolveActor(explicit *uint, order *models.SampleOrder) *uint {
	if explicit != nil && *explicit != 0 {
		actor := *explicit
		return &actor
	}
	if order != nil && order.AssigneeID != nil && *order.AssigneeID != 0 {
		actor := *order.AssigneeID
		return &actor
	}
	return nil
}

// checkReferences 校验工作内容与明细中的诊所均存在；workContentID 为 nil 时不校验工作内容
func (s *SampleOrderService) checkReferences(ctx context.Context, workContentID *uint, items models.OrderClinicItems) error {
	if workContentID != nil {
		if *workContentID == 0 {
			return ErrWorkContentRequired
		}
		item, err := s.workContentRepo.GetByID(ctx, *workContentID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrWorkContentNotFound
		}
	}
	ids := items.ClinicIDs()
	if len(ids) == 0 {
		return nil
	}
	clinics, err := s.clinicRepo.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(clinics) != len(ids) {
		return ErrClinicNotFound
	}
	return nil
}

func normalizeCreateItems(input CreateOrderInput) (models.OrderClinicItems, error) {
	if len(input.ClinicItems) > 0 {
		return normalizeClinicItems(input.ClinicItems)
	}
	if input.ClinicID == 0 {
		return nil, ErrOrderItemsEmpty
	}
	return models.OrderClinicItems{{
		ClinicID:      input.ClinicID,
		CollectionFee: models.NewMoneyFromInt(0),
		ShippingFee:   models.NewMoneyFromInt(0),
		ParkingFee:    models.NewMoneyFromInt(0),
		Photos:        models.StringArray{},
	}}, nil
}

func normalizeClinicItems(items []models.OrderClinicItem) (models.OrderClinicItems, error) {
	if len(items) == 0 {
		return nil, ErrOrderItemsEmpty
	}
	result := make(models.OrderClinicItems, 0, len(items))
	for _, item := range items {
		if item.ClinicID == 0 {
			return nil, ErrOrderItemInvalid
		}
		if item.CollectionFee.IsNegative() || item.ShippingFee.IsNegative() || item.ParkingFee.IsNegative() {
			return nil, ErrOrderItemInvalid
		}
		if item.Photos == nil {
			item.Photos = models.StringArray{}
		}
		result = append(result, item)
	}
	return result, nil
}

func mapVersionConflict(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrOrderConcurrentModified
	}
	return err
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}

func (s *SampleOrderService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout())
}

func (s *SampleOrderService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return models.DB.WithContext(ctx).Transaction(fn)
}
