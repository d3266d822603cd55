package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/queue"
	"github.com/phacogen-next/internal/repository"

	"golang.org/x/sync/errgroup"
)

// OrderEffectKind 提交后执行的副作用类型
type OrderEffectKind string

const (
	EffectNotifyCreated       OrderEffectKind = "notify_created"
	EffectNotifyStatusChanged OrderEffectKind = "notify_status_changed"
	EffectNotifyAssigned      OrderEffectKind = "notify_assigned"
	EffectNotifyOverdue       OrderEffectKind = "notify_overdue"
	EffectCompletionEmail     OrderEffectKind = "completion_email"
)

// OrderEffect 生命周期操作产出的副作用，事务提交后按顺序执行
type OrderEffect struct {
	Kind        OrderEffectKind
	Order       models.SampleOrder
	AssigneeID  uint
	Description string
	ClinicIDs   []uint
}

// EmailFailure 单个诊所的发送失败
type EmailFailure struct {
	ClinicID   uint   `json:"clinic_id"`
	ClinicName string `json:"clinic_name"`
	Error      string `json:"error"`
}

// EmailStatus 完成邮件的汇总结果（尽力而为，不影响状态流转）
type EmailStatus struct {
	Success  bool           `json:"success"`
	Sent     int            `json:"sent"`
	Total    int            `json:"total"`
	Message  string         `json:"message"`
	Failures []EmailFailure `json:"failures,omitempty"`
}

// EffectReport 副作用执行结果
type EffectReport struct {
	Notified    int
	EmailStatus *EmailStatus
	Errors      []error
}

// OrderEffectDispatcher 执行通知与邮件副作用
type OrderEffectDispatcher struct {
	fanout      *NotificationFanout
	mailer      CompletionMailer
	clinicRepo  repository.ClinicRepository
	userRepo    repository.UserRepository
	queueClient *queue.Client
	timeout     time.Duration
	concurrency int
}

// NewOrderEffectDispatcher 创建副作用执行器
func NewOrderEffectDispatcher(fanout *NotificationFanout, mailer CompletionMailer, clinicRepo repository.ClinicRepository, userRepo repository.UserRepository, queueClient *queue.Client, timeout time.Duration, concurrency int) *OrderEffectDispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &OrderEffectDispatcher{
		fanout:      fanout,
		mailer:      mailer,
		clinicRepo:  clinicRepo,
		userRepo:    userRepo,
		queueClient: queueClient,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// Dispatch 按顺序执行副作用；失败只记录，不回滚已提交的状态
func (d *OrderEffectDispatcher) Dispatch(ctx context.Context, effects []OrderEffect) EffectReport {
	report := EffectReport{}
	if len(effects) == 0 {
		return report
	}
	if ctx == nil {
		ctx = context.Background()
	}
	effectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	for i := range effects {
		effect := effects[i]
		order := effect.Order
		var (
			count int
			err   error
		)
		switch effect.Kind {
		case EffectNotifyCreated:
			count, err = d.fanout.NotifyCreated(effectCtx, &order)
		case EffectNotifyStatusChanged:
			count, err = d.fanout.NotifyStatusChange(effectCtx, &order, effect.Description)
		case EffectNotifyAssigned:
			count, err = d.fanout.NotifyAssigned(effectCtx, &order, effect.AssigneeID)
		case EffectNotifyOverdue:
			count, err = d.fanout.NotifyOverdue(effectCtx, &order)
		case EffectCompletionEmail:
			status := d.SendCompletionEmails(effectCtx, &order, effect.ClinicIDs)
			report.EmailStatus = &status
			if len(status.Failures) > 0 {
				d.enqueueEmailRetry(&order, status.Failures)
			}
			continue
		default:
			err = fmt.Errorf("unknown order effect %q", effect.Kind)
		}
		report.Notified += count
		if err != nil {
			report.Errors = append(report.Errors, err)
			logger.Warnw("sample_order_effect_failed",
				"order_id", order.ID,
				"code", order.Code,
				"effect", string(effect.Kind),
				"error", err,
			)
		}
	}
	return report
}

// SendCompletionEmails 向采样单诊所发送完成邮件，clinicIDs 为空时发送全部
func (d *OrderEffectDispatcher) SendCompletionEmails(ctx context.Context, order *models.SampleOrder, clinicIDs []uint) EmailStatus {
	targets, err := d.resolveEmailTargets(ctx, order, clinicIDs)
	if err != nil {
		logger.Warnw("sample_order_email_targets_failed", "order_id", order.ID, "error", err)
		return EmailStatus{Message: err.Error()}
	}
	if len(targets) == 0 {
		return EmailStatus{Message: "Không có phòng khám nào để gửi email"}
	}

	employeeName := ""
	if assigneeID := order.AssigneeValue(); assigneeID != 0 && d.userRepo != nil {
		if user, err := d.userRepo.GetByID(ctx, assigneeID); err == nil && user != nil {
			employeeName = user.DisplayName()
		}
	}
	completedAt := time.Now()
	if order.VerifiedAt != nil {
		completedAt = *order.VerifiedAt
	} else if order.CompletedAt != nil {
		completedAt = *order.CompletedAt
	}

	var (
		mu       sync.Mutex
		sent     int
		failures []EmailFailure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			err := d.sendOne(gctx, order, target, completedAt, employeeName)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warnw("sample_order_email_failed",
					"order_id", order.ID,
					"code", order.Code,
					"clinic_id", target.clinic.ID,
					"error", err,
				)
				failures = append(failures, EmailFailure{ClinicID: target.clinic.ID, ClinicName: target.clinic.Name, Error: err.Error()})
				return nil
			}
			sent++
			return nil
		})
	}
	_ = g.Wait()

	status := EmailStatus{
		Sent:     sent,
		Total:    len(targets),
		Failures: sortEmailFailures(failures),
		Message:  fmt.Sprintf("Đã gửi email đến %d phòng khám", sent),
	}
	status.Success = status.Total > 0 && len(status.Failures) == 0
	logger.Infow("sample_order_email_dispatched",
		"order_id", order.ID,
		"code", order.Code,
		"sent", status.Sent,
		"total", status.Total,
	)
	return status
}

type emailTarget struct {
	clinic models.Clinic
	item   models.OrderClinicItem
}

func (d *OrderEffectDispatcher) resolveEmailTargets(ctx context.Context, order *models.SampleOrder, clinicIDs []uint) ([]emailTarget, error) {
	selected := map[uint]struct{}{}
	for _, id := range clinicIDs {
		selected[id] = struct{}{}
	}
	ids := make([]uint, 0, len(order.ClinicItems))
	for _, id := range order.ClinicItems.ClinicIDs() {
		if len(selected) > 0 {
			if _, ok := selected[id]; !ok {
				continue
			}
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	clinics, err := d.clinicRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Clinic, len(clinics))
	for _, clinic := range clinics {
		byID[clinic.ID] = clinic
	}
	targets := make([]emailTarget, 0, len(ids))
	seen := map[uint]struct{}{}
	for _, item := range order.ClinicItems {
		if _, ok := seen[item.ClinicID]; ok {
			continue
		}
		clinic, ok := byID[item.ClinicID]
		if !ok || clinic.Email == "" {
			continue
		}
		seen[item.ClinicID] = struct{}{}
		targets = append(targets, emailTarget{clinic: clinic, item: item})
	}
	return targets, nil
}

func (d *OrderEffectDispatcher) sendOne(ctx context.Context, order *models.SampleOrder, target emailTarget, completedAt time.Time, employeeName string) error {
	if d.mailer == nil {
		return ErrEmailServiceDisabled
	}
	base := CompletionEmailInput{
		ClinicEmail:  target.clinic.Email,
		ClinicName:   target.clinic.Name,
		OrderCode:    order.Code,
		CompletedAt:  completedAt,
		EmployeeName: employeeName,
	}
	// 标准单未录入费用时只发送收样通知
	if !order.IsMultiStop() && target.item.Total().IsZero() {
		return d.mailer.SendCompletionEmail(ctx, base)
	}
	photos := []string(target.item.Photos)
	if len(photos) == 0 {
		photos = order.VerificationPhotos
	}
	return d.mailer.SendMultiFeeCompletionEmail(ctx, MultiFeeEmailInput{
		CompletionEmailInput: base,
		CollectionFee:        target.item.CollectionFee,
		ShippingFee:          target.item.ShippingFee,
		ParkingFee:           target.item.ParkingFee,
		Photos:               photos,
	})
}

func (d *OrderEffectDispatcher) enqueueEmailRetry(order *models.SampleOrder, failures []EmailFailure) {
	if !d.queueClient.Enabled() {
		return
	}
	ids := make([]uint, 0, len(failures))
	for _, failure := range failures {
		ids = append(ids, failure.ClinicID)
	}
	if err := d.queueClient.EnqueueCompletionEmail(queue.CompletionEmailPayload{OrderID: order.ID, ClinicIDs: ids}); err != nil {
		logger.Warnw("sample_order_email_retry_enqueue_failed", "order_id", order.ID, "error", err)
		return
	}
	logger.Infow("sample_order_email_retry_enqueued", "order_id", order.ID, "clinic_ids", ids)
}

func sortEmailFailures(failures []EmailFailure) []EmailFailure {
	sort.Slice(failures, func(i, j int) bool { return failures[i].ClinicID < failures[j].ClinicID })
	return failures
}
