package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/phacogen-next/internal/http/handlers/shared"
	"github.com/phacogen-next/internal/http/response"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// CreateSampleOrderRequest 创建采样单请求
type CreateSampleOrderRequest struct {
	WorkContentID uint                     `json:"work_content_id" binding:"required"`
	ClinicID      uint                     `json:"clinic_id"`
	ClinicItems   []models.OrderClinicItem `json:"clinic_items"`
	Note          string                   `json:"note"`
	Priority      service.FlexBool         `json:"priority"`
	DueAt         *time.Time               `json:"due_at"`
	MultiStop     bool                     `json:"multi_stop"`
}

// UpdateSampleOrderRequest 通用更新请求，缺省字段不修改
type UpdateSampleOrderRequest struct {
	WorkContentID *uint                    `json:"work_content_id"`
	ClinicItems   []models.OrderClinicItem `json:"clinic_items"`
	Note          *string                  `json:"note"`
	Priority      *service.FlexBool        `json:"priority"`
	DueAt         *time.Time               `json:"due_at"`
	ClearDueAt    bool                     `json:"clear_due_at"`
	AssigneeID    *uint                    `json:"assignee_id"`
	Status        *string                  `json:"status"`
	Location      *models.GeoPoint         `json:"location"`
	Extra         models.JSON              `json:"extra"`
}

// AssignSampleOrderRequest 指派请求
type AssignSampleOrderRequest struct {
	StaffID uint `json:"staff_id" binding:"required"`
}

// UpdateSampleOrderStatusRequest 状态流转请求
type UpdateSampleOrderStatusRequest struct {
	Status             string           `json:"status" binding:"required"`
	Location           *models.GeoPoint `json:"location"`
	CompletedAt        *time.Time       `json:"completed_at"`
	CompletionPhotos   []string         `json:"completion_photos"`
	VerificationPhotos []string         `json:"verification_photos"`
	VerifyClinicID     *uint            `json:"verify_clinic_id"`
	Extra              models.JSON      `json:"extra"`
}

// CompleteMultiStopRequest 多站点单完成请求
type CompleteMultiStopRequest struct {
	Photos []string `json:"photos"`
}

// VerifyClinicItemsRequest 多站点单逐诊所核验请求
type VerifyClinicItemsRequest struct {
	ClinicItems []models.OrderClinicItem `json:"clinic_items" binding:"required"`
}

// ResendCompletionEmailRequest 补发完成邮件请求
type ResendCompletionEmailRequest struct {
	ClinicIDs []uint `json:"clinic_ids"`
}

// ListSampleOrders 采样单列表
func (h *Handler) ListSampleOrders(c *gin.Context) {
	input, ok := readSampleOrderFilter(c)
	if !ok {
		return
	}
	orders, total, err := h.SampleOrderService.List(c.Request.Context(), input)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	page, pageSize := normalizePagination(input.Page, input.PageSize)
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// GetSampleOrder 采样单详情
func (h *Handler) GetSampleOrder(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.SampleOrderService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

// GetSampleOrderByCode 按编号查询采样单
func (h *Handler) GetSampleOrderByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	order, err := h.SampleOrderService.GetByCode(c.Request.Context(), code)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}

// CreateSampleOrder 创建采样单，派单人为当前员工
func (h *Handler) CreateSampleOrder(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	var req CreateSampleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.SampleOrderService.Create(c.Request.Context(), service.CreateOrderInput{
		DispatcherID:  staffID,
		WorkContentID: req.WorkContentID,
		ClinicID:      req.ClinicID,
		ClinicItems:   req.ClinicItems,
		Note:          req.Note,
		Priority:      req.Priority,
		DueAt:         req.DueAt,
		MultiStop:     req.MultiStop,
	})
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	requestLog(c).Infow("admin_sample_order_created", "order_id", order.ID, "code", order.Code, "staff_id", staffID)
	response.Success(c, order)
}

// UpdateSampleOrder 通用更新
func (h *Handler) UpdateSampleOrder(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSampleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.SampleOrderService.Update(c.Request.Context(), id, service.OrderPatch{
		WorkContentID: req.WorkContentID,
		ClinicItems:   req.ClinicItems,
		Note:          req.Note,
		Priority:      req.Priority,
		DueAt:         req.DueAt,
		ClearDueAt:    req.ClearDueAt,
		AssigneeID:    req.AssigneeID,
		Status:        req.Status,
		Location:      req.Location,
		ActorID:       &staffID,
		Extra:         req.Extra,
	})
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, result)
}

// AssignSampleOrder 指派执行员工
func (h *Handler) AssignSampleOrder(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req AssignSampleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.SampleOrderService.Assign(c.Request.Context(), id, req.StaffID, staffID)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, order)
}

// UpdateSampleOrderStatus 状态流转
func (h *Handler) UpdateSampleOrderStatus(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSampleOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.SampleOrderService.UpdateStatus(c.Request.Context(), id, req.Status, service.StatusExtra{
		ActorID:            &staffID,
		Location:           req.Location,
		CompletedAt:        req.CompletedAt,
		CompletionPhotos:   req.CompletionPhotos,
		VerificationPhotos: req.VerificationPhotos,
		VerifyClinicID:     req.VerifyClinicID,
		Extra:              req.Extra,
	})
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, result)
}

// CompleteMultiStopSampleOrder 多站点单完成
func (h *Handler) CompleteMultiStopSampleOrder(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req CompleteMultiStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.SampleOrderService.CompleteMultiStop(c.Request.Context(), id, req.Photos, staffID)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, result)
}

// VerifySampleOrderClinicItems 多站点单逐诊所核验
func (h *Handler) VerifySampleOrderClinicItems(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req VerifyClinicItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.SampleOrderService.VerifyWithClinicItems(c.Request.Context(), id, req.ClinicItems, staffID)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, result)
}

// ResendSampleOrderEmail 补发完成邮件
func (h *Handler) ResendSampleOrderEmail(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ResendCompletionEmailRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	status, err := h.SampleOrderService.ResendCompletionEmails(c.Request.Context(), id, req.ClinicIDs)
	if err != nil {
		respondServiceError(c, err, "error.order_update_failed")
		return
	}
	response.Success(c, status)
}

// DeleteSampleOrder 删除采样单（历史保留）
func (h *Handler) DeleteSampleOrder(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.SampleOrderService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "error.order_delete_failed")
		return
	}
	response.Success(c, nil)
}

// GetSampleOrderHistory 单据流转历史（时间升序）
func (h *Handler) GetSampleOrderHistory(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.SampleOrderService.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.order_fetch_failed")
		return
	}
	response.Success(c, entries)
}

// ListAllSampleOrderHistory 全局流转历史（最新在前）
func (h *Handler) ListAllSampleOrderHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := h.SampleOrderService.AllHistory(c.Request.Context(), limit)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.Success(c, entries)
}

// GetSampleOrderStats 统计汇总
func (h *Handler) GetSampleOrderStats(c *gin.Context) {
	input, ok := readSampleOrderFilter(c)
	if !ok {
		return
	}
	stats, err := h.SampleOrderService.Stats(c.Request.Context(), input)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.Success(c, stats)
}

// ListOverdueSampleOrders 当前超时未完成的采样单
func (h *Handler) ListOverdueSampleOrders(c *gin.Context) {
	orders, err := h.SampleOrderService.FindOverdue(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.Success(c, orders)
}

// NotifyOverdueSampleOrders 手动触发超时提醒
// 启用队列时投递一次巡检任务由 worker 执行，投递失败退回同步执行。
func (h *Handler) NotifyOverdueSampleOrders(c *gin.Context) {
	if h.QueueClient.Enabled() {
		err := h.QueueClient.EnqueueOverdueSweep()
		if err == nil || errors.Is(err, asynq.ErrDuplicateTask) {
			requestLog(c).Infow("admin_sample_order_overdue_enqueued", "duplicate", err != nil)
			response.Success(c, gin.H{"queued": true})
			return
		}
		requestLog(c).Warnw("admin_sample_order_overdue_enqueue_failed", "error", err)
	}
	result, err := h.SampleOrderService.SendOverdueNotifications(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_sweep_failed", err)
		return
	}
	response.Success(c, result)
}

// AutoCreateSampleOrders 手动触发自动建单，派单人为当前员工
func (h *Handler) AutoCreateSampleOrders(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	result, err := h.SampleOrderService.AutoCreateOrders(c.Request.Context(), staffID)
	if err != nil {
		respondServiceError(c, err, "error.order_sweep_failed")
		return
	}
	requestLog(c).Infow("admin_sample_order_auto_create",
		"staff_id", staffID,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	response.Success(c, result)
}

func readSampleOrderFilter(c *gin.Context) (service.ListSampleOrdersInput, bool) {
	page, pageSize := handlershared.ReadPagination(c)
	createdFrom, err := handlershared.ParseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return service.ListSampleOrdersInput{}, false
	}
	createdTo, err := handlershared.ParseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return service.ListSampleOrdersInput{}, false
	}
	return service.ListSampleOrdersInput{
		Page:         page,
		PageSize:     pageSize,
		Status:       c.Query("status"),
		Search:       c.Query("search"),
		AssigneeID:   handlershared.ParseUintQuery(c, "assignee_id"),
		ClinicID:     handlershared.ParseUintQuery(c, "clinic_id"),
		DispatcherID: handlershared.ParseUintQuery(c, "dispatcher_id"),
		CreatedFrom:  createdFrom,
		CreatedTo:    createdTo,
	}, true
}
