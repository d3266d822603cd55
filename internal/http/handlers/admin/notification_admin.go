package admin

import (
	"strings"

	handlershared "github.com/phacogen-next/internal/http/handlers/shared"
	"github.com/phacogen-next/internal/http/response"
	"github.com/phacogen-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListNotifications 当前员工的站内信
func (h *Handler) ListNotifications(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ReadPagination(c)
	onlyUnread := strings.EqualFold(strings.TrimSpace(c.Query("unread")), "true")

	items, total, err := h.NotificationService.List(c.Request.Context(), service.ListNotificationsInput{
		UserID:     staffID,
		Page:       page,
		PageSize:   pageSize,
		OnlyUnread: onlyUnread,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.notification_failed", err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

// GetUnreadNotificationCount 未读数量
func (h *Handler) GetUnreadNotificationCount(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	count, err := h.NotificationService.UnreadCount(c.Request.Context(), staffID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.notification_failed", err)
		return
	}
	response.Success(c, gin.H{"count": count})
}

// MarkNotificationRead 标记单条已读
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.NotificationService.MarkRead(c.Request.Context(), staffID, id); err != nil {
		respondServiceError(c, err, "error.notification_failed")
		return
	}
	response.Success(c, nil)
}

// MarkAllNotificationsRead 全部已读
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	updated, err := h.NotificationService.MarkAllRead(c.Request.Context(), staffID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.notification_failed", err)
		return
	}
	response.Success(c, gin.H{"updated": updated})
}

// DeleteNotification 删除单条
func (h *Handler) DeleteNotification(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.NotificationService.Delete(c.Request.Context(), staffID, id); err != nil {
		respondServiceError(c, err, "error.notification_failed")
		return
	}
	response.Success(c, nil)
}

// DeleteAllNotifications 清空信箱
func (h *Handler) DeleteAllNotifications(c *gin.Context) {
	staffID, ok := getStaffID(c)
	if !ok {
		return
	}
	deleted, err := h.NotificationService.DeleteAll(c.Request.Context(), staffID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.notification_failed", err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}
