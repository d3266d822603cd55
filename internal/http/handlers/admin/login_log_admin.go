package admin

import (
	"strings"

	handlershared "github.com/phacogen-next/internal/http/handlers/shared"
	"github.com/phacogen-next/internal/http/response"
	"github.com/phacogen-next/internal/repository"
	"github.com/phacogen-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListLoginLogs 全部员工的登录记录，可按 user_id / status / ip 过滤
func (h *Handler) ListLoginLogs(c *gin.Context) {
	page, pageSize := handlershared.ReadPagination(c)
	logs, total, err := h.UserLoginLogService.List(c.Request.Context(), repository.UserLoginLogListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   handlershared.ParseUintQuery(c, "user_id"),
		Status:   strings.ToLower(strings.TrimSpace(c.Query("status"))),
		ClientIP: strings.TrimSpace(c.Query("ip")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.login_log_failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.NewPagination(page, pageSize, total))
}

// ListUserLoginLogs 单个员工的登录记录
func (h *Handler) ListUserLoginLogs(c *gin.Context) {
	userID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	user, err := h.UserRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.login_log_failed", err)
		return
	}
	if user == nil {
		respondServiceError(c, service.ErrUserNotFound, "error.login_log_failed")
		return
	}
	page, pageSize := handlershared.ReadPagination(c)
	logs, total, err := h.UserLoginLogService.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondServiceError(c, err, "error.login_log_failed")
		return
	}
	response.SuccessWithPage(c, logs, response.NewPagination(page, pageSize, total))
}
