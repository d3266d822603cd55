package service

import (
	"context"
	"strings"
	"time"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"
)

// UserLoginLogService 员工登录记录服务
type UserLoginLogService struct {
	repo repository.UserLoginLogRepository
	now  func() time.Time
}

// NewUserLoginLogService 创建登录记录服务
func NewUserLoginLogService(repo repository.UserLoginLogRepository) *UserLoginLogService {
	return &UserLoginLogService{repo: repo, now: time.Now}
}

// LoginMeta 登录请求的客户端信息
type LoginMeta struct {
	ClientIP  string
	UserAgent string
	RequestID string
}

// RecordLoginInput 登录记录输入
type RecordLoginInput struct {
	UserID     uint
	Username   string
	Status     string
	FailReason string
	Meta       LoginMeta
}

// Record 写入一条登录记录
func (s *UserLoginLogService) Record(ctx context.Context, input RecordLoginInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status != constants.LoginLogStatusSuccess {
		status = constants.LoginLogStatusFailed
	}
	failReason := strings.ToLower(strings.TrimSpace(input.FailReason))
	if status == constants.LoginLogStatusSuccess {
		failReason = ""
	} else if failReason == "" {
		failReason = constants.LoginLogFailReasonInternalError
	}
	userAgent := strings.TrimSpace(input.Meta.UserAgent)

	return s.repo.Create(ctx, &models.UserLoginLog{
		UserID:     input.UserID,
		Username:   strings.TrimSpace(input.Username),
		Status:     status,
		FailReason: failReason,
		ClientIP:   strings.TrimSpace(input.Meta.ClientIP),
		UserAgent:  userAgent,
		DeviceType: deviceTypeFromUserAgent(userAgent),
		RequestID:  strings.TrimSpace(input.Meta.RequestID),
		CreatedAt:  s.now(),
	})
}

// List 查询登录记录；filter.UserID 为 0 时查询全部员工
func (s *UserLoginLogService) List(ctx context.Context, filter repository.UserLoginLogListFilter) ([]models.UserLoginLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.UserLoginLog{}, 0, nil
	}
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	return s.repo.List(ctx, filter)
}

// ListByUser 单个员工的登录记录
func (s *UserLoginLogService) ListByUser(ctx context.Context, userID uint, page, pageSize int) ([]models.UserLoginLog, int64, error) {
	if userID == 0 {
		return nil, 0, ErrUserNotFound
	}
	return s.List(ctx, repository.UserLoginLogListFilter{UserID: userID, Page: page, PageSize: pageSize})
}

func deviceTypeFromUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return ""
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")):
		return constants.DeviceTypeTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone"):
		return constants.DeviceTypeMobile
	default:
		return constants.DeviceTypeDesktop
	}
}
