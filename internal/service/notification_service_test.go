package service

import (
	"context"
	"errors"
	"testing"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"
)

func TestNotificationInboxLifecycle(t *testing.T) {
	env := setupSampleOrderServiceTest(t)
	ctx := context.Background()
	inbox := NewNotificationService(repository.NewNotificationRepository(env.db))

	order, err := env.svc.Create(ctx, CreateOrderInput{
		DispatcherID:  env.dispatcher.ID,
		WorkContentID: env.workContent.ID,
		ClinicID:      env.clinic.ID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := env.svc.Assign(ctx, order.ID, env.staff.ID, env.dispatcher.ID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	items, total, err := inbox.List(ctx, ListNotificationsInput{UserID: env.staff.ID})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	// 指派 + 状态变更
	if total != 2 || len(items) != 2 {
		t.Fatalf("staff should have 2 notifications, got %d", total)
	}
	for _, item := range items {
		if item.RelatedOrderID == nil || *item.RelatedOrderID != order.ID {
			t.Fatalf("notification should reference the order: %+v", item)
		}
	}

	unread, err := inbox.UnreadCount(ctx, env.staff.ID)
	if err != nil || unread != 2 {
		t.Fatalf("unexpected unread count: %d %v", unread, err)
	}
	if err := inbox.MarkRead(ctx, env.staff.ID, items[0].ID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if err := inbox.MarkRead(ctx, env.dispatcher.ID, items[1].ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("other users must not touch the inbox, got %v", err)
	}
	onlyUnread, _, err := inbox.List(ctx, ListNotificationsInput{UserID: env.staff.ID, OnlyUnread: true})
	if err != nil || len(onlyUnread) != 1 {
		t.Fatalf("expected one unread notification, got %d %v", len(onlyUnread), err)
	}

	if affected, err := inbox.MarkAllRead(ctx, env.staff.ID); err != nil || affected != 1 {
		t.Fatalf("mark all read: affected=%d err=%v", affected, err)
	}
	if err := inbox.Delete(ctx, env.staff.ID, items[0].ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if affected, err := inbox.DeleteAll(ctx, env.staff.ID); err != nil || affected != 1 {
		t.Fatalf("delete all: affected=%d err=%v", affected, err)
	}

	adminCount := env.count(t, &models.Notification{}, "user_id = ? AND type = ?", env.admin.ID, constants.NotificationTypeOrderCreated)
	if adminCount != 1 {
		t.Fatalf("admin inbox must be untouched, got %d", adminCount)
	}
}

func TestNotificationFanoutSkipsInactiveAdmins(t *testing.T) {
	env := setupSampleOrderServiceTest(t)
	ctx := context.Background()
	retired := seedSampleOrderUser(t, env.db, "NV-099", "admin_cu", constants.RoleAdmin)
	if err := env.db.Model(&retired).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate admin failed: %v", err)
	}
	fanout := NewNotificationFanout(repository.NewNotificationRepository(env.db), repository.NewUserRepository(env.db))

	// 管理员同时是派单人时只收到一条
	order := env.insertOrder(t, "TM-FANOUT-001", constants.SampleOrderStatusInProgress)
	order.DispatcherID = env.admin.ID
	sent, err := fanout.NotifyStatusChange(ctx, order, sampleOrderStatusLabel(constants.SampleOrderStatusCompleted))
	if err != nil {
		t.Fatalf("notify status change failed: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected staff + admin, got %d", sent)
	}
	if got := env.count(t, &models.Notification{}, "user_id = ?", retired.ID); got != 0 {
		t.Fatalf("inactive admin should not be notified, got %d", got)
	}

	first, err := fanout.NotifyOverdue(ctx, order)
	if err != nil || first != 2 {
		t.Fatalf("first overdue: sent=%d err=%v", first, err)
	}
	again, err := fanout.NotifyOverdue(ctx, order)
	if err != nil || again != 0 {
		t.Fatalf("overdue must be idempotent: sent=%d err=%v", again, err)
	}
}

func TestAuthServiceLoginAndParse(t *testing.T) {
	env := setupSampleOrderServiceTest(t)
	ctx := context.Background()
	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 2}}
	loginLogs := NewUserLoginLogService(repository.NewUserLoginLogRepository(env.db))
	auth := NewAuthService(cfg, repository.NewUserRepository(env.db), loginLogs)
	meta := LoginMeta{
		ClientIP:  "10.1.2.3",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148",
		RequestID: "req-login-1",
	}

	hash, err := auth.HashPassword("mat-khau-123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := env.db.Model(&env.staff).Update("password_hash", hash).Error; err != nil {
		t.Fatalf("update hash failed: %v", err)
	}

	if _, _, _, err := auth.Login(ctx, env.staff.Username, "sai", meta); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	user, token, expiresAt, err := auth.Login(ctx, " "+env.staff.Username+" ", "mat-khau-123", meta)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.LastLoginAt == nil || expiresAt.IsZero() || token == "" {
		t.Fatalf("unexpected login result: %+v %s %v", user, token, expiresAt)
	}
	claims, err := auth.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != env.staff.ID || claims.Username != env.staff.Username {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := NewAuthService(&config.Config{JWT: config.JWTConfig{SecretKey: "other"}}, nil, nil).ParseJWT(token); err == nil {
		t.Fatalf("token signed with another key must be rejected")
	}

	state, err := auth.ResolveAuthState(ctx, env.staff.ID)
	if err != nil {
		t.Fatalf("resolve auth state failed: %v", err)
	}
	if !state.IsActive || state.RoleName != constants.RoleStaff || state.IsAdmin {
		t.Fatalf("unexpected auth state: %+v", state)
	}

	if err := env.db.Model(&env.staff).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, _, _, err := auth.Login(ctx, env.staff.Username, "mat-khau-123", LoginMeta{}); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected disabled user, got %v", err)
	}
	if _, _, _, err := auth.Login(ctx, "khong-ton-tai", "x", meta); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}

	logs, total, err := loginLogs.ListByUser(ctx, env.staff.ID, 1, 10)
	if err != nil {
		t.Fatalf("list user login logs failed: %v", err)
	}
	if total != 3 || len(logs) != 3 {
		t.Fatalf("expected 3 login records for staff, got %d", total)
	}
	wantReasons := []string{
		constants.LoginLogFailReasonUserDisabled,
		"",
		constants.LoginLogFailReasonInvalidCredentials,
	}
	for i, want := range wantReasons {
		if logs[i].FailReason != want {
			t.Fatalf("record %d fail reason = %q, want %q", i, logs[i].FailReason, want)
		}
	}
	success := logs[1]
	if success.Status != constants.LoginLogStatusSuccess || success.ClientIP != "10.1.2.3" ||
		success.DeviceType != constants.DeviceTypeMobile || success.RequestID != "req-login-1" || success.Username != env.staff.Username {
		t.Fatalf("unexpected success record: %+v", success)
	}

	all, total, err := loginLogs.List(ctx, repository.UserLoginLogListFilter{Status: constants.LoginLogStatusFailed})
	if err != nil {
		t.Fatalf("list all login logs failed: %v", err)
	}
	if total != 3 || all[0].UserID != 0 || all[0].Username != "khong-ton-tai" {
		t.Fatalf("unexpected failed login records: total=%d first=%+v", total, all[0])
	}
	if _, _, err := loginLogs.ListByUser(ctx, 0, 1, 10); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for user 0, got %v", err)
	}
}

func TestDeviceTypeFromUserAgent(t *testing.T) {
	cases := map[string]string{
		"": "",
		"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)":                         constants.DeviceTypeTablet,
		"Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36":           constants.DeviceTypeTablet,
		"Mozilla/5.0 (Linux; Android 13; Pixel 7) Mobile Safari/537.36":         constants.DeviceTypeMobile,
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/1": constants.DeviceTypeDesktop,
	}
	for ua, want := range cases {
		if got := deviceTypeFromUserAgent(ua); got != want {
			t.Fatalf("deviceTypeFromUserAgent(%q) = %q, want %q", ua, got, want)
		}
	}
}
