package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupNotificationRepositoryTest(t *testing.T) (*GormNotificationRepository, *GormUserRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:notification_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateWith(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewNotificationRepository(db), NewUserRepository(db), db
}

func TestNotificationRepositoryCreateIfAbsent(t *testing.T) {
	repo, _, _ := setupNotificationRepositoryTest(t)
	ctx := context.Background()
	orderID := uint(3)
	key := "overdue:3:9"

	build := func() *models.Notification {
		dedupe := key
		return &models.Notification{
			UserID:         9,
			Title:          "Lệnh thu mẫu quá hạn",
			Message:        "Lệnh TM-010124-001 đã quá hạn hoàn thành",
			Type:           constants.NotificationTypeOrderOverdue,
			RelatedOrderID: &orderID,
			DedupeKey:      &dedupe,
		}
	}

	created, err := repo.CreateIfAbsent(ctx, build())
	if err != nil || !created {
		t.Fatalf("first insert should create, created=%v err=%v", created, err)
	}
	created, err = repo.CreateIfAbsent(ctx, build())
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if created {
		t.Fatalf("second insert should be ignored")
	}
	exists, err := repo.ExistsForOrder(ctx, orderID, constants.NotificationTypeOrderOverdue)
	if err != nil || !exists {
		t.Fatalf("expected overdue notification to exist, exists=%v err=%v", exists, err)
	}
}

func TestNotificationRepositoryInboxScopedToUser(t *testing.T) {
	repo, _, _ := setupNotificationRepositoryTest(t)
	ctx := context.Background()
	items := []models.Notification{
		{UserID: 1, Title: "a", Message: "a", Type: constants.NotificationTypeOrderCreated},
		{UserID: 1, Title: "b", Message: "b", Type: constants.NotificationTypeOrderAssigned},
		{UserID: 2, Title: "c", Message: "c", Type: constants.NotificationTypeOrderCreated},
	}
	if err := repo.CreateBatch(ctx, items); err != nil {
		t.Fatalf("create batch failed: %v", err)
	}

	unread, err := repo.CountUnread(ctx, 1)
	if err != nil || unread != 2 {
		t.Fatalf("expected 2 unread, got %d err=%v", unread, err)
	}
	ok, err := repo.MarkRead(ctx, items[2].ID, 1)
	if err != nil || ok {
		t.Fatalf("user 1 must not mark user 2 notification, ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkRead(ctx, items[0].ID, 1)
	if err != nil || !ok {
		t.Fatalf("mark read failed, ok=%v err=%v", ok, err)
	}

	rows, total, err := repo.ListByUser(ctx, NotificationListFilter{UserID: 1, OnlyUnread: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || rows[0].ID != items[1].ID {
		t.Fatalf("unexpected unread list: total=%d rows=%+v", total, rows)
	}

	affected, err := repo.DeleteAll(ctx, 1)
	if err != nil || affected != 2 {
		t.Fatalf("delete all failed: affected=%d err=%v", affected, err)
	}
	remaining, err := repo.CountUnread(ctx, 2)
	if err != nil || remaining != 1 {
		t.Fatalf("user 2 inbox must stay intact, got %d err=%v", remaining, err)
	}
}

func TestUserRepositoryListAdminIDs(t *testing.T) {
	_, users, db := setupNotificationRepositoryTest(t)
	ctx := context.Background()
	if err := models.EnsureDefaultRoles(db); err != nil {
		t.Fatalf("ensure roles failed: %v", err)
	}
	var adminRole, staffRole models.Role
	db.Where("name = ?", constants.RoleAdmin).First(&adminRole)
	db.Where("name = ?", constants.RoleStaff).First(&staffRole)

	seed := []models.User{
		{StaffCode: "NV-01", Username: "admin-b", PasswordHash: "x", RoleID: adminRole.ID, IsActive: true},
		{StaffCode: "NV-02", Username: "staff", PasswordHash: "x", RoleID: staffRole.ID, IsActive: true},
		{StaffCode: "NV-03", Username: "admin-a", PasswordHash: "x", RoleID: adminRole.ID, IsActive: true},
		{StaffCode: "NV-04", Username: "admin-off", PasswordHash: "x", RoleID: adminRole.ID, IsActive: true},
	}
	for i := range seed {
		if err := users.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("create user failed: %v", err)
		}
	}
	if err := db.Model(&models.User{}).Where("id = ?", seed[3].ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	ids, err := users.ListAdminIDs(ctx)
	if err != nil {
		t.Fatalf("list admin ids failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != seed[0].ID || ids[1] != seed[2].ID {
		t.Fatalf("unexpected admin ids: %v", ids)
	}

	first, err := users.FirstAdmin(ctx)
	if err != nil || first == nil || first.ID != seed[0].ID {
		t.Fatalf("unexpected first admin: %+v err=%v", first, err)
	}
}
