package opsctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/provider"
	"github.com/phacogen-next/internal/service"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupOpsctlTest(t *testing.T) *Env {
	t.Helper()
	dsn := fmt.Sprintf("file:opsctl_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.MigrateWith(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{SecretKey: "opsctl-test-secret-0123456789abcdef"},
		Order: config.OrderConfig{
			CodePrefix:       constants.DefaultOrderCodePrefix,
			Timezone:         constants.DefaultTimezone,
			MaxCodeRetries:   5,
			EmailConcurrency: 1,
		},
	}
	return &Env{Config: cfg, Container: provider.NewContainer(cfg)}
}

func runCommand(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(func() (*Env, error) { return env, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedDemoDataIsRepeatable(t *testing.T) {
	env := setupOpsctlTest(t)
	hash := env.Container.AuthService.HashPassword

	first, err := SeedDemoData(models.DB, hash, "demo-pass")
	if err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	if len(first.Created) != 5 || len(first.Existing) != 0 {
		t.Fatalf("unexpected first report: %+v", first)
	}
	second, err := SeedDemoData(models.DB, hash, "demo-pass")
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if len(second.Created) != 0 || len(second.Existing) != 5 {
		t.Fatalf("second seed should only find existing rows: %+v", second)
	}

	var clinic models.Clinic
	if err := models.DB.Where("code = ?", "PK-DEMO").First(&clinic).Error; err != nil {
		t.Fatalf("load demo clinic failed: %v", err)
	}
	if clinic.StaffInChargeID == nil || len(clinic.AutoRules) != 1 {
		t.Fatalf("demo clinic should carry staff and one rule: %+v", clinic)
	}

	if _, err := SeedDemoData(nil, hash, "x"); err == nil {
		t.Fatalf("nil db should fail")
	}
}

func TestSeedCommandCreatesAdmin(t *testing.T) {
	env := setupOpsctlTest(t)
	out, err := runCommand(t, env, "seed", "--demo")
	if err != nil {
		t.Fatalf("seed command failed: %v", err)
	}
	if !strings.Contains(out, "user:dieuphoi") {
		t.Fatalf("seed output should list demo users, got %q", out)
	}
	var admins int64
	models.DB.Model(&models.User{}).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.is_admin = ?", true).
		Count(&admins)
	if admins != 1 {
		t.Fatalf("expected one admin, got %d", admins)
	}
}

func TestOrdersHistoryCommand(t *testing.T) {
	env := setupOpsctlTest(t)
	if _, err := SeedDemoData(models.DB, env.Container.AuthService.HashPassword, "demo-pass"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	var dispatcher models.User
	models.DB.Where("username = ?", "dieuphoi").First(&dispatcher)
	var clinic models.Clinic
	models.DB.Where("code = ?", "PK-DEMO").First(&clinic)
	var workContent models.WorkContent
	models.DB.First(&workContent)

	order, err := env.Container.SampleOrderService.Create(context.Background(), service.CreateOrderInput{
		DispatcherID:  dispatcher.ID,
		WorkContentID: workContent.ID,
		ClinicID:      clinic.ID,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	out, err := runCommand(t, env, "orders", "history", order.Code)
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	if !strings.Contains(out, order.Code) || !strings.Contains(out, "Tạo lệnh thu mẫu") {
		t.Fatalf("history output missing order details: %q", out)
	}

	if _, err := runCommand(t, env, "orders", "history", "TM-000000-999"); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("unknown code should report not found, got %v", err)
	}
	if _, err := runCommand(t, env, "orders", "history"); err == nil {
		t.Fatalf("missing code argument should fail")
	}
}

func TestSweepCommands(t *testing.T) {
	env := setupOpsctlTest(t)
	if _, err := SeedDemoData(models.DB, env.Container.AuthService.HashPassword, "demo-pass"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	var dispatcher models.User
	models.DB.Where("username = ?", "dieuphoi").First(&dispatcher)

	out, err := runCommand(t, env, "sweep", "auto-create", "--dispatcher", fmt.Sprint(dispatcher.ID))
	if err != nil {
		t.Fatalf("auto-create command failed: %v", err)
	}
	if !strings.Contains(out, "Đã tạo:") {
		t.Fatalf("auto-create output missing summary: %q", out)
	}

	out, err = runCommand(t, env, "sweep", "overdue")
	if err != nil {
		t.Fatalf("overdue command failed: %v", err)
	}
	if !strings.Contains(out, "Lệnh quá hạn: 0") {
		t.Fatalf("no order is overdue yet, got %q", out)
	}

	if _, err := runCommand(t, env, "sweep", "auto-create"); !errors.Is(err, service.ErrNoAdminAvailable) {
		t.Fatalf("auto-create without admin should fail with ErrNoAdminAvailable, got %v", err)
	}
}

func TestAuthzPoliciesCommand(t *testing.T) {
	env := setupOpsctlTest(t)
	out, err := runCommand(t, env, "authz", "policies", constants.RoleStaff)
	if err != nil {
		t.Fatalf("policies command failed: %v", err)
	}
	if !strings.Contains(out, "/admin/sample-orders/:id/status") {
		t.Fatalf("staff policies should include status updates, got %q", out)
	}
	out, err = runCommand(t, env, "authz", "policies", "--implicit", constants.RoleStaff)
	if err != nil {
		t.Fatalf("implicit policies command failed: %v", err)
	}
	if !strings.Contains(out, "/admin/sample-orders/:id/history") || !strings.Contains(out, "role:"+constants.RoleAuditor) {
		t.Fatalf("implicit staff policies should include inherited auditor rules, got %q", out)
	}
	out, err = runCommand(t, env, "authz", "policies")
	if err != nil {
		t.Fatalf("roles command failed: %v", err)
	}
	if !strings.Contains(out, "role:"+constants.RoleDispatcher) {
		t.Fatalf("roles output missing dispatcher, got %q", out)
	}
}

func TestLoaderFailureIsReturned(t *testing.T) {
	boom := errors.New("config missing")
	root := NewRootCmd(func() (*Env, error) { return nil, boom })
	root.SetArgs([]string{"sweep", "overdue"})
	root.SetOut(&bytes.Buffer{})
	if err := root.Execute(); !errors.Is(err, boom) {
		t.Fatalf("loader error should surface, got %v", err)
	}
}
