package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type routerTestEnv struct {
	engine    *gin.Engine
	db        *gorm.DB
	container *provider.Container
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	return setupRouterTestWith(t, nil)
}

func setupRouterTestWith(t *testing.T, mutate func(cfg *config.Config)) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	if err := models.EnsureDefaultRoles(db); err != nil {
		t.Fatalf("ensure roles failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{SecretKey: "router-test-secret-0123456789abcdef", ExpireHours: 1},
		Order: config.OrderConfig{
			CodePrefix:       constants.DefaultOrderCodePrefix,
			Timezone:         constants.DefaultTimezone,
			MaxCodeRetries:   5,
			EmailConcurrency: 1,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	container := provider.NewContainer(cfg)
	t.Cleanup(container.Close)
	return &routerTestEnv{
		engine:    SetupRouter(cfg, container),
		db:        db,
		container: container,
	}
}

func (env *routerTestEnv) seedUser(t *testing.T, username, roleName string) models.User {
	t.Helper()
	var role models.Role
	if err := env.db.Where("name = ?", roleName).First(&role).Error; err != nil {
		t.Fatalf("load role failed: %v", err)
	}
	hash, err := env.container.AuthService.HashPassword("matkhau-123")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	user := models.User{
		StaffCode:    "NV-" + username,
		Username:     username,
		PasswordHash: hash,
		RoleID:       role.ID,
		IsActive:     true,
	}
	if err := env.db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (env *routerTestEnv) do(t *testing.T, method, path, token string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %s %s failed: %v body=%s", method, path, err, w.Body.String())
	}
	return resp
}

func (env *routerTestEnv) login(t *testing.T, username string) string {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": "matkhau-123"})
	if resp.StatusCode != 0 {
		t.Fatalf("login %s failed: %+v", username, resp)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("login response missing token: %s", string(resp.Data))
	}
	return data.Token
}

func TestSampleOrderRoutesEnforceRoles(t *testing.T) {
	env := setupRouterTest(t)
	env.seedUser(t, "dieuphoi", constants.RoleDispatcher)
	staff := env.seedUser(t, "nhanvien", constants.RoleStaff)
	env.seedUser(t, "quantri", constants.RoleAdmin)

	workContent := models.WorkContent{Name: "Thu mẫu"}
	if err := env.db.Create(&workContent).Error; err != nil {
		t.Fatalf("create work content failed: %v", err)
	}
	clinic := models.Clinic{Code: "PK-09", Name: "Phòng khám Hòa Bình", IsActive: true}
	if err := env.db.Create(&clinic).Error; err != nil {
		t.Fatalf("create clinic failed: %v", err)
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/admin/sample-orders", "", nil); resp.StatusCode != 401 {
		t.Fatalf("missing token want 401 got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/admin/sample-orders", "broken", nil); resp.StatusCode != 401 {
		t.Fatalf("invalid token want 401 got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "dieuphoi", "password": "sai"}); resp.StatusCode != 401 {
		t.Fatalf("wrong password want 401 got %d", resp.StatusCode)
	}

	dispatcherToken := env.login(t, "dieuphoi")
	staffToken := env.login(t, "nhanvien")
	adminToken := env.login(t, "quantri")

	createBody := gin.H{"work_content_id": workContent.ID, "clinic_id": clinic.ID, "priority": "true"}
	if resp := env.do(t, http.MethodPost, "/api/v1/admin/sample-orders", staffToken, createBody); resp.StatusCode != 403 {
		t.Fatalf("staff create want 403 got %d", resp.StatusCode)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/admin/sample-orders", dispatcherToken, createBody)
	if resp.StatusCode != 0 {
		t.Fatalf("dispatcher create failed: %+v", resp)
	}
	var order models.SampleOrder
	if err := json.Unmarshal(resp.Data, &order); err != nil {
		t.Fatalf("decode order failed: %v", err)
	}
	if order.Status != constants.SampleOrderStatusAwaitingDispatch || !order.Priority {
		t.Fatalf("unexpected created order: %+v", order)
	}

	orderPath := fmt.Sprintf("/api/v1/admin/sample-orders/%d", order.ID)
	if resp := env.do(t, http.MethodPut, orderPath+"/assign", dispatcherToken, gin.H{"staff_id": staff.ID}); resp.StatusCode != 0 {
		t.Fatalf("assign failed: %+v", resp)
	}
	if resp := env.do(t, http.MethodPut, orderPath+"/status", staffToken, gin.H{"status": constants.SampleOrderStatusVerified}); resp.StatusCode != 400 {
		t.Fatalf("illegal transition want 400 got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPut, orderPath+"/status", staffToken, gin.H{"status": constants.SampleOrderStatusCompleted}); resp.StatusCode != 0 {
		t.Fatalf("staff status update failed: %+v", resp)
	}

	resp = env.do(t, http.MethodGet, orderPath+"/history", staffToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("history failed: %+v", resp)
	}
	var history []models.SampleOrderHistory
	if err := json.Unmarshal(resp.Data, &history); err != nil {
		t.Fatalf("decode history failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/admin/sample-orders/code/"+order.Code, staffToken, nil); resp.StatusCode != 0 {
		t.Fatalf("get by code failed: %+v", resp)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/admin/sample-orders/999999", staffToken, nil); resp.StatusCode != 404 {
		t.Fatalf("missing order want 404 got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodDelete, orderPath, staffToken, nil); resp.StatusCode != 403 {
		t.Fatalf("staff delete want 403 got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/admin/notifications/unread-count", staffToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("unread count failed: %+v", resp)
	}
	var unread struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(resp.Data, &unread); err != nil || unread.Count == 0 {
		t.Fatalf("staff should have unread notifications, got %s", string(resp.Data))
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/admin/authz/permissions", staffToken, nil); resp.StatusCode != 403 {
		t.Fatalf("staff permission catalog want 403 got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/v1/admin/authz/permissions", adminToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("admin permission catalog failed: %+v", resp)
	}
	var catalog []adminPermissionCatalogItem
	if err := json.Unmarshal(resp.Data, &catalog); err != nil || len(catalog) == 0 {
		t.Fatalf("permission catalog should not be empty: %s", string(resp.Data))
	}
	if resp := env.do(t, http.MethodDelete, orderPath, adminToken, nil); resp.StatusCode != 0 {
		t.Fatalf("admin delete failed: %+v", resp)
	}
}

func TestLoginLogRoutes(t *testing.T) {
	env := setupRouterTest(t)
	staff := env.seedUser(t, "nhanvien", constants.RoleStaff)
	env.seedUser(t, "kiemtoan", constants.RoleAuditor)

	if resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "nhanvien", "password": "sai"}); resp.StatusCode != 401 {
		t.Fatalf("wrong password want 401 got %d", resp.StatusCode)
	}
	env.login(t, "nhanvien")
	auditorToken := env.login(t, "kiemtoan")

	if resp := env.do(t, http.MethodGet, "/api/v1/admin/login-logs", "", nil); resp.StatusCode != 401 {
		t.Fatalf("missing token want 401 got %d", resp.StatusCode)
	}

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/users/%d/login-logs", staff.ID), auditorToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("user login logs failed: %+v", resp)
	}
	var logs []models.UserLoginLog
	if err := json.Unmarshal(resp.Data, &logs); err != nil {
		t.Fatalf("decode login logs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 login records for staff, got %d", len(logs))
	}
	if logs[0].Status != constants.LoginLogStatusSuccess || logs[1].FailReason != constants.LoginLogFailReasonInvalidCredentials {
		t.Fatalf("unexpected login records: %+v", logs)
	}
	if logs[0].ClientIP == "" || logs[0].RequestID == "" {
		t.Fatalf("login record should carry client ip and request id: %+v", logs[0])
	}

	resp = env.do(t, http.MethodGet, "/api/v1/admin/login-logs?status=failed", auditorToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("all login logs failed: %+v", resp)
	}
	if err := json.Unmarshal(resp.Data, &logs); err != nil || len(logs) != 1 {
		t.Fatalf("expected 1 failed login record, got %s", string(resp.Data))
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/admin/users/999999/login-logs", auditorToken, nil); resp.StatusCode != 404 {
		t.Fatalf("unknown user want 404 got %d", resp.StatusCode)
	}
}

func TestNotifyOverdueFallsBackWhenQueueUnreachable(t *testing.T) {
	env := setupRouterTestWith(t, func(cfg *config.Config) {
		cfg.Queue = config.QueueConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
	})
	if !env.container.QueueClient.Enabled() {
		t.Fatalf("queue client should be enabled")
	}
	env.seedUser(t, "dieuphoi", constants.RoleDispatcher)
	env.seedUser(t, "nhanvien", constants.RoleStaff)
	dispatcherToken := env.login(t, "dieuphoi")
	staffToken := env.login(t, "nhanvien")

	if resp := env.do(t, http.MethodPost, "/api/v1/admin/sample-orders/overdue/notify", staffToken, nil); resp.StatusCode != 403 {
		t.Fatalf("staff overdue notify want 403 got %d", resp.StatusCode)
	}
	resp := env.do(t, http.MethodPost, "/api/v1/admin/sample-orders/overdue/notify", dispatcherToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("overdue notify failed: %+v", resp)
	}
	var result struct {
		Queued  bool `json:"queued"`
		Checked *int `json:"checked"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode overdue result failed: %v", err)
	}
	if result.Queued || result.Checked == nil {
		t.Fatalf("unreachable queue should fall back to an inline sweep, got %s", string(resp.Data))
	}
}

func TestHealthRoute(t *testing.T) {
	env := setupRouterTest(t)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health want 200 got %d", w.Code)
	}
}

func TestDeriveAdminPermissionModule(t *testing.T) {
	cases := map[string]string{
		"/admin/sample-orders/:id": "sample-orders",
		"/admin/notifications":     "notifications",
		"/admin":                   "admin",
		"":                         "system",
	}
	for in, want := range cases {
		if got := deriveAdminPermissionModule(in); got != want {
			t.Fatalf("module of %q want %q got %q", in, want, got)
		}
	}
}
