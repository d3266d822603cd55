package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/phacogen-next/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceRoleWithPolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("driver", "/admin/sample-orders/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}

	allow, err := svc.EnforceRole("driver", "/api/v1/admin/sample-orders/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceRole("role:driver", "/api/v1/admin/sample-orders/42", "DELETE")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}

	if _, err := svc.EnforceRole("  ", "/admin/sample-orders", "GET"); err == nil {
		t.Fatalf("empty role should be rejected")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/sample-orders/:id", want: "/admin/sample-orders/:id"},
		{in: "/admin/sample-orders/:id", want: "/admin/sample-orders/:id"},
		{in: "admin/notifications", want: "/admin/notifications"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap should be repeatable: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:" + constants.RoleAuditor:    true,
		"role:" + constants.RoleStaff:      true,
		"role:" + constants.RoleDispatcher: true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	cases := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{constants.RoleAuditor, "/api/v1/admin/sample-orders/5", "GET", true},
		{constants.RoleAuditor, "/api/v1/admin/sample-orders/5/status", "PUT", false},
		{constants.RoleAuditor, "/api/v1/admin/notifications/9/read", "PUT", true},
		{constants.RoleAuditor, "/api/v1/admin/login-logs", "GET", true},
		{constants.RoleAuditor, "/api/v1/admin/users/7/login-logs", "GET", true},
		{constants.RoleAuditor, "/api/v1/admin/login-logs", "DELETE", false},
		{constants.RoleStaff, "/api/v1/admin/sample-orders/5/status", "PUT", true},
		{constants.RoleStaff, "/api/v1/admin/sample-orders/5/history", "GET", true},
		{constants.RoleStaff, "/api/v1/admin/sample-orders/5/assign", "PUT", false},
		{constants.RoleStaff, "/api/v1/admin/sample-orders", "POST", false},
		{constants.RoleDispatcher, "/api/v1/admin/sample-orders", "POST", true},
		{constants.RoleDispatcher, "/api/v1/admin/sample-orders/5/assign", "PUT", true},
		{constants.RoleDispatcher, "/api/v1/admin/sample-orders/5/status", "PUT", true},
		{constants.RoleDispatcher, "/api/v1/admin/sample-orders/auto-create", "POST", true},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(tc.role, tc.object, tc.action)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", tc.role, tc.action, tc.object, err)
		}
		if allow != tc.want {
			t.Fatalf("enforce %s %s %s = %v, want %v", tc.role, tc.action, tc.object, allow, tc.want)
		}
	}

	policies, err := svc.GetRolePolicies(constants.RoleStaff)
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("staff should carry 2 direct policies, got %d", len(policies))
	}
}

func TestGetImplicitRolePolicies(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	policies, err := svc.GetImplicitRolePolicies(constants.RoleDispatcher)
	if err != nil {
		t.Fatalf("get implicit policies failed: %v", err)
	}
	subjects := map[string]bool{}
	for _, policy := range policies {
		subjects[policy.Subject] = true
	}
	for _, role := range []string{constants.RoleDispatcher, constants.RoleStaff, constants.RoleAuditor} {
		if !subjects["role:"+role] {
			t.Fatalf("dispatcher should inherit policies from %s, got %+v", role, policies)
		}
	}
	for i := 1; i < len(policies); i++ {
		if policies[i-1].Object > policies[i].Object {
			t.Fatalf("policies should be sorted by object")
		}
	}

	direct, err := svc.GetRolePolicies(constants.RoleDispatcher)
	if err != nil {
		t.Fatalf("get direct policies failed: %v", err)
	}
	if len(direct) >= len(policies) {
		t.Fatalf("implicit set (%d) should be larger than direct set (%d)", len(policies), len(direct))
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := map[string]string{
		"staff":          "role:staff",
		" role:staff ":   "role:staff",
		"lab  assistant": "role:lab_assistant",
	}
	for in, want := range cases {
		got, err := NormalizeRole(in)
		if err != nil || got != want {
			t.Fatalf("NormalizeRole(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "  ", "role:"} {
		if _, err := NormalizeRole(bad); err == nil {
			t.Fatalf("NormalizeRole(%q) should fail", bad)
		}
	}

	var nilService *Service
	if _, err := nilService.ListRoles(); err == nil {
		t.Fatalf("nil service should report unavailable")
	}
}
