package authz

import (
	"fmt"

	"github.com/phacogen-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵；Admin 角色带 is_admin 标记，不经过 RBAC
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleAuditor,
			Policies: []Policy{
				{Object: "/admin/sample-orders", Action: "GET"},
				{Object: "/admin/sample-orders/:id", Action: "GET"},
				{Object: "/admin/sample-orders/code/:code", Action: "GET"},
				{Object: "/admin/sample-orders/:id/history", Action: "GET"},
				{Object: "/admin/sample-orders/history/all", Action: "GET"},
				{Object: "/admin/sample-orders/stats/summary", Action: "GET"},
				{Object: "/admin/sample-orders/overdue", Action: "GET"},
				{Object: "/admin/notifications", Action: "*"},
				{Object: "/admin/notifications/unread-count", Action: "GET"},
				{Object: "/admin/notifications/read-all", Action: "PUT"},
				{Object: "/admin/notifications/:id", Action: "DELETE"},
				{Object: "/admin/notifications/:id/read", Action: "PUT"},
				{Object: "/admin/login-logs", Action: "GET"},
				{Object: "/admin/users/:id/login-logs", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleStaff,
			Inherits: []string{constants.RoleAuditor},
			Policies: []Policy{
				{Object: "/admin/sample-orders/:id/status", Action: "PUT"},
				{Object: "/admin/sample-orders/:id/complete-multi-stop", Action: "POST"},
			},
		},
		{
			Role:     constants.RoleDispatcher,
			Inherits: []string{constants.RoleStaff},
			Policies: []Policy{
				{Object: "/admin/sample-orders", Action: "POST"},
				{Object: "/admin/sample-orders/:id", Action: "PUT"},
				{Object: "/admin/sample-orders/:id", Action: "DELETE"},
				{Object: "/admin/sample-orders/:id/assign", Action: "PUT"},
				{Object: "/admin/sample-orders/:id/verify-items", Action: "POST"},
				{Object: "/admin/sample-orders/:id/resend-email", Action: "POST"},
				{Object: "/admin/sample-orders/overdue/notify", Action: "POST"},
				{Object: "/admin/sample-orders/auto-create", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略（可重复执行）
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
