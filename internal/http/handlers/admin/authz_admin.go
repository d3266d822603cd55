package admin

import (
	"strings"

	"github.com/phacogen-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListAuthzRoles 列出 RBAC 角色
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 角色策略，implicit=true 时包含继承所得
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := strings.TrimSpace(c.Param("role"))
	lookup := h.AuthzService.GetRolePolicies
	if c.Query("implicit") == "true" {
		lookup = h.AuthzService.GetImplicitRolePolicies
	}
	policies, err := lookup(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	response.Success(c, policies)
}
