package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/phacogen-next/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// StaffAuthState 员工鉴权快照，避免每次请求查询用户与角色
type StaffAuthState struct {
	UserID       uint   `json:"user_id"`
	Username     string `json:"username"`
	RoleName     string `json:"role_name"`
	IsAdmin      bool   `json:"is_admin"`
	IsActive     bool   `json:"is_active"`
	TokenVersion uint64 `json:"token_version"`
	UpdatedAt    int64  `json:"updated_at"`
}

func staffAuthStateKey(userID uint) string {
	return fmt.Sprintf("auth:staff:%d", userID)
}

// BuildStaffAuthState 从员工模型构建鉴权快照
func BuildStaffAuthState(user *models.User) *StaffAuthState {
	if user == nil {
		return nil
	}
	state := &StaffAuthState{
		UserID:       user.ID,
		Username:     user.Username,
		IsActive:     user.IsActive,
		TokenVersion: user.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if user.Role != nil {
		state.RoleName = user.Role.Name
		state.IsAdmin = user.Role.IsAdmin
	}
	return state
}

// GetStaffAuthState 获取员工鉴权快照
func GetStaffAuthState(ctx context.Context, userID uint) (*StaffAuthState, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var state StaffAuthState
	hit, err := GetJSON(ctx, staffAuthStateKey(userID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetStaffAuthState 写入员工鉴权快照
func SetStaffAuthState(ctx context.Context, state *StaffAuthState) error {
	if state == nil || state.UserID == 0 {
		return nil
	}
	return SetJSON(ctx, staffAuthStateKey(state.UserID), state, authStateCacheTTL)
}
