package service

import (
	"context"
	"strings"
	"time"

	"github.com/phacogen-next/internal/cache"
	"github.com/phacogen-next/internal/config"
	"github.com/phacogen-next/internal/constants"
	"github.com/phacogen-next/internal/logger"
	"github.com/phacogen-next/internal/models"
	"github.com/phacogen-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 员工认证服务
type AuthService struct {
	cfg       *config.Config
	userRepo  repository.UserRepository
	loginLogs *UserLoginLogService
}

// NewAuthService 创建认证服务实例，loginLogs 为 nil 时不记录登录历史
func NewAuthService(cfg *config.Config, userRepo repository.UserRepository, loginLogs *UserLoginLogService) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo, loginLogs: loginLogs}
}

// HasSecret 是否已配置签名密钥
func (s *AuthService) HasSecret() bool {
	return s != nil && s.cfg != nil && strings.TrimSpace(s.cfg.JWT.SecretKey) != ""
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// JWTClaims JWT 声明
type JWTClaims struct {
	UserID       uint   `json:"user_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWT 生成 JWT Token
func (s *AuthService) GenerateJWT(user *models.User) (string, time.Time, error) {
	hours := s.cfg.JWT.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	claims := JWTClaims{
		UserID:       user.ID,
		Username:     user.Username,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT 解析 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrTokenInvalid
}

// Login 员工登录
func (s *AuthService) Login(ctx context.Context, username, password string, meta LoginMeta) (*models.User, string, time.Time, error) {
	username = strings.TrimSpace(username)
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		s.recordLogin(ctx, 0, username, constants.LoginLogFailReasonInternalError, meta)
		return nil, "", time.Time{}, err
	}
	if user == nil {
		s.recordLogin(ctx, 0, username, constants.LoginLogFailReasonInvalidCredentials, meta)
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		s.recordLogin(ctx, user.ID, username, constants.LoginLogFailReasonInvalidCredentials, meta)
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordLogin(ctx, user.ID, username, constants.LoginLogFailReasonUserDisabled, meta)
		return nil, "", time.Time{}, ErrUserDisabled
	}

	token, expiresAt, err := s.GenerateJWT(user)
	if err != nil {
		s.recordLogin(ctx, user.ID, username, constants.LoginLogFailReasonInternalError, meta)
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	if err := s.userRepo.TouchLogin(ctx, user.ID, now); err != nil {
		logger.Warnw("auth_touch_login_failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now
	_ = cache.SetStaffAuthState(ctx, cache.BuildStaffAuthState(user))
	s.recordLogin(ctx, user.ID, username, "", meta)
	return user, token, expiresAt, nil
}

// recordLogin 写入登录记录，failReason 为空表示成功；写入失败只记日志
func (s *AuthService) recordLogin(ctx context.Context, userID uint, username, failReason string, meta LoginMeta) {
	if s.loginLogs == nil {
		return
	}
	status := constants.LoginLogStatusSuccess
	if failReason != "" {
		status = constants.LoginLogStatusFailed
	}
	err := s.loginLogs.Record(ctx, RecordLoginInput{
		UserID:     userID,
		Username:   username,
		Status:     status,
		FailReason: failReason,
		Meta:       meta,
	})
	if err != nil {
		logger.Warnw("auth_login_log_failed", "user_id", userID, "status", status, "error", err)
	}
}

// ResolveAuthState 获取鉴权快照，优先读取缓存
func (s *AuthService) ResolveAuthState(ctx context.Context, userID uint) (*cache.StaffAuthState, error) {
	if state, hit, err := cache.GetStaffAuthState(ctx, userID); err == nil && hit {
		return state, nil
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	state := cache.BuildStaffAuthState(user)
	_ = cache.SetStaffAuthState(ctx, state)
	return state, nil
}
