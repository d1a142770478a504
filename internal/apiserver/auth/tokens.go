package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"content-platform/internal/shared/cache"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

var (
	// ErrInvalidToken access token 无效、过期或已被轮换
	ErrInvalidToken = errors.New("invalid access token")
	// ErrInvalidRefreshToken refresh token 不存在
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidCredentials 用户名不存在或密码错误（不区分两种情况）
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Recorder 认证指标记录
type Recorder interface {
	RecordLogin(result string)
	RecordTokenRotation(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string)         {}
func (nopRecorder) RecordTokenRotation(string) {}

// TokenPair 返回给客户端的令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService 令牌签发、校验与轮换
//
// 会话状态以凭据存储为准，SessionCache 只做加速；
// 缓存写入总在存储写入成功之后。
type TokenService struct {
	users    storage.UserStore
	sessions cache.SessionCache
	cfg      Config
	recorder Recorder
	now      func() time.Time
}

// NewTokenService 创建令牌服务，sessions 为 nil 时不使用缓存
func NewTokenService(users storage.UserStore, sessions cache.SessionCache, cfg Config) *TokenService {
	if sessions == nil {
		sessions = cache.NewNoOpCache()
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultConfig().AccessTokenTTL
	}
	return &TokenService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		recorder: nopRecorder{},
		now:      time.Now,
	}
}

// SetRecorder 设置指标记录器
func (s *TokenService) SetRecorder(r Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// Config 返回认证配置
func (s *TokenService) Config() Config {
	return s.cfg
}

// IssueTokenPair 生成新的会话 ID 和 refresh token
func (s *TokenService) IssueTokenPair() (storage.SessionTokens, error) {
	access, err := newOpaqueToken()
	if err != nil {
		return storage.SessionTokens{}, fmt.Errorf("generate session id: %w", err)
	}
	refresh, err := newOpaqueToken()
	if err != nil {
		return storage.SessionTokens{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return storage.SessionTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// SignAccessToken 为用户当前会话签发 access token
func (s *TokenService) SignAccessToken(user *model.User) (string, error) {
	return signClaims(s.cfg, user, s.now())
}

// Validate 校验 access token 并解析调用方
//
// 签名与过期校验通过后，还要求 jti 等于用户当前会话 ID。
// 客户端问题返回 ErrInvalidToken，存储故障返回包装后的原始错误。
func (s *TokenService) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := ParseToken(s.cfg, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessions.GetSession(ctx, claims.Subject)
	if err != nil {
		log.Printf("[auth] session cache read failed, falling back to store: %v", err)
	} else if session != nil {
		if session.SessionID != claims.ID {
			return nil, ErrInvalidToken
		}
		return &Identity{
			UserID:     claims.Subject,
			Username:   session.Username,
			Permission: model.Permission(session.Permission),
		}, nil
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user for token: %w", err)
	}
	if user.AccessToken == "" || user.AccessToken != claims.ID {
		return nil, ErrInvalidToken
	}

	s.cacheSession(ctx, user)
	return identityOf(user), nil
}

// RotateAccessToken 用 refresh token 换取新的 access token，refresh token 保持不变
func (s *TokenService) RotateAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrInvalidRefreshToken
	}
	user, err := s.users.GetUserByRefreshToken(ctx, refreshToken)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("load user by refresh token: %w", err)
	}

	token, err := s.rotateSession(ctx, user)
	if err != nil {
		return "", err
	}
	s.recorder.RecordTokenRotation("access")
	return token, nil
}

// RotateBothTokens 同时轮换会话 ID 和 refresh token（登出、改密、改名）
func (s *TokenService) RotateBothTokens(ctx context.Context, userID string) (*TokenPair, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	tokens, err := s.IssueTokenPair()
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateUserTokens(ctx, user.ID, tokens); err != nil {
		return nil, fmt.Errorf("persist tokens: %w", err)
	}
	s.recorder.RecordTokenRotation("both")
	return s.afterRotation(ctx, user, tokens)
}

// Login 校验用户名密码并开启新会话（refresh token 不变）
func (s *TokenService) Login(ctx context.Context, username, password string) (*TokenPair, *model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, model.NormalizeUsername(username))
	if errors.Is(err, storage.ErrNotFound) {
		// 仍执行一次哈希比较，避免通过响应时间枚举用户名
		CheckPassword(password, dummyHash)
		s.recorder.RecordLogin("failure")
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		s.recorder.RecordLogin("error")
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(password, user.Hash) {
		s.recorder.RecordLogin("failure")
		return nil, nil, ErrInvalidCredentials
	}

	access, err := s.rotateSession(ctx, user)
	if err != nil {
		s.recorder.RecordLogin("error")
		return nil, nil, err
	}
	s.recorder.RecordLogin("success")
	return &TokenPair{AccessToken: access, RefreshToken: user.RefreshToken}, user, nil
}

// CreateUser 创建用户并生成初始令牌
func (s *TokenService) CreateUser(ctx context.Context, username, password string, perm model.Permission, member string) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	tokens, err := s.IssueTokenPair()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           model.NewID(),
		Username:     model.NormalizeUsername(username),
		Hash:         hash,
		Permissions:  perm,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Member:       member,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword 更新密码并轮换全部令牌
func (s *TokenService) ChangePassword(ctx context.Context, userID, password string) (*TokenPair, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	tokens, err := s.IssueTokenPair()
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hash, tokens); err != nil {
		return nil, fmt.Errorf("persist password: %w", err)
	}
	s.recorder.RecordTokenRotation("both")
	return s.afterRotation(ctx, user, tokens)
}

// ChangeUsername 修改用户名并轮换全部令牌，用户名冲突时返回 storage.ErrDuplicate
func (s *TokenService) ChangeUsername(ctx context.Context, userID, username string) (*TokenPair, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	tokens, err := s.IssueTokenPair()
	if err != nil {
		return nil, err
	}
	username = model.NormalizeUsername(username)
	if err := s.users.UpdateUsername(ctx, user.ID, username, tokens); err != nil {
		return nil, fmt.Errorf("persist username: %w", err)
	}
	user.Username = username
	s.recorder.RecordTokenRotation("both")
	return s.afterRotation(ctx, user, tokens)
}

// InvalidateUser 删除用户后清理缓存会话
func (s *TokenService) InvalidateUser(ctx context.Context, userID string) {
	if err := s.sessions.DeleteSession(ctx, userID); err != nil {
		log.Printf("[auth] Failed to drop cached session for %s: %v", userID, err)
	}
}

// rotateSession 只替换会话 ID 并签发新 access token
func (s *TokenService) rotateSession(ctx context.Context, user *model.User) (string, error) {
	sessionID, err := newOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	if err := s.users.UpdateUserTokens(ctx, user.ID, storage.SessionTokens{AccessToken: sessionID}); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	user.AccessToken = sessionID
	s.cacheSession(ctx, user)
	return s.SignAccessToken(user)
}

func (s *TokenService) afterRotation(ctx context.Context, user *model.User, tokens storage.SessionTokens) (*TokenPair, error) {
	user.AccessToken = tokens.AccessToken
	user.RefreshToken = tokens.RefreshToken
	s.cacheSession(ctx, user)
	access, err := s.SignAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: tokens.RefreshToken}, nil
}

// cacheSession 写缓存失败时删除旧条目，避免旧会话继续命中
func (s *TokenService) cacheSession(ctx context.Context, user *model.User) {
	err := s.sessions.SetSession(ctx, user.ID, &cache.Session{
		SessionID:  user.AccessToken,
		Username:   user.Username,
		Permission: string(user.Permissions),
	})
	if err == nil {
		return
	}
	log.Printf("[auth] Failed to cache session for %s: %v", user.ID, err)
	if err := s.sessions.DeleteSession(ctx, user.ID); err != nil {
		log.Printf("[auth] Failed to drop stale session for %s: %v", user.ID, err)
	}
}

func identityOf(user *model.User) *Identity {
	return &Identity{
		UserID:     user.ID,
		Username:   user.Username,
		Permission: user.Permissions,
	}
}

// dummyHash 用户不存在时用于等时比较
var dummyHash, _ = HashPassword("content-platform-dummy-password")
