package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"content-platform/internal/apiserver/envelope"
)

// AccessTokenCookie access token cookie 名称
const AccessTokenCookie = "access_token"

// APIKeyHeader 前端共享密钥请求头
const APIKeyHeader = "X-API-Key"

// authErrorMessage 权限校验阶段存储故障
const authErrorMessage = "Authentication error on our end."

// AuthedHandler 已通过权限校验的处理函数，caller 为解析出的调用方
//
// 通过 MemberOrAPIKey 以 API Key 放行时 caller 为 nil。
type AuthedHandler func(w http.ResponseWriter, r *http.Request, caller *Identity)

// Guard 按权限级别包装处理函数
//
// 拒绝时返回 400 信封，存储故障返回 500。
type Guard struct {
	tokens *TokenService
	apiKey string
}

// NewGuard 创建权限守卫，apiKey 为空时不接受 API Key
func NewGuard(tokens *TokenService, apiKey string) *Guard {
	return &Guard{tokens: tokens, apiKey: apiKey}
}

// Member 要求调用方具有成员权限
func (g *Guard) Member(deny string, next AuthedHandler) http.HandlerFunc {
	return g.require(deny, (*Identity).IsMember, next)
}

// Admin 要求调用方具有管理员权限
func (g *Guard) Admin(deny string, next AuthedHandler) http.HandlerFunc {
	return g.require(deny, (*Identity).IsAdmin, next)
}

// MemberOrAPIKey 成员令牌或有效的前端 API Key 均可放行
func (g *Guard) MemberOrAPIKey(deny string, next AuthedHandler) http.HandlerFunc {
	member := g.Member(deny, next)
	return func(w http.ResponseWriter, r *http.Request) {
		if g.validAPIKey(r.Header.Get(APIKeyHeader)) {
			next(w, r, nil)
			return
		}
		member(w, r)
	}
}

func (g *Guard) require(deny string, allowed func(*Identity) bool, next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := g.Identify(r.Context(), ExtractToken(r))
		if err != nil {
			envelope.Internal(w, authErrorMessage, err, envelope.AUTH009)
			return
		}
		if !allowed(caller) {
			envelope.Fail(w, http.StatusBadRequest, deny, nil)
			return
		}
		next(w, r, caller)
	}
}

// Identify 解析令牌对应的调用方
//
// 令牌无效时返回 (nil, nil)，只有存储故障返回 error。
func (g *Guard) Identify(ctx context.Context, token string) (*Identity, error) {
	caller, err := g.tokens.Validate(ctx, token)
	if errors.Is(err, ErrInvalidToken) {
		return nil, nil
	}
	return caller, err
}

// HasMemberPermission 令牌有效且权限级别已知
func (g *Guard) HasMemberPermission(ctx context.Context, token string) (bool, error) {
	caller, err := g.Identify(ctx, token)
	return caller.IsMember(), err
}

// HasAdminPermission 令牌有效且为管理员
func (g *Guard) HasAdminPermission(ctx context.Context, token string) (bool, error) {
	caller, err := g.Identify(ctx, token)
	return caller.IsAdmin(), err
}

func (g *Guard) validAPIKey(key string) bool {
	if g.apiKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(g.apiKey)) == 1
}

// ExtractToken 从请求中提取 access token
//
// 依次尝试 Authorization: Bearer <t>、裸 Authorization 值、access_token cookie。
func ExtractToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return header
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
