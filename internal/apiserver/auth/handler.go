package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/apiserver/validate"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

const invalidBodyMessage = "Invalid request body."

// Handler 用户与令牌 HTTP 处理器
type Handler struct {
	users  storage.UserStore
	tokens *TokenService
	guard  *Guard
}

// NewHandler 创建认证处理器
func NewHandler(users storage.UserStore, tokens *TokenService, guard *Guard) *Handler {
	return &Handler{users: users, tokens: tokens, guard: guard}
}

// RegisterRoutes 注册用户与令牌路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users", h.guard.Admin("Invalid access - must be an admin to create a user.", h.CreateUser))
	mux.HandleFunc("GET /api/users", h.guard.Admin("Invalid access - must be an admin to list users.", h.ListUsers))
	mux.HandleFunc("DELETE /api/users/{username}", h.guard.Admin("Invalid access - must be an admin to delete a user.", h.DeleteUser))
	mux.HandleFunc("POST /api/users/login", h.Login)
	mux.HandleFunc("POST /api/users/logout", h.guard.Member("Invalid access - must be logged in to log out.", h.Logout))
	mux.HandleFunc("PUT /api/users/change_username", h.guard.Member("Invalid access - must be logged in to change username.", h.ChangeUsername))
	mux.HandleFunc("PUT /api/users/change_password", h.guard.Member("Invalid access - must be logged in to change password.", h.ChangePassword))
	mux.HandleFunc("GET /api/tokens/access_token", h.RefreshAccessToken)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type createUserRequest struct {
	Username    string           `json:"username"`
	Password    string           `json:"password"`
	Permissions model.Permission `json:"permissions"`
	Member      string           `json:"member"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changeUsernameRequest struct {
	Username string `json:"username"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *model.User `json:"user"`
}

// ============================================================================
// Handlers
// ============================================================================

// CreateUser 创建用户（管理员）
//
// 路由: POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request, caller *Identity) {
	var req createUserRequest
	if failures := validate.DecodeBody(r, validate.CreateUser, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	user, err := h.tokens.CreateUser(r.Context(), req.Username, req.Password, req.Permissions, req.Member)
	if errors.Is(err, storage.ErrDuplicate) {
		envelope.Fail(w, http.StatusBadRequest, "Username already exists.", nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Failed to create user.", err, envelope.AUTH001)
		return
	}

	log.Printf("[auth] User created: %s (%s) by %s", user.Username, user.ID, caller.Username)
	envelope.OK(w, "Successfully created user.", user)
}

// ListUsers 列出用户（管理员）
//
// 路由: GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request, _ *Identity) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to retrieve users", err, envelope.AUTH002)
		return
	}
	envelope.OK(w, "Successfully retrieved users.", users)
}

// DeleteUser 按用户名删除用户（管理员），不存在时返回 404
//
// 路由: DELETE /api/users/{username}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request, caller *Identity) {
	username := r.PathValue("username")
	notFound := fmt.Sprintf("Could not find user <%s> to delete", username)

	user, err := h.users.GetUserByUsername(r.Context(), username)
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, notFound, nil)
		return
	}
	if err == nil {
		err = h.users.DeleteUserByUsername(r.Context(), username)
	}
	if errors.Is(err, storage.ErrNotFound) {
		envelope.Fail(w, http.StatusNotFound, notFound, nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to delete user", err, envelope.AUTH003)
		return
	}

	h.tokens.InvalidateUser(r.Context(), user.ID)
	log.Printf("[auth] User deleted: %s by %s", username, caller.Username)
	envelope.OK(w, "Successfully deleted user.", nil)
}

// Login 用户登录
//
// 路由: POST /api/users/login
//
// 用户名不存在与密码错误返回相同信息。成功时令牌对放在响应体中，
// access token 同时写入 HttpOnly cookie。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if failures := validate.DecodeBody(r, validate.Login, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	pair, user, err := h.tokens.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		envelope.Fail(w, http.StatusBadRequest, "Invalid username or password.", nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Authentication error on our end.", err, envelope.AUTH004)
		return
	}

	h.setAccessCookie(w, pair.AccessToken)
	log.Printf("[auth] User logged in: %s", user.Username)
	envelope.OK(w, "Successfully logged in.", loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user,
	})
}

// Logout 登出：轮换全部令牌并清除 cookie
//
// 路由: POST /api/users/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, caller *Identity) {
	if _, err := h.tokens.RotateBothTokens(r.Context(), caller.UserID); err != nil {
		envelope.Internal(w, "Internal server error while attempting to log out", err, envelope.AUTH005)
		return
	}
	h.clearAccessCookie(w)
	log.Printf("[auth] User logged out: %s", caller.Username)
	envelope.OK(w, "Successfully logged out.", nil)
}

// ChangeUsername 修改用户名，返回新的令牌对
//
// 路由: PUT /api/users/change_username
func (h *Handler) ChangeUsername(w http.ResponseWriter, r *http.Request, caller *Identity) {
	var req changeUsernameRequest
	if failures := validate.DecodeBody(r, validate.ChangeUsername, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	pair, err := h.tokens.ChangeUsername(r.Context(), caller.UserID, req.Username)
	if errors.Is(err, storage.ErrDuplicate) {
		envelope.Fail(w, http.StatusBadRequest, "Username already exists.", nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to change username", err, envelope.AUTH006)
		return
	}

	h.setAccessCookie(w, pair.AccessToken)
	log.Printf("[auth] Username changed: %s -> %s", caller.Username, req.Username)
	envelope.OK(w, "Successfully changed username.", pair)
}

// ChangePassword 修改密码，返回新的令牌对，旧 access token 立即失效
//
// 路由: PUT /api/users/change_password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request, caller *Identity) {
	var req changePasswordRequest
	if failures := validate.DecodeBody(r, validate.ChangePassword, &req); failures != nil {
		envelope.Fail(w, http.StatusBadRequest, invalidBodyMessage, failures)
		return
	}

	pair, err := h.tokens.ChangePassword(r.Context(), caller.UserID, req.Password)
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to change password", err, envelope.AUTH007)
		return
	}

	h.setAccessCookie(w, pair.AccessToken)
	log.Printf("[auth] Password changed: %s", caller.Username)
	envelope.OK(w, "Successfully changed password.", pair)
}

// RefreshAccessToken 用 refresh token 换取新的 access token
//
// 路由: GET /api/tokens/access_token
//
// refresh token 通过 Authorization 请求头传入（Bearer 或裸值）。
func (h *Handler) RefreshAccessToken(w http.ResponseWriter, r *http.Request) {
	refresh := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(refresh, " "); ok && strings.EqualFold(scheme, "bearer") {
		refresh = strings.TrimSpace(token)
	}

	access, err := h.tokens.RotateAccessToken(r.Context(), refresh)
	if errors.Is(err, ErrInvalidRefreshToken) {
		envelope.Fail(w, http.StatusBadRequest, "Invalid refresh token.", nil)
		return
	}
	if err != nil {
		envelope.Internal(w, "Internal server error while attempting to refresh access token", err, envelope.AUTH008)
		return
	}

	h.setAccessCookie(w, access)
	envelope.OK(w, "Successfully refreshed access token.", map[string]string{"access_token": access})
}

// ============================================================================
// Cookie
// ============================================================================

func (h *Handler) setAccessCookie(w http.ResponseWriter, token string) {
	cfg := h.tokens.Config()
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.AccessTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.tokens.Config().CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// EnsureAdminUser 确保管理员账号存在（启动时调用）
// 未配置用户名或密码时跳过
func EnsureAdminUser(ctx context.Context, tokens *TokenService, users storage.UserStore, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	existing, err := users.GetUserByUsername(ctx, username)
	if err == nil {
		if existing.Permissions != model.PermissionAdmin {
			log.Printf("[auth] WARNING: bootstrap user %s exists without admin permission", username)
		} else {
			log.Printf("[auth] Admin user already exists: %s (%s)", username, existing.ID)
		}
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check admin user: %w", err)
	}

	user, err := tokens.CreateUser(ctx, username, password, model.PermissionAdmin, "")
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("[auth] Created admin user: %s (%s)", username, user.ID)
	return nil
}
