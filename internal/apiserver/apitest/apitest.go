// Package apitest 处理器测试公共环境：内存存储 + 令牌服务 + 守卫
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/apiserver/envelope"
	"content-platform/internal/shared/cache"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage/memstore"
)

// Password 测试账号统一密码
const Password = "password123"

// APIKey 测试用前端 API Key
const APIKey = "test-frontend-key"

// Env 测试环境
type Env struct {
	Store  *memstore.Store
	Tokens *auth.TokenService
	Guard  *auth.Guard
	Mux    *http.ServeMux
}

// NewEnv 创建测试环境
func NewEnv(t *testing.T) *Env {
	t.Helper()
	store := memstore.NewStore()
	tokens := auth.NewTokenService(store, cache.NewMemoryCache(time.Hour), auth.Config{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
	})
	return &Env{
		Store:  store,
		Tokens: tokens,
		Guard:  auth.NewGuard(tokens, APIKey),
		Mux:    http.NewServeMux(),
	}
}

// User 创建账号并登录，返回用户与 access token
func (e *Env) User(t *testing.T, username string, perm model.Permission) (*model.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := e.Tokens.CreateUser(ctx, username, Password, perm, "")
	require.NoError(t, err)
	pair, _, err := e.Tokens.Login(ctx, username, Password)
	require.NoError(t, err)
	return user, pair.AccessToken
}

// Do 发送请求，body 为空时不带请求体
func (e *Env) Do(method, path, token, body string) *httptest.ResponseRecorder {
	return e.Serve(NewRequest(method, path, token, body))
}

// NewRequest 构造 JSON 请求，token 非空时附带 Bearer 头
func NewRequest(method, path, token, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// Serve 直接分发自定义请求
func (e *Env) Serve(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.Mux.ServeHTTP(rec, r)
	return rec
}

// Response 解码后的响应信封，Data 保留原始 JSON
type Response struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
	ErrCode envelope.Code   `json:"errCode"`
}

// Decode 解码响应信封
func Decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// Data 解码响应信封中的 data
func Data[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(Decode(t, rec).Data, &v))
	return v
}
