// Package auth 用户认证：令牌服务、密码哈希、权限守卫、用户接口
//
// 令牌模型：
//   - access token：HS256 签名 JWT，sub=用户 ID，jti=当前会话 ID
//   - refresh token：21 位 nanoid 不透明字符串，仅用于换取新的 access token
//
// 会话 ID 保存在用户记录的 access_token 字段。任何轮换都会替换会话 ID，
// 之前签发的 access token 因 jti 不匹配立即失效。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"

	"content-platform/internal/shared/model"
)

// bcryptCost 密码哈希成本
const bcryptCost = 10

// tokenLength 会话 ID 与 refresh token 长度
const tokenLength = 21

// Config 认证配置
type Config struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	CookieSecure   bool
	FrontendAPIKey string // 前端共享密钥，可代替成员身份创建成员
}

// DefaultConfig 返回默认认证配置
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL: time.Hour,
	}
}

// Identity 已认证的调用方
type Identity struct {
	UserID     string
	Username   string
	Permission model.Permission
}

// IsMember 任何已知权限级别都视为成员
func (i *Identity) IsMember() bool {
	return i != nil && i.Permission.Valid()
}

// IsAdmin 是否具有管理员权限
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Permission == model.PermissionAdmin
}

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// newOpaqueToken 生成会话 ID / refresh token
func newOpaqueToken() (string, error) {
	return gonanoid.New(tokenLength)
}

// ============================================================================
// JWT Token
// ============================================================================

// Claims JWT 声明
type Claims struct {
	jwt.RegisteredClaims
	Username   string `json:"username"`
	Permission string `json:"permissions"`
}

// signClaims 签发 access token
func signClaims(cfg Config, user *model.User, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        user.AccessToken,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
		},
		Username:   user.Username,
		Permission: string(user.Permissions),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken 解析并验证 JWT 签名与过期时间
func ParseToken(cfg Config, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("token missing subject or session id")
	}
	return claims, nil
}
