package cache

import (
	"time"
)

// Session 用户当前会话
type Session struct {
	SessionID  string `json:"session_id" redis:"session_id"`
	Username   string `json:"username" redis:"username"`
	Permission string `json:"permission" redis:"permission"`
}

// ============================================================================
// Redis Key 前缀
// ============================================================================

const (
	KeySession = "session:" // session:{user_id}
)

// ============================================================================
// TTL 常量
// ============================================================================

const (
	TTLSession = 1 * time.Hour
)
