// Package cache 缓存层抽象接口
//
// 提供会话状态的快速存取，当前由 Redis 实现；未启用 Redis 时使用
// NoOpCache 或 MemoryCache。缓存只是加速层，权威数据始终在持久化存储中。
package cache

import (
	"context"
)

// SessionCache 会话缓存接口
//
// Get 未命中时返回 (nil, nil)。
type SessionCache interface {
	SetSession(ctx context.Context, userID string, session *Session) error
	GetSession(ctx context.Context, userID string) (*Session, error)
	DeleteSession(ctx context.Context, userID string) error
	Close() error
}
