package cache

import (
	"context"
	"sync"
	"time"
)

// ============================================================================
// NoOpCache - 空操作实现（未启用 Redis 时使用）
// ============================================================================

// NoOpCache 不缓存任何内容，所有读取都未命中
type NoOpCache struct{}

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) SetSession(ctx context.Context, userID string, session *Session) error {
	return nil
}

func (c *NoOpCache) GetSession(ctx context.Context, userID string) (*Session, error) {
	return nil, nil
}

func (c *NoOpCache) DeleteSession(ctx context.Context, userID string) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

// ============================================================================
// MemoryCache - 进程内实现
// ============================================================================

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryCache 进程内会话缓存，带过期时间
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 创建进程内缓存，ttl <= 0 时使用 TTLSession
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = TTLSession
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) SetSession(ctx context.Context, userID string, session *Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *session
	c.entries[userID] = memoryEntry{session: cp, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) GetSession(ctx context.Context, userID string) (*Session, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		return nil, nil
	}
	cp := entry.session
	return &cp, nil
}

func (c *MemoryCache) DeleteSession(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}
