package redis

import (
	"context"

	"content-platform/internal/shared/cache"
)

func sessionKey(userID string) string {
	return cache.KeySession + userID
}

// SetSession 写入用户当前会话
func (s *Store) SetSession(ctx context.Context, userID string, session *cache.Session) error {
	key := sessionKey(userID)

	data := map[string]interface{}{
		"session_id": session.SessionID,
		"username":   session.Username,
		"permission": session.Permission,
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	_, err := pipe.Exec(ctx)

	return err
}

// GetSession 读取用户当前会话，不存在时返回 (nil, nil)
func (s *Store) GetSession(ctx context.Context, userID string) (*cache.Session, error) {
	result, err := s.client.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 || result["session_id"] == "" {
		return nil, nil
	}

	session := &cache.Session{
		SessionID:  result["session_id"],
		Username:   result["username"],
		Permission: result["permission"],
	}
	return session, nil
}

// DeleteSession 删除用户会话
func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	return s.client.Del(ctx, sessionKey(userID)).Err()
}
