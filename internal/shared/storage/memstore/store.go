// Package memstore 实现基于内存的 PersistentStore
//
// 用于单元测试和 APP_ENV=test 的本地开发，行为与 mongostore 保持一致：
// 唯一键冲突返回 storage.ErrDuplicate，实体不存在返回 storage.ErrNotFound。
// 返回值均为副本，调用方修改不会影响存储内容。
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

// Store 内存存储
type Store struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	members   map[string]*model.Member
	projects  map[string]*model.Project
	resources map[string]*model.Resource
	snapshots map[string]*model.Snapshot
}

// NewStore 创建内存存储实例
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*model.User),
		members:   make(map[string]*model.Member),
		projects:  make(map[string]*model.Project),
		resources: make(map[string]*model.Resource),
		snapshots: make(map[string]*model.Snapshot),
	}
}

// Close 关闭存储
func (s *Store) Close() error {
	return nil
}

var _ storage.PersistentStore = (*Store)(nil)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return storage.ErrDuplicate
	}
	if s.userByUsername(user.Username) != nil {
		return storage.ErrDuplicate
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.userByUsername(username)
	if u == nil {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if refreshToken != "" && u.RefreshToken == refreshToken {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) FindUsersByUsernames(ctx context.Context, usernames []string) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(usernames))
	for _, name := range usernames {
		want[strings.ToLower(name)] = true
	}
	result := []*model.User{}
	for _, u := range s.users {
		if want[strings.ToLower(u.Username)] {
			cp := *u
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) DeleteUserByUsername(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByUsername(username)
	if u == nil {
		return storage.ErrNotFound
	}
	delete(s.users, u.ID)
	return nil
}

func (s *Store) UpdateUserTokens(ctx context.Context, id string, tokens storage.SessionTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	applyTokens(u, tokens)
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id, hash string, tokens storage.SessionTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Hash = hash
	applyTokens(u, tokens)
	return nil
}

func (s *Store) UpdateUsername(ctx context.Context, id, username string, tokens storage.SessionTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	if other := s.userByUsername(username); other != nil && other.ID != id {
		return storage.ErrDuplicate
	}
	u.Username = username
	applyTokens(u, tokens)
	return nil
}

// userByUsername 用户名不区分大小写，调用方需持有锁
func (s *Store) userByUsername(username string) *model.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}

func applyTokens(u *model.User, tokens storage.SessionTokens) {
	if tokens.AccessToken != "" {
		u.AccessToken = tokens.AccessToken
	}
	if tokens.RefreshToken != "" {
		u.RefreshToken = tokens.RefreshToken
	}
	u.UpdatedAt = time.Now()
}
