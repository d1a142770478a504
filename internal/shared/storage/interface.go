// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/, memstore/
//   - 初始化时通过依赖注入传入实现
//
// 所有 Get/Update/Delete 方法在实体不存在时返回 ErrNotFound。
package storage

import (
	"context"

	"content-platform/internal/shared/model"
)

// SessionTokens 会话令牌更新，空字符串表示不修改
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
}

// UserStore 凭据存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByRefreshToken(ctx context.Context, refreshToken string) (*model.User, error)
	// FindUsersByUsernames 不区分大小写匹配，未匹配的用户名直接忽略
	FindUsersByUsernames(ctx context.Context, usernames []string) ([]*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	DeleteUserByUsername(ctx context.Context, username string) error
	UpdateUserTokens(ctx context.Context, id string, tokens SessionTokens) error
	UpdateUserPassword(ctx context.Context, id, hash string, tokens SessionTokens) error
	UpdateUsername(ctx context.Context, id, username string, tokens SessionTokens) error
}

// MemberStore 成员存储接口
type MemberStore interface {
	CreateMember(ctx context.Context, member *model.Member) error
	ListMembers(ctx context.Context) ([]*model.Member, error)
	ListMembersByProject(ctx context.Context, project string) ([]*model.Member, error)
}

// ProjectStore 项目存储接口（按名称寻址）
type ProjectStore interface {
	CreateProject(ctx context.Context, project *model.Project) error
	ListProjects(ctx context.Context) ([]*model.Project, error)
	GetProjectByName(ctx context.Context, name string) (*model.Project, error)
	UpdateProject(ctx context.Context, name string, update model.ProjectUpdate) (*model.Project, error)
	DeleteProject(ctx context.Context, name string) error
}

// ResourceStore 资源存储接口
type ResourceStore interface {
	CreateResource(ctx context.Context, resource *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	GetResourceView(ctx context.Context, id string) (*model.ResourceView, error)
	// ListResourcesByCategory 按 category.sub 降序、createdAt 降序返回
	ListResourcesByCategory(ctx context.Context, main string) ([]*model.ResourceView, error)
	UpdateResource(ctx context.Context, id string, update model.ResourceUpdate) (*model.ResourceView, error)
	DeleteResource(ctx context.Context, id string) error
}

// SnapshotStore 快照存储接口
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, snapshot *model.Snapshot) error
	ListSnapshots(ctx context.Context) ([]*model.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	UpdateSnapshot(ctx context.Context, id string, update model.SnapshotUpdate) (*model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

// QueryStore 受限聚合查询接口
type QueryStore interface {
	RunQuery(ctx context.Context, q *model.Query) ([]map[string]any, error)
}

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	UserStore
	MemberStore
	ProjectStore
	ResourceStore
	SnapshotStore
	QueryStore
	Close() error
}
