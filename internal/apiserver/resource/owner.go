package resource

import (
	"context"
	"errors"
	"fmt"

	"content-platform/internal/apiserver/auth"
	"content-platform/internal/shared/storage"
)

var (
	// ErrResourceNotFound 资源不存在
	ErrResourceNotFound = fmt.Errorf("resource not found: %w", storage.ErrNotFound)
	// ErrAccountNotFound 调用方账号不存在
	ErrAccountNotFound = fmt.Errorf("account not found: %w", storage.ErrNotFound)
)

// OwnershipResolver 判断调用方是否为资源所有者
//
// resource.owner 保存 User ID，比较时只用账号 ID，不用关联的成员 ID。
type OwnershipResolver struct {
	resources storage.ResourceStore
	users     storage.UserStore
}

// NewOwnershipResolver 创建所有权解析器
func NewOwnershipResolver(resources storage.ResourceStore, users storage.UserStore) *OwnershipResolver {
	return &OwnershipResolver{resources: resources, users: users}
}

// IsOwner 按用户名判断是否为资源所有者
//
// 资源或账号不存在时分别返回 ErrResourceNotFound / ErrAccountNotFound，
// 与“不是所有者”（false, nil）区分。
func (o *OwnershipResolver) IsOwner(ctx context.Context, resourceID, username string) (bool, error) {
	ownerID, err := o.ownerOf(ctx, resourceID)
	if err != nil {
		return false, err
	}
	user, err := o.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return false, ErrAccountNotFound
	}
	if err != nil {
		return false, fmt.Errorf("load account %s: %w", username, err)
	}
	return ownerID == user.ID, nil
}

// CanModify 所有者或管理员可修改资源
//
// 非管理员按用户名经 IsOwner 解析；调用方账号已不存在时视为无权限。
// 资源不存在时对任何调用方都返回 ErrResourceNotFound。
func (o *OwnershipResolver) CanModify(ctx context.Context, resourceID string, caller *auth.Identity) (bool, error) {
	if caller == nil || caller.IsAdmin() {
		if _, err := o.ownerOf(ctx, resourceID); err != nil {
			return false, err
		}
		return caller != nil, nil
	}
	ok, err := o.IsOwner(ctx, resourceID, caller.Username)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	return ok, err
}

func (o *OwnershipResolver) ownerOf(ctx context.Context, resourceID string) (string, error) {
	resource, err := o.resources.GetResource(ctx, resourceID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrResourceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load resource %s: %w", resourceID, err)
	}
	return resource.Owner, nil
}
