// Package model 定义内容平台的核心数据模型
//
// 所有实体通过 ID 引用其他实体，不做嵌入。
// 令牌状态只存在于 User（凭据存储）中。
package model

import (
	"strings"
	"time"
)

// Permission 用户权限级别
type Permission string

const (
	PermissionDefaultUser Permission = "default_user"
	PermissionAdmin       Permission = "admin"
)

// Permissions 所有已知权限级别
var Permissions = []Permission{PermissionDefaultUser, PermissionAdmin}

// Valid 是否为已知权限级别
func (p Permission) Valid() bool {
	for _, known := range Permissions {
		if p == known {
			return true
		}
	}
	return false
}

// User 登录账号（凭据存储记录）
//
// AccessToken 保存当前会话 ID（签名访问令牌的 jti），RefreshToken 为不透明刷新令牌。
// 两者都不会出现在常规 JSON 输出中。
type User struct {
	ID           string     `json:"_id" bson:"_id"`
	Username     string     `json:"username" bson:"username"`
	Hash         string     `json:"-" bson:"hash"`
	Permissions  Permission `json:"permissions" bson:"permissions"`
	AccessToken  string     `json:"-" bson:"access_token"`
	RefreshToken string     `json:"-" bson:"refresh_token"`
	Member       string     `json:"member,omitempty" bson:"member,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeUsername 去除首尾空白
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
