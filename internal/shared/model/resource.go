package model

import "time"

// Category 资源分类（主分类 + 子分类）
type Category struct {
	Main string `json:"main" bson:"main"`
	Sub  string `json:"sub" bson:"sub"`
}

// Resource 分类链接/文档
//
// Owner 引用 User ID（不是 Member ID）。
type Resource struct {
	ID           string    `json:"_id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Category     Category  `json:"category" bson:"category"`
	Author       string    `json:"author,omitempty" bson:"author,omitempty"`
	Owner        string    `json:"owner" bson:"owner"`
	ResourceLink string    `json:"resource_link" bson:"resource_link"`
	Document     string    `json:"document,omitempty" bson:"document,omitempty"` // 对象存储 key
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// OwnerRef 填充后的所有者引用
type OwnerRef struct {
	ID       string `json:"_id" bson:"_id"`
	Username string `json:"username" bson:"username"`
}

// ResourceView 带所有者信息的资源（读接口返回）
//
// 所有者账号已删除时 Owner.Username 为空。
type ResourceView struct {
	ID           string    `json:"_id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Category     Category  `json:"category" bson:"category"`
	Author       string    `json:"author,omitempty" bson:"author,omitempty"`
	Owner        OwnerRef  `json:"owner" bson:"owner"`
	ResourceLink string    `json:"resource_link" bson:"resource_link"`
	Document     string    `json:"document,omitempty" bson:"document,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ResourceUpdate 资源部分更新，nil 字段不修改
type ResourceUpdate struct {
	Title        *string
	Description  *string
	Category     *Category
	Author       *string
	ResourceLink *string
	Document     *string
}
