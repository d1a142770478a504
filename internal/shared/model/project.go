package model

import "time"

// Project 项目，name 全局唯一
type Project struct {
	ID          string    `json:"_id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Members     []string  `json:"members" bson:"members"` // User ID 列表
	IsActive    bool      `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ProjectUpdate 项目部分更新，nil 字段不修改
type ProjectUpdate struct {
	Name        *string
	Description *string
	Members     []string
	IsActive    *bool
}
