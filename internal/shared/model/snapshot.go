package model

import "time"

// SnapshotDateLayout 快照日期格式
const SnapshotDateLayout = "2006-01-02"

// Snapshot 项目时间线条目
type Snapshot struct {
	ID           string    `json:"_id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Descriptions []string  `json:"descriptions" bson:"descriptions"`
	Hyperlinks   []string  `json:"hyperlinks" bson:"hyperlinks"`
	Date         time.Time `json:"date" bson:"date"`
	Project      string    `json:"project" bson:"project"`
	Categories   []string  `json:"categories" bson:"categories"`
	Contributors []string  `json:"contributors" bson:"contributors"` // User ID 列表
	Author       string    `json:"author" bson:"author"`             // 创建者 User ID
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// SnapshotUpdate 快照部分更新，nil 字段不修改
type SnapshotUpdate struct {
	Title        *string
	Descriptions []string
	Hyperlinks   []string
	Date         *time.Time
	Project      *string
	Categories   []string
	Contributors []string
}
