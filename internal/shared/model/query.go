package model

// QueryTarget 受限查询允许的目标集合（封闭枚举）
type QueryTarget string

const (
	QueryTargetUser     QueryTarget = "user"
	QueryTargetMember   QueryTarget = "member"
	QueryTargetProject  QueryTarget = "project"
	QueryTargetSnapshot QueryTarget = "snapshot"
)

// Query 经过校验的聚合查询
//
// Pipeline 只能由 query 包构造，存储层直接执行，不再做校验。
type Query struct {
	Target   QueryTarget
	Pipeline []map[string]any
}
