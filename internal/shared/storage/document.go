package storage

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// NormalizeDocument 将 BSON 解码结果转换为可直接 JSON 序列化的普通结构
//
// bson.D 转为 map，bson.A 转为切片，DateTime 转为 time.Time。
func NormalizeDocument(v any) any {
	switch val := v.(type) {
	case bson.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = NormalizeDocument(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = NormalizeDocument(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = NormalizeDocument(e)
		}
		return m
	case bson.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = NormalizeDocument(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = NormalizeDocument(e)
		}
		return out
	case bson.DateTime:
		return val.Time().UTC()
	case bson.ObjectID:
		return val.Hex()
	default:
		return v
	}
}
