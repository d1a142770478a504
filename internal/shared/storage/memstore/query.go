package memstore

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RunQuery 执行聚合管道的最小子集
//
// 支持 $match（顶层字段相等匹配）、$skip、$limit、$count、$unset，
// 其余阶段返回 storage.ErrUnsupported。
func (s *Store) RunQuery(ctx context.Context, q *model.Query) ([]map[string]any, error) {
	docs, err := s.documents(q.Target)
	if err != nil {
		return nil, err
	}

	for _, stage := range q.Pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("memstore: stage must have exactly one operator: %w", storage.ErrUnsupported)
		}
		for op, arg := range stage {
			docs, err = applyStage(docs, op, arg)
			if err != nil {
				return nil, err
			}
		}
	}
	return docs, nil
}

func (s *Store) documents(target model.QueryTarget) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []any
	switch target {
	case model.QueryTargetUser:
		for _, u := range s.users {
			items = append(items, u)
		}
	case model.QueryTargetMember:
		for _, m := range s.members {
			items = append(items, m)
		}
	case model.QueryTargetProject:
		for _, p := range s.projects {
			items = append(items, p)
		}
	case model.QueryTargetSnapshot:
		for _, snap := range s.snapshots {
			items = append(items, snap)
		}
	default:
		return nil, fmt.Errorf("memstore: unknown query target %q", target)
	}

	docs := make([]map[string]any, 0, len(items))
	for _, item := range items {
		raw, err := bson.Marshal(item)
		if err != nil {
			return nil, err
		}
		var d bson.D
		if err := bson.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		docs = append(docs, storage.NormalizeDocument(d).(map[string]any))
	}
	return docs, nil
}

func applyStage(docs []map[string]any, op string, arg any) ([]map[string]any, error) {
	switch op {
	case "$match":
		filter, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("memstore: $match expects a document: %w", storage.ErrUnsupported)
		}
		out := []map[string]any{}
		for _, d := range docs {
			matched, err := matches(d, filter)
			if err != nil {
				return nil, err
			}
			if matched {
				out = append(out, d)
			}
		}
		return out, nil
	case "$skip":
		n, ok := toInt(arg)
		if !ok {
			return nil, fmt.Errorf("memstore: $skip expects a number: %w", storage.ErrUnsupported)
		}
		if n >= len(docs) {
			return []map[string]any{}, nil
		}
		return docs[n:], nil
	case "$limit":
		n, ok := toInt(arg)
		if !ok {
			return nil, fmt.Errorf("memstore: $limit expects a number: %w", storage.ErrUnsupported)
		}
		if n < len(docs) {
			return docs[:n], nil
		}
		return docs, nil
	case "$count":
		field, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("memstore: $count expects a field name: %w", storage.ErrUnsupported)
		}
		if len(docs) == 0 {
			return []map[string]any{}, nil
		}
		return []map[string]any{{field: int32(len(docs))}}, nil
	case "$unset":
		fields, err := unsetFields(arg)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(docs))
		for _, d := range docs {
			cp := make(map[string]any, len(d))
			for k, v := range d {
				cp[k] = v
			}
			for _, f := range fields {
				delete(cp, f)
			}
			out = append(out, cp)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("memstore: stage %s: %w", op, storage.ErrUnsupported)
	}
}

func matches(doc map[string]any, filter map[string]any) (bool, error) {
	for field, want := range filter {
		if strings.HasPrefix(field, "$") {
			return false, fmt.Errorf("memstore: operator %s: %w", field, storage.ErrUnsupported)
		}
		if _, isDoc := want.(map[string]any); isDoc {
			return false, fmt.Errorf("memstore: operator expression on %s: %w", field, storage.ErrUnsupported)
		}
		if !equalValues(lookup(doc, field), want) {
			return false, nil
		}
	}
	return true, nil
}

// lookup 支持点号路径
func lookup(doc map[string]any, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f < 0 {
		return 0, false
	}
	return int(f), true
}

func unsetFields(arg any) ([]string, error) {
	switch v := arg.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		fields := make([]string, 0, len(v))
		for _, f := range v {
			s, ok := f.(string)
			if !ok {
				return nil, fmt.Errorf("memstore: $unset expects field names: %w", storage.ErrUnsupported)
			}
			fields = append(fields, s)
		}
		return fields, nil
	}
	return nil, fmt.Errorf("memstore: $unset expects field names: %w", storage.ErrUnsupported)
}
