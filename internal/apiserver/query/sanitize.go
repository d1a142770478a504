package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"content-platform/internal/shared/model"
)

// MaxLimit $limit 上限
const MaxLimit = 500

// maxRegexLength $regex 模式长度上限
const maxRegexLength = 200

// ViolationError 查询不符合允许的形状，返回 400
type ViolationError struct {
	Reason string
}

func (e *ViolationError) Error() string {
	return "invalid query: " + e.Reason
}

func violation(format string, args ...any) error {
	return &ViolationError{Reason: fmt.Sprintf(format, args...)}
}

// credentialFields 用户集合中永不返回的字段
var credentialFields = []string{"hash", "access_token", "refresh_token"}

// targetSpec 每个查询目标允许的字段
type targetSpec struct {
	fields map[string]bool
	dates  map[string]bool // 字符串值按日期解析
}

func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

var targets = map[model.QueryTarget]targetSpec{
	model.QueryTargetUser: {
		fields: fieldSet("_id", "username", "permissions", "member", "createdAt", "updatedAt"),
		dates:  fieldSet("createdAt", "updatedAt"),
	},
	model.QueryTargetMember: {
		fields: fieldSet("_id", "name", "name.firstname", "name.lastname", "username", "project", "position",
			"contact", "contact.email", "contact.phone", "contact.linkedin", "isAlumni", "blurb", "createdAt", "updatedAt"),
		dates: fieldSet("createdAt", "updatedAt"),
	},
	model.QueryTargetProject: {
		fields: fieldSet("_id", "name", "description", "members", "isActive", "createdAt", "updatedAt"),
		dates:  fieldSet("createdAt", "updatedAt"),
	},
	model.QueryTargetSnapshot: {
		fields: fieldSet("_id", "title", "descriptions", "hyperlinks", "date", "project", "categories",
			"contributors", "author", "createdAt", "updatedAt"),
		dates: fieldSet("date", "createdAt", "updatedAt"),
	},
}

// ParseTarget 解析查询目标（封闭枚举）
func ParseTarget(collection string) (model.QueryTarget, error) {
	target := model.QueryTarget(collection)
	if _, ok := targets[target]; !ok {
		return "", violation("unknown collection %q", collection)
	}
	return target, nil
}

var comparisonOps = fieldSet("$eq", "$ne", "$gt", "$gte", "$lt", "$lte")

// Sanitize 校验并重建聚合管道
//
// 只允许 $match $sort $limit $skip $project $count 阶段；
// 用户目标总是追加 $unset 去掉凭据字段。
func Sanitize(collection string, conditions []json.RawMessage) (*model.Query, error) {
	target, err := ParseTarget(collection)
	if err != nil {
		return nil, err
	}
	spec := targets[target]

	pipeline := make([]map[string]any, 0, len(conditions)+1)
	for i, raw := range conditions {
		stage, err := sanitizeStage(spec, raw)
		if err != nil {
			if v, ok := err.(*ViolationError); ok {
				v.Reason = fmt.Sprintf("stage %d: %s", i, v.Reason)
			}
			return nil, err
		}
		pipeline = append(pipeline, stage)
	}
	if target == model.QueryTargetUser {
		pipeline = append(pipeline, map[string]any{"$unset": append([]string{}, credentialFields...)})
	}
	return &model.Query{Target: target, Pipeline: pipeline}, nil
}

func sanitizeStage(spec targetSpec, raw json.RawMessage) (map[string]any, error) {
	var stage map[string]any
	if err := json.Unmarshal(raw, &stage); err != nil {
		return nil, violation("stage must be an object")
	}
	if len(stage) != 1 {
		return nil, violation("stage must have exactly one operator")
	}
	for op, arg := range stage {
		switch op {
		case "$match":
			filter, ok := arg.(map[string]any)
			if !ok {
				return nil, violation("$match expects an object")
			}
			clean, err := sanitizeFilter(spec, filter)
			if err != nil {
				return nil, err
			}
			return map[string]any{op: clean}, nil
		case "$sort":
			sort, err := sanitizeSort(spec, raw)
			if err != nil {
				return nil, err
			}
			return map[string]any{op: sort}, nil
		case "$limit":
			n, err := nonNegativeInt(op, arg)
			if err != nil {
				return nil, err
			}
			if n < 1 || n > MaxLimit {
				return nil, violation("$limit must be between 1 and %d", MaxLimit)
			}
			return map[string]any{op: n}, nil
		case "$skip":
			n, err := nonNegativeInt(op, arg)
			if err != nil {
				return nil, err
			}
			return map[string]any{op: n}, nil
		case "$project":
			projection, err := sanitizeProjection(spec, arg)
			if err != nil {
				return nil, err
			}
			return map[string]any{op: projection}, nil
		case "$count":
			name, ok := arg.(string)
			if !ok || name == "" || strings.HasPrefix(name, "$") || strings.Contains(name, ".") {
				return nil, violation("$count expects a plain field name")
			}
			return map[string]any{op: name}, nil
		default:
			return nil, violation("stage %s is not allowed", op)
		}
	}
	return nil, violation("empty stage")
}

func sanitizeFilter(spec targetSpec, filter map[string]any) (map[string]any, error) {
	clean := make(map[string]any, len(filter))
	for key, value := range filter {
		switch {
		case key == "$and" || key == "$or":
			clauses, ok := value.([]any)
			if !ok || len(clauses) == 0 {
				return nil, violation("%s expects a non-empty array", key)
			}
			out := make([]any, 0, len(clauses))
			for _, c := range clauses {
				sub, ok := c.(map[string]any)
				if !ok {
					return nil, violation("%s clauses must be objects", key)
				}
				cleanSub, err := sanitizeFilter(spec, sub)
				if err != nil {
					return nil, err
				}
				out = append(out, cleanSub)
			}
			clean[key] = out
		case strings.HasPrefix(key, "$"):
			return nil, violation("operator %s is not allowed", key)
		default:
			if !spec.fields[key] {
				return nil, violation("field %s is not queryable", key)
			}
			cond, err := sanitizeCondition(spec, key, value)
			if err != nil {
				return nil, err
			}
			clean[key] = cond
		}
	}
	return clean, nil
}

// sanitizeCondition 字段条件：标量/标量数组（相等匹配）或操作符表达式
func sanitizeCondition(spec targetSpec, field string, value any) (any, error) {
	expr, isExpr := value.(map[string]any)
	if !isExpr {
		return literal(spec, field, value)
	}
	if len(expr) == 0 {
		return nil, violation("empty condition on %s", field)
	}

	clean := make(map[string]any, len(expr))
	for op, arg := range expr {
		switch {
		case comparisonOps[op]:
			v, err := scalar(spec, field, arg)
			if err != nil {
				return nil, err
			}
			clean[op] = v
		case op == "$in" || op == "$nin":
			items, ok := arg.([]any)
			if !ok {
				return nil, violation("%s on %s expects an array", op, field)
			}
			out := make([]any, 0, len(items))
			for _, item := range items {
				v, err := scalar(spec, field, item)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			clean[op] = out
		case op == "$exists":
			b, ok := arg.(bool)
			if !ok {
				return nil, violation("$exists on %s expects a boolean", field)
			}
			clean[op] = b
		case op == "$regex":
			pattern, ok := arg.(string)
			if !ok || len(pattern) > maxRegexLength {
				return nil, violation("$regex on %s expects a string up to %d characters", field, maxRegexLength)
			}
			clean[op] = pattern
		case op == "$options":
			opts, ok := arg.(string)
			if !ok || strings.Trim(opts, "imsx") != "" {
				return nil, violation("$options on %s may only contain i, m, s, x", field)
			}
			clean[op] = opts
		default:
			return nil, violation("operator %s is not allowed", op)
		}
	}
	if _, ok := clean["$options"]; ok {
		if _, ok := clean["$regex"]; !ok {
			return nil, violation("$options on %s requires $regex", field)
		}
	}
	return clean, nil
}

func literal(spec targetSpec, field string, value any) (any, error) {
	items, isArray := value.([]any)
	if !isArray {
		return scalar(spec, field, value)
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := scalar(spec, field, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// scalar 只接受字符串、数字、布尔、null；日期字段的字符串转换为时间
func scalar(spec targetSpec, field string, value any) (any, error) {
	switch v := value.(type) {
	case nil, bool, float64:
		return v, nil
	case string:
		if spec.dates[field] {
			if t, ok := parseTime(v); ok {
				return t, nil
			}
		}
		return v, nil
	default:
		return nil, violation("value for %s must be a string, number, boolean or null", field)
	}
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, model.SnapshotDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// sanitizeSort 按原始 JSON 顺序重建排序键
func sanitizeSort(spec targetSpec, raw json.RawMessage) (bson.D, error) {
	var stage bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &stage); err != nil || len(stage) != 1 {
		return nil, violation("$sort expects an object")
	}
	keys, ok := stage[0].Value.(bson.D)
	if !ok || len(keys) == 0 {
		return nil, violation("$sort expects a non-empty object")
	}
	clean := make(bson.D, 0, len(keys))
	for _, e := range keys {
		if !spec.fields[e.Key] {
			return nil, violation("field %s is not sortable", e.Key)
		}
		dir, ok := direction(e.Value)
		if !ok {
			return nil, violation("$sort direction for %s must be 1 or -1", e.Key)
		}
		clean = append(clean, bson.E{Key: e.Key, Value: dir})
	}
	return clean, nil
}

func direction(v any) (int32, bool) {
	var f float64
	switch n := v.(type) {
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if f != 1 && f != -1 {
		return 0, false
	}
	return int32(f), true
}

// sanitizeProjection 只允许 0/1/true/false 的字段投影
func sanitizeProjection(spec targetSpec, arg any) (map[string]any, error) {
	fields, ok := arg.(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, violation("$project expects a non-empty object")
	}
	clean := make(map[string]any, len(fields))
	var include, exclude int
	for field, v := range fields {
		if !spec.fields[field] {
			return nil, violation("field %s is not projectable", field)
		}
		var keep bool
		switch x := v.(type) {
		case bool:
			keep = x
		case float64:
			if x != 0 && x != 1 {
				return nil, violation("$project value for %s must be 0 or 1", field)
			}
			keep = x == 1
		default:
			return nil, violation("$project value for %s must be 0, 1 or a boolean", field)
		}
		clean[field] = keep
		if field == "_id" {
			continue
		}
		if keep {
			include++
		} else {
			exclude++
		}
	}
	// _id 以外不能混用包含与排除
	if include > 0 && exclude > 0 {
		return nil, violation("$project cannot mix inclusion and exclusion")
	}
	return clean, nil
}

func nonNegativeInt(op string, arg any) (int64, error) {
	f, ok := arg.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, violation("%s expects a non-negative integer", op)
	}
	return int64(f), nil
}
