package mongostore

import (
	"context"
	"fmt"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// RunQuery 执行已校验的聚合管道
//
// 目标集合由封闭枚举决定，不接受任意集合名。
func (s *Store) RunQuery(ctx context.Context, q *model.Query) ([]map[string]any, error) {
	var colName string
	switch q.Target {
	case model.QueryTargetUser:
		colName = ColUsers
	case model.QueryTargetMember:
		colName = ColMembers
	case model.QueryTargetProject:
		colName = ColProjects
	case model.QueryTargetSnapshot:
		colName = ColSnapshots
	default:
		return nil, fmt.Errorf("mongostore: unknown query target %q", q.Target)
	}

	docs, err := aggregate[bson.M](ctx, s.col(colName), q.Pipeline)
	if err != nil {
		return nil, err
	}
	results := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		results = append(results, storage.NormalizeDocument(*d).(map[string]any))
	}
	return results, nil
}
