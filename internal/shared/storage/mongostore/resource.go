package mongostore

import (
	"context"
	"time"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// ResourceStore
// ============================================================================

func (s *Store) CreateResource(ctx context.Context, resource *model.Resource) error {
	return insertOne(ctx, s.col(ColResources), resource)
}

func (s *Store) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return findOne[model.Resource](ctx, s.col(ColResources), byID(id))
}

func (s *Store) GetResourceView(ctx context.Context, id string) (*model.ResourceView, error) {
	pipeline := append(bson.A{bson.D{{Key: "$match", Value: byID(id)}}}, populateOwner()...)
	views, err := aggregate[model.ResourceView](ctx, s.col(ColResources), pipeline)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, storage.ErrNotFound
	}
	return views[0], nil
}

func (s *Store) ListResourcesByCategory(ctx context.Context, main string) ([]*model.ResourceView, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "category.main", Value: main}}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "category.sub", Value: -1},
			{Key: "createdAt", Value: -1},
		}}},
	}
	pipeline = append(pipeline, populateOwner()...)
	return aggregate[model.ResourceView](ctx, s.col(ColResources), pipeline)
}

func (s *Store) UpdateResource(ctx context.Context, id string, update model.ResourceUpdate) (*model.ResourceView, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now()}}
	if update.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *update.Title})
	}
	if update.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *update.Description})
	}
	if update.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *update.Category})
	}
	if update.Author != nil {
		set = append(set, bson.E{Key: "author", Value: *update.Author})
	}
	if update.ResourceLink != nil {
		set = append(set, bson.E{Key: "resource_link", Value: *update.ResourceLink})
	}
	if update.Document != nil {
		set = append(set, bson.E{Key: "document", Value: *update.Document})
	}
	if err := updateFields(ctx, s.col(ColResources), byID(id), set); err != nil {
		return nil, err
	}
	return s.GetResourceView(ctx, id)
}

func (s *Store) DeleteResource(ctx context.Context, id string) error {
	return deleteOne(ctx, s.col(ColResources), byID(id))
}

// populateOwner 用 users 集合中的用户名填充 owner 字段
// 所有者已删除时 username 为空字符串
func populateOwner() bson.A {
	return bson.A{
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: ColUsers},
			{Key: "localField", Value: "owner"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner_docs"},
		}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "owner", Value: bson.D{
				{Key: "_id", Value: "$owner"},
				{Key: "username", Value: bson.D{{Key: "$ifNull", Value: bson.A{
					bson.D{{Key: "$arrayElemAt", Value: bson.A{"$owner_docs.username", 0}}},
					"",
				}}}},
			}},
		}}},
		bson.D{{Key: "$unset", Value: "owner_docs"}},
	}
}
