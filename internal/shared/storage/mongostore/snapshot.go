package mongostore

import (
	"context"
	"time"

	"content-platform/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// SnapshotStore
// ============================================================================

func (s *Store) CreateSnapshot(ctx context.Context, snapshot *model.Snapshot) error {
	return insertOne(ctx, s.col(ColSnapshots), snapshot)
}

func (s *Store) ListSnapshots(ctx context.Context) ([]*model.Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	return findMany[model.Snapshot](ctx, s.col(ColSnapshots), bson.D{}, opts)
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	return findOne[model.Snapshot](ctx, s.col(ColSnapshots), byID(id))
}

func (s *Store) UpdateSnapshot(ctx context.Context, id string, update model.SnapshotUpdate) (*model.Snapshot, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now()}}
	if update.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *update.Title})
	}
	if update.Descriptions != nil {
		set = append(set, bson.E{Key: "descriptions", Value: update.Descriptions})
	}
	if update.Hyperlinks != nil {
		set = append(set, bson.E{Key: "hyperlinks", Value: update.Hyperlinks})
	}
	if update.Date != nil {
		set = append(set, bson.E{Key: "date", Value: *update.Date})
	}
	if update.Project != nil {
		set = append(set, bson.E{Key: "project", Value: *update.Project})
	}
	if update.Categories != nil {
		set = append(set, bson.E{Key: "categories", Value: update.Categories})
	}
	if update.Contributors != nil {
		set = append(set, bson.E{Key: "contributors", Value: update.Contributors})
	}
	return findOneAndSet[model.Snapshot](ctx, s.col(ColSnapshots), byID(id), set)
}

func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	return deleteOne(ctx, s.col(ColSnapshots), byID(id))
}
