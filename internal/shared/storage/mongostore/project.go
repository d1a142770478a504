package mongostore

import (
	"context"
	"time"

	"content-platform/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ProjectStore
// ============================================================================

func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	return insertOne(ctx, s.col(ColProjects), project)
}

func (s *Store) ListProjects(ctx context.Context) ([]*model.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	return findMany[model.Project](ctx, s.col(ColProjects), bson.D{}, opts)
}

func (s *Store) GetProjectByName(ctx context.Context, name string) (*model.Project, error) {
	return findOne[model.Project](ctx, s.col(ColProjects), bson.D{{Key: "name", Value: name}})
}

func (s *Store) UpdateProject(ctx context.Context, name string, update model.ProjectUpdate) (*model.Project, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now()}}
	if update.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *update.Name})
	}
	if update.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *update.Description})
	}
	if update.Members != nil {
		set = append(set, bson.E{Key: "members", Value: update.Members})
	}
	if update.IsActive != nil {
		set = append(set, bson.E{Key: "isActive", Value: *update.IsActive})
	}
	return findOneAndSet[model.Project](ctx, s.col(ColProjects), bson.D{{Key: "name", Value: name}}, set)
}

func (s *Store) DeleteProject(ctx context.Context, name string) error {
	return deleteOne(ctx, s.col(ColProjects), bson.D{{Key: "name", Value: name}})
}
