package mongostore

import (
	"context"

	"content-platform/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// MemberStore
// ============================================================================

func (s *Store) CreateMember(ctx context.Context, member *model.Member) error {
	return insertOne(ctx, s.col(ColMembers), member)
}

func (s *Store) ListMembers(ctx context.Context) ([]*model.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name.lastname", Value: 1}, {Key: "name.firstname", Value: 1}})
	return findMany[model.Member](ctx, s.col(ColMembers), bson.D{}, opts)
}

func (s *Store) ListMembersByProject(ctx context.Context, project string) ([]*model.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name.lastname", Value: 1}, {Key: "name.firstname", Value: 1}})
	return findMany[model.Member](ctx, s.col(ColMembers), bson.D{{Key: "project", Value: project}}, opts)
}
