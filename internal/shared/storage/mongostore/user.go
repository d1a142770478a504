package mongostore

import (
	"context"
	"time"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// UserStore
// ============================================================================

// usernameCollation 用户名比较不区分大小写，与 users.username 唯一索引一致
var usernameCollation = &options.Collation{Locale: "en", Strength: 2}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), byID(id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	opts := options.FindOne().SetCollation(usernameCollation)
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "username", Value: username}}, opts)
}

func (s *Store) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "refresh_token", Value: refreshToken}})
}

// FindUsersByUsernames 大小写不敏感匹配
func (s *Store) FindUsersByUsernames(ctx context.Context, usernames []string) ([]*model.User, error) {
	if len(usernames) == 0 {
		return []*model.User{}, nil
	}
	filter := bson.D{{Key: "username", Value: bson.D{{Key: "$in", Value: usernames}}}}
	opts := options.Find().SetCollation(usernameCollation)
	return findMany[model.User](ctx, s.col(ColUsers), filter, opts)
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findMany[model.User](ctx, s.col(ColUsers), bson.D{}, opts)
}

func (s *Store) DeleteUserByUsername(ctx context.Context, username string) error {
	opts := options.DeleteOne().SetCollation(usernameCollation)
	return deleteOne(ctx, s.col(ColUsers), bson.D{{Key: "username", Value: username}}, opts)
}

func (s *Store) UpdateUserTokens(ctx context.Context, id string, tokens storage.SessionTokens) error {
	return updateFields(ctx, s.col(ColUsers), byID(id), tokenFields(tokens))
}

func (s *Store) UpdateUserPassword(ctx context.Context, id, hash string, tokens storage.SessionTokens) error {
	update := append(tokenFields(tokens), bson.E{Key: "hash", Value: hash})
	return updateFields(ctx, s.col(ColUsers), byID(id), update)
}

// UpdateUsername 按 _id 更新；与他人仅大小写不同的用户名由 collation 唯一索引拒绝（ErrDuplicate）
func (s *Store) UpdateUsername(ctx context.Context, id, username string, tokens storage.SessionTokens) error {
	update := append(tokenFields(tokens), bson.E{Key: "username", Value: username})
	return updateFields(ctx, s.col(ColUsers), byID(id), update)
}

// tokenFields 构建令牌更新字段，空值不修改
func tokenFields(tokens storage.SessionTokens) bson.D {
	update := bson.D{{Key: "updatedAt", Value: time.Now()}}
	if tokens.AccessToken != "" {
		update = append(update, bson.E{Key: "access_token", Value: tokens.AccessToken})
	}
	if tokens.RefreshToken != "" {
		update = append(update, bson.E{Key: "refresh_token", Value: tokens.RefreshToken})
	}
	return update
}
