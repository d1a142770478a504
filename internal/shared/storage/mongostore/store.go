// Package mongostore 实现基于 MongoDB 的 PersistentStore
//
// 使用 mongo-go-driver v2，通过 bson tag 实现 model 结构体的序列化/反序列化。
// 所有 Collection 名称和索引在 ensureIndexes 中统一管理。
package mongostore

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection 名称常量
const (
	ColUsers     = "users"
	ColMembers   = "members"
	ColProjects  = "projects"
	ColResources = "resources"
	ColSnapshots = "snapshots"
)

// Store 实现 storage.PersistentStore 接口的 MongoDB 驱动
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore 创建 MongoDB 存储实例
//
// uri: MongoDB 连接 URI，如 "mongodb://localhost:27017"
// dbName: 数据库名称，如 "vcl_content_platform"
func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	// 验证连接
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{client: client, db: db}

	// 创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		log.Printf("WARNING: mongostore: ensure indexes failed: %v", err)
	}

	return s, nil
}

// Close 关闭 MongoDB 连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// col 获取指定 Collection
func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// ensureIndexes 创建所有必要的索引
func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col       string
		keys      bson.D
		unique    bool
		collation *options.Collation
	}

	indexes := []idx{
		// users
		{ColUsers, bson.D{{Key: "username", Value: 1}}, true, usernameCollation},
		{ColUsers, bson.D{{Key: "refresh_token", Value: 1}}, false, nil},

		// members
		{ColMembers, bson.D{{Key: "project", Value: 1}}, false, nil},

		// projects
		{ColProjects, bson.D{{Key: "name", Value: 1}}, true, nil},

		// resources
		{ColResources, bson.D{{Key: "category.main", Value: 1}, {Key: "category.sub", Value: -1}, {Key: "createdAt", Value: -1}}, false, nil},
		{ColResources, bson.D{{Key: "owner", Value: 1}}, false, nil},

		// snapshots
		{ColSnapshots, bson.D{{Key: "project", Value: 1}}, false, nil},
		{ColSnapshots, bson.D{{Key: "date", Value: -1}}, false, nil},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique || i.collation != nil {
			opts := options.Index().SetUnique(i.unique)
			if i.collation != nil {
				// 与同键的大小写敏感索引（默认名 <key>_1）区分名称
				opts.SetName(i.keys[0].Key + "_ci").SetCollation(i.collation)
			}
			model.Options = opts
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
