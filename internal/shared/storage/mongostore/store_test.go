package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

// testStore 创建测试用 Store，使用独立数据库避免污染
func testStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	dbName := "content_platform_test"
	s, err := NewStore(uri, dbName)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	// 清空测试数据库
	ctx := context.Background()
	if err := s.db.Drop(ctx); err != nil {
		t.Fatalf("Failed to drop test database: %v", err)
	}
	// 重新创建索引
	if err := s.ensureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close()
	})

	return s
}

// Compile-time interface check
var _ storage.PersistentStore = (*Store)(nil)

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func TestUserCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	user := &model.User{
		ID:           model.NewID(),
		Username:     "Alice",
		Hash:         "hash",
		Permissions:  model.PermissionDefaultUser,
		AccessToken:  "session-1",
		RefreshToken: "refresh-1",
		CreatedAt:    now(),
		UpdatedAt:    now(),
	}

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// 用户名重复
	dup := *user
	dup.ID = model.NewID()
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate CreateUser error = %v, want ErrDuplicate", err)
	}

	got, err := s.GetUserByRefreshToken(ctx, "refresh-1")
	if err != nil {
		t.Fatalf("GetUserByRefreshToken: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %q, want %q", got.ID, user.ID)
	}

	// 大小写不敏感查找
	found, err := s.FindUsersByUsernames(ctx, []string{"alice", "nobody"})
	if err != nil {
		t.Fatalf("FindUsersByUsernames: %v", err)
	}
	if len(found) != 1 || found[0].ID != user.ID {
		t.Errorf("FindUsersByUsernames = %v, want [%s]", found, user.ID)
	}

	if err := s.UpdateUserTokens(ctx, user.ID, storage.SessionTokens{AccessToken: "session-2"}); err != nil {
		t.Fatalf("UpdateUserTokens: %v", err)
	}
	got, _ = s.GetUserByID(ctx, user.ID)
	if got.AccessToken != "session-2" || got.RefreshToken != "refresh-1" {
		t.Errorf("tokens = (%q, %q), want (session-2, refresh-1)", got.AccessToken, got.RefreshToken)
	}

	if err := s.DeleteUserByUsername(ctx, "Alice"); err != nil {
		t.Fatalf("DeleteUserByUsername: %v", err)
	}
	if err := s.DeleteUserByUsername(ctx, "Alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestUsernameCaseInsensitive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	newUser := func(name string) *model.User {
		return &model.User{ID: model.NewID(), Username: name, Hash: "hash", CreatedAt: now(), UpdatedAt: now()}
	}
	alice := newUser("Alice")
	bob := newUser("bob")
	for _, u := range []*model.User{alice, bob} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser(%s): %v", u.Username, err)
		}
	}

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"create case variant", func() error { return s.CreateUser(ctx, newUser("alice")) }, storage.ErrDuplicate},
		{"rename onto case variant", func() error {
			return s.UpdateUsername(ctx, bob.ID, "ALICE", storage.SessionTokens{})
		}, storage.ErrDuplicate},
		{"rename own case", func() error {
			return s.UpdateUsername(ctx, bob.ID, "Bob", storage.SessionTokens{})
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	got, err := s.GetUserByUsername(ctx, "aLiCe")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != alice.ID {
		t.Errorf("ID = %q, want %q", got.ID, alice.ID)
	}
	if err := s.DeleteUserByUsername(ctx, "ALICE"); err != nil {
		t.Fatalf("DeleteUserByUsername: %v", err)
	}
	if _, err := s.GetUserByID(ctx, alice.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after delete error = %v, want ErrNotFound", err)
	}
}

func TestResourcePopulateAndOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	owner := &model.User{ID: model.NewID(), Username: "owner", Permissions: model.PermissionDefaultUser, CreatedAt: now()}
	if err := s.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	base := now()
	for i, sub := range []string{"2023", "2025", "2024", "2025"} {
		r := &model.Resource{
			ID:           model.NewID(),
			Title:        sub,
			Category:     model.Category{Main: "COGS 402", Sub: sub},
			Owner:        owner.ID,
			ResourceLink: "https://example.com",
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}
		if err := s.CreateResource(ctx, r); err != nil {
			t.Fatalf("CreateResource: %v", err)
		}
	}

	views, err := s.ListResourcesByCategory(ctx, "COGS 402")
	if err != nil {
		t.Fatalf("ListResourcesByCategory: %v", err)
	}
	wantSubs := []string{"2025", "2025", "2024", "2023"}
	if len(views) != len(wantSubs) {
		t.Fatalf("len = %d, want %d", len(views), len(wantSubs))
	}
	for i, v := range views {
		if v.Category.Sub != wantSubs[i] {
			t.Errorf("views[%d].sub = %q, want %q", i, v.Category.Sub, wantSubs[i])
		}
		if v.Owner.Username != "owner" {
			t.Errorf("views[%d].owner.username = %q, want owner", i, v.Owner.Username)
		}
	}
	// 同一子分类内按创建时间降序
	if !views[0].CreatedAt.After(views[1].CreatedAt) {
		t.Errorf("expected createdAt descending within sub-category")
	}

	if _, err := s.GetResourceView(ctx, model.NewID()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetResourceView(missing) error = %v, want ErrNotFound", err)
	}
}

func TestProjectUpdateByName(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"NOVA", "ATLAS"} {
		p := &model.Project{ID: model.NewID(), Name: name, Members: []string{}, CreatedAt: now()}
		if err := s.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject(%s): %v", name, err)
		}
	}

	desc := "updated"
	got, err := s.UpdateProject(ctx, "NOVA", model.ProjectUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if got.Description != "updated" {
		t.Errorf("Description = %q, want updated", got.Description)
	}

	// 改名为已存在的名称
	clash := "ATLAS"
	if _, err := s.UpdateProject(ctx, "NOVA", model.ProjectUpdate{Name: &clash}); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("rename clash error = %v, want ErrDuplicate", err)
	}

	if _, err := s.UpdateProject(ctx, "missing", model.ProjectUpdate{Description: &desc}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("update missing error = %v, want ErrNotFound", err)
	}
}

func TestRunQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		m := &model.Member{ID: model.NewID(), Name: model.MemberName{FirstName: name}, Project: "NOVA", CreatedAt: now()}
		if err := s.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember: %v", err)
		}
	}

	rows, err := s.RunQuery(ctx, &model.Query{
		Target: model.QueryTargetMember,
		Pipeline: []map[string]any{
			{"$match": map[string]any{"project": "NOVA"}},
			{"$count": "total"},
		},
	})
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %v, want 1 row", rows)
	}
	if total, _ := rows[0]["total"].(int32); total != 3 {
		t.Errorf("total = %v, want 3", rows[0]["total"])
	}
}
