package resource

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-platform/internal/apiserver/apitest"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/objstore"
)

const validResource = `{"title":"Attention Is All You Need","category":{"main":"papers","sub":"nlp"},"resource_link":"https://arxiv.org/abs/1706.03762"}`

func newEnv(t *testing.T, objects objstore.Store) *apitest.Env {
	env := apitest.NewEnv(t)
	NewHandler(env.Store, objects, env.Guard).RegisterRoutes(env.Mux)
	return env
}

func createResource(t *testing.T, env *apitest.Env, token, body string) model.Resource {
	t.Helper()
	rec := env.Do(http.MethodPost, "/api/resources", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return apitest.Data[model.Resource](t, rec)
}

func TestCreateResource(t *testing.T) {
	env := newEnv(t, nil)
	user, token := env.User(t, "alice", model.PermissionDefaultUser)

	tests := []struct {
		name    string
		token   string
		body    string
		status  int
		message string
	}{
		{"anonymous", "", validResource, http.StatusBadRequest, "Invalid access - must be a member to create a new resource."},
		{"bad link", token, `{"title":"x","category":{"main":"a","sub":"b"},"resource_link":"ftp://x"}`, http.StatusBadRequest, invalidBodyMessage},
		{"missing category", token, `{"title":"x","resource_link":"https://x.org"}`, http.StatusBadRequest, invalidBodyMessage},
		{"created", token, validResource, http.StatusOK, "Successfully created new resource"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.Do(http.MethodPost, "/api/resources", tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, apitest.Decode(t, rec).Message)
			if tt.status == http.StatusOK {
				assert.Equal(t, user.ID, apitest.Data[model.Resource](t, rec).Owner)
			}
		})
	}
}

// 成员 → 关联成员的用户 → 该用户创建资源 → 读取时填充所有者 → 他人修改失败 → 所有者修改成功
func TestResourceOwnershipFlow(t *testing.T) {
	env := newEnv(t, nil)
	ctx := context.Background()

	member := &model.Member{ID: model.NewID(), Name: model.MemberName{FirstName: "Ada", LastName: "Lovelace"}}
	require.NoError(t, env.Store.CreateMember(ctx, member))

	owner, err := env.Tokens.CreateUser(ctx, "ada", apitest.Password, model.PermissionDefaultUser, member.ID)
	require.NoError(t, err)
	ownerPair, _, err := env.Tokens.Login(ctx, "ada", apitest.Password)
	require.NoError(t, err)
	_, otherToken := env.User(t, "bob", model.PermissionDefaultUser)

	created := createResource(t, env, ownerPair.AccessToken, validResource)
	assert.Equal(t, owner.ID, created.Owner)

	rec := env.Do(http.MethodGet, "/api/resources/"+created.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := apitest.Data[model.ResourceView](t, rec)
	assert.Equal(t, owner.ID, view.Owner.ID)
	assert.Equal(t, "ada", view.Owner.Username)

	rec = env.Do(http.MethodPatch, "/api/resources/"+created.ID, otherToken, `{"title":"hijacked"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, updateDenied, apitest.Decode(t, rec).Message)

	rec = env.Do(http.MethodPatch, "/api/resources/"+created.ID, ownerPair.AccessToken, `{"title":"Attention (v2)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully updated resource", apitest.Decode(t, rec).Message)
	assert.Equal(t, "Attention (v2)", apitest.Data[model.ResourceView](t, rec).Title)

	// 改名后所有权随账号保留
	renamed, err := env.Tokens.ChangeUsername(ctx, owner.ID, "ada.lovelace")
	require.NoError(t, err)
	rec = env.Do(http.MethodPatch, "/api/resources/"+created.ID, renamed.AccessToken, `{"title":"Attention (v3)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Attention (v3)", apitest.Data[model.ResourceView](t, rec).Title)
}

func TestUpdateResource(t *testing.T) {
	env := newEnv(t, nil)
	_, ownerToken := env.User(t, "alice", model.PermissionDefaultUser)
	_, adminToken := env.User(t, "root", model.PermissionAdmin)
	created := createResource(t, env, ownerToken, validResource)

	tests := []struct {
		name   string
		id     string
		token  string
		body   string
		status int
	}{
		{"anonymous", created.ID, "", `{"title":"x"}`, http.StatusBadRequest},
		{"unknown id", model.NewID(), ownerToken, `{"title":"x"}`, http.StatusNotFound},
		{"empty body", created.ID, ownerToken, `{}`, http.StatusBadRequest},
		{"owner field not writable", created.ID, ownerToken, `{"owner":"someone"}`, http.StatusBadRequest},
		{"admin", created.ID, adminToken, `{"category":{"main":"papers","sub":"vision"}}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.Do(http.MethodPatch, "/api/resources/"+tt.id, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.Do(http.MethodPatch, "/api/resources/"+model.NewID(), ownerToken, `{"title":"x"}`)
	assert.Contains(t, apitest.Decode(t, rec).Message, "to update")
}

func TestDeleteResource(t *testing.T) {
	env := newEnv(t, nil)
	_, ownerToken := env.User(t, "alice", model.PermissionDefaultUser)
	_, otherToken := env.User(t, "bob", model.PermissionDefaultUser)
	created := createResource(t, env, ownerToken, validResource)

	rec := env.Do(http.MethodDelete, "/api/resources/"+created.ID, otherToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, deleteDenied, apitest.Decode(t, rec).Message)

	rec = env.Do(http.MethodDelete, "/api/resources/"+created.ID, ownerToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.Do(http.MethodDelete, "/api/resources/"+created.ID, ownerToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.Do(http.MethodGet, "/api/resources/"+created.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListByCategory(t *testing.T) {
	env := newEnv(t, nil)
	_, token := env.User(t, "alice", model.PermissionDefaultUser)

	for _, sub := range []string{"nlp", "vision", "nlp", "ml"} {
		createResource(t, env, token, `{"title":"`+sub+`","category":{"main":"papers","sub":"`+sub+`"},"resource_link":"https://example.org"}`)
		time.Sleep(time.Millisecond)
	}
	createResource(t, env, token, `{"title":"talk","category":{"main":"talks","sub":"nlp"},"resource_link":"https://example.org"}`)

	rec := env.Do(http.MethodGet, "/api/resources/category/papers", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully retrieved all Resources in category", apitest.Decode(t, rec).Message)

	groups := apitest.Data[[][]model.ResourceView](t, rec)
	require.Len(t, groups, 3)
	assert.Equal(t, "vision", groups[0][0].Category.Sub)
	assert.Len(t, groups[1], 2)
	assert.Equal(t, "nlp", groups[1][0].Category.Sub)
	assert.Equal(t, "ml", groups[2][0].Category.Sub)
	assert.Equal(t, "alice", groups[0][0].Owner.Username)

	rec = env.Do(http.MethodGet, "/api/resources/category/unknown", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, apitest.Data[[][]model.ResourceView](t, rec))
}

func uploadRequest(t *testing.T, path, token, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(DocumentField, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPut, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestDocumentUploadAndDownload(t *testing.T) {
	objects := objstore.NewMemoryStore()
	env := newEnv(t, objects)
	_, ownerToken := env.User(t, "alice", model.PermissionDefaultUser)
	_, otherToken := env.User(t, "bob", model.PermissionDefaultUser)
	created := createResource(t, env, ownerToken, validResource)
	path := "/api/resources/" + created.ID + "/document"

	rec := env.Do(http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.Serve(uploadRequest(t, path, otherToken, "paper.pdf", []byte("nope")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.Serve(uploadRequest(t, path, ownerToken, "paper.PDF", []byte("%PDF-1.4 first")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	firstKey := apitest.Data[map[string]string](t, rec)["document"]
	assert.Regexp(t, `^resources/`+created.ID+`/[0-9a-f-]{36}\.pdf$`, firstKey)

	rec = env.Serve(uploadRequest(t, path, ownerToken, "paper.pdf", []byte("%PDF-1.4 second")))
	require.Equal(t, http.StatusOK, rec.Code)

	// 替换后旧对象被删除
	_, err := objects.Download(context.Background(), firstKey)
	assert.ErrorIs(t, err, objstore.ErrObjectNotFound)

	rec = env.Do(http.MethodGet, path, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 second", rec.Body.String())

	rec = env.Do(http.MethodDelete, "/api/resources/"+created.ID, ownerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.Do(http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentUploadWithoutStorage(t *testing.T) {
	env := newEnv(t, nil)
	_, token := env.User(t, "alice", model.PermissionDefaultUser)
	created := createResource(t, env, token, validResource)

	rec := env.Serve(uploadRequest(t, "/api/resources/"+created.ID+"/document", token, "a.txt", []byte("x")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
