package snapshot

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-platform/internal/apiserver/apitest"
	"content-platform/internal/shared/model"
)

func newEnv(t *testing.T) (*apitest.Env, *model.User, string) {
	env := apitest.NewEnv(t)
	NewHandler(env.Store, env.Guard).RegisterRoutes(env.Mux)
	user, token := env.User(t, "Alice", model.PermissionDefaultUser)
	return env, user, token
}

func snapshotBody(date, contributors string) string {
	return `{"title":"Kickoff","descriptions":["first meeting"],"hyperlinks":["https://example.org/notes"],` +
		`"date":"` + date + `","project":"atlas","contributors":` + contributors + `}`
}

func createSnapshot(t *testing.T, env *apitest.Env, token, body string) model.Snapshot {
	t.Helper()
	rec := env.Do(http.MethodPost, "/api/snapshots", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return apitest.Data[model.Snapshot](t, rec)
}

func TestCreateSnapshot(t *testing.T) {
	env, _, token := newEnv(t)

	tests := []struct {
		name    string
		token   string
		body    string
		status  int
		message string
	}{
		{"anonymous", "", snapshotBody("2024-03-01", `[]`), http.StatusBadRequest, "Invalid access - must be a member to create a snapshot"},
		{"bad date format", token, snapshotBody("03/01/2024", `[]`), http.StatusBadRequest, "Invalid request body."},
		{"date out of range", token, snapshotBody("1999-03-01", `[]`), http.StatusBadRequest, "Invalid request body."},
		{"not a calendar date", token, snapshotBody("2023-02-30", `[]`), http.StatusBadRequest, "Invalid request body."},
		{"missing descriptions", token, `{"title":"x","hyperlinks":["https://x.org"],"date":"2024-01-01","project":"p"}`, http.StatusBadRequest, "Invalid request body."},
		{"empty hyperlinks", token, `{"title":"x","descriptions":["d"],"hyperlinks":[],"date":"2024-01-01","project":"p"}`, http.StatusBadRequest, "Invalid request body."},
		{"unknown contributor", token, snapshotBody("2024-03-01", `["ghost"]`), http.StatusBadRequest, "Unknown contributors."},
		{"created", token, snapshotBody("2024-03-01", `[]`), http.StatusOK, "Successfully created timeline snapshot."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.Do(http.MethodPost, "/api/snapshots", tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, apitest.Decode(t, rec).Message)
		})
	}
}

func TestCreateSnapshotResolvesContributors(t *testing.T) {
	env, alice, token := newEnv(t)
	bob, _ := env.User(t, "bob", model.PermissionDefaultUser)

	created := createSnapshot(t, env, token, snapshotBody("2024-03-01", `["BOB","alice","Bob"]`))
	assert.Equal(t, []string{bob.ID, alice.ID}, created.Contributors)
	assert.Equal(t, alice.ID, created.Author)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), created.Date)
	assert.NotNil(t, created.Categories)

	rec := env.Do(http.MethodPost, "/api/snapshots", token, snapshotBody("2024-03-01", `["bob","ghost","phantom"]`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"ghost", "phantom"}, apitest.Decode(t, rec).Error)
}

func TestListAndGetSnapshots(t *testing.T) {
	env, _, token := newEnv(t)
	older := createSnapshot(t, env, token, snapshotBody("2023-12-31", `[]`))
	newer := createSnapshot(t, env, token, snapshotBody("2024-06-15", `[]`))

	rec := env.Do(http.MethodGet, "/api/snapshots", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := apitest.Data[[]model.Snapshot](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	rec = env.Do(http.MethodGet, "/api/snapshots/"+older.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully retrieved timeline snapshot", apitest.Decode(t, rec).Message)

	rec = env.Do(http.MethodGet, "/api/snapshots/"+model.NewID(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateSnapshot(t *testing.T) {
	env, _, token := newEnv(t)
	bob, _ := env.User(t, "bob", model.PermissionDefaultUser)
	created := createSnapshot(t, env, token, snapshotBody("2024-03-01", `[]`))
	path := "/api/snapshots/" + created.ID

	tests := []struct {
		name   string
		path   string
		token  string
		body   string
		status int
	}{
		{"anonymous", path, "", `{"title":"x"}`, http.StatusBadRequest},
		{"empty body", path, token, `{}`, http.StatusBadRequest},
		{"invalid date", path, token, `{"date":"2024-04-31"}`, http.StatusBadRequest},
		{"unknown contributor", path, token, `{"contributors":["ghost"]}`, http.StatusBadRequest},
		{"unknown id", "/api/snapshots/" + model.NewID(), token, `{"title":"x"}`, http.StatusNotFound},
		{"updated", path, token, `{"title":"Renamed","date":"2024-02-29","contributors":["BoB"]}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.Do(http.MethodPut, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	stored, err := env.Store.GetSnapshot(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, []string{bob.ID}, stored.Contributors)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), stored.Date)
	assert.Equal(t, []string{"first meeting"}, stored.Descriptions)
}

func TestDeleteSnapshot(t *testing.T) {
	env, _, token := newEnv(t)
	created := createSnapshot(t, env, token, snapshotBody("2024-03-01", `[]`))
	path := "/api/snapshots/" + created.ID

	rec := env.Do(http.MethodDelete, path, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.Do(http.MethodDelete, path, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully deleted timeline snapshot", apitest.Decode(t, rec).Message)

	rec = env.Do(http.MethodDelete, path, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2023-02-30", false},
		{"2023-04-31", false},
		{"2023-12-31", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := parseDate(tt.in)
			assert.Equal(t, tt.valid, err == nil)
		})
	}
}
