package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"content-platform/internal/shared/model"
)

func stages(t *testing.T, raw ...string) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		require.True(t, json.Valid([]byte(r)), r)
		out[i] = json.RawMessage(r)
	}
	return out
}

func TestSanitizeAccepts(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		conditions []string
	}{
		{"empty pipeline", "project", nil},
		{"equality", "member", []string{`{"$match":{"project":"atlas","isAlumni":false}}`}},
		{"dotted field", "member", []string{`{"$match":{"name.lastname":"Lovelace"}}`}},
		{"comparison", "snapshot", []string{`{"$match":{"date":{"$gte":"2024-01-01","$lt":"2025-01-01"}}}`}},
		{"in and exists", "project", []string{`{"$match":{"name":{"$in":["a","b"]},"description":{"$exists":true}}}`}},
		{"regex", "user", []string{`{"$match":{"username":{"$regex":"^al","$options":"i"}}}`}},
		{"logical", "project", []string{`{"$match":{"$or":[{"isActive":true},{"$and":[{"name":{"$ne":"x"}}]}]}}`}},
		{"sort skip limit", "snapshot", []string{`{"$sort":{"date":-1,"title":1}}`, `{"$skip":10}`, `{"$limit":500}`}},
		{"project fields", "member", []string{`{"$project":{"_id":0,"name":1,"project":true}}`}},
		{"count", "user", []string{`{"$match":{"permissions":"admin"}}`, `{"$count":"admins"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Sanitize(tt.collection, stages(t, tt.conditions...))
			require.NoError(t, err)
			assert.Equal(t, model.QueryTarget(tt.collection), q.Target)
		})
	}
}

func TestSanitizeRejects(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		conditions []string
	}{
		{"unknown collection", "resource", nil},
		{"system collection", "system.users", nil},
		{"lookup stage", "user", []string{`{"$lookup":{"from":"users","as":"x"}}`}},
		{"out stage", "project", []string{`{"$out":"stolen"}`}},
		{"two operators", "project", []string{`{"$match":{},"$limit":1}`}},
		{"where operator", "project", []string{`{"$match":{"$where":"sleep(1000)"}}`}},
		{"expr operator", "project", []string{`{"$match":{"$expr":{"$eq":["$name","x"]}}}`}},
		{"hash field", "user", []string{`{"$match":{"hash":{"$exists":true}}}`}},
		{"token in or", "user", []string{`{"$match":{"$or":[{"refresh_token":"x"}]}}`}},
		{"unknown field", "project", []string{`{"$match":{"secret":1}}`}},
		{"nested document value", "project", []string{`{"$match":{"name":{"nested":"x"}}}`}},
		{"object inside in", "project", []string{`{"$match":{"name":{"$in":[{"$gt":""}]}}}`}},
		{"elemMatch", "project", []string{`{"$match":{"members":{"$elemMatch":{"$eq":"x"}}}}`}},
		{"options without regex", "user", []string{`{"$match":{"username":{"$options":"i"}}}`}},
		{"bad regex options", "user", []string{`{"$match":{"username":{"$regex":"a","$options":"g"}}}`}},
		{"limit too large", "project", []string{`{"$limit":501}`}},
		{"limit zero", "project", []string{`{"$limit":0}`}},
		{"fractional skip", "project", []string{`{"$skip":1.5}`}},
		{"negative skip", "project", []string{`{"$skip":-1}`}},
		{"sort direction", "project", []string{`{"$sort":{"name":"asc"}}`}},
		{"sort hidden field", "user", []string{`{"$sort":{"hash":1}}`}},
		{"project expression", "project", []string{`{"$project":{"name":{"$concat":["$name","x"]}}}`}},
		{"project credential", "user", []string{`{"$project":{"access_token":1}}`}},
		{"project mixed", "project", []string{`{"$project":{"name":1,"description":0}}`}},
		{"count dotted", "project", []string{`{"$count":"a.b"}`}},
		{"count operator", "project", []string{`{"$count":"$name"}`}},
		{"stage not object", "project", []string{`[1,2]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sanitize(tt.collection, stages(t, tt.conditions...))
			var v *ViolationError
			assert.ErrorAs(t, err, &v)
		})
	}
}

func TestSanitizeStripsCredentials(t *testing.T) {
	q, err := Sanitize("user", stages(t, `{"$match":{"username":"alice"}}`))
	require.NoError(t, err)
	require.Len(t, q.Pipeline, 2)
	assert.Equal(t, map[string]any{"$unset": credentialFields}, q.Pipeline[1])

	q, err = Sanitize("project", nil)
	require.NoError(t, err)
	assert.Empty(t, q.Pipeline)
}

func TestSanitizeRebuildsValues(t *testing.T) {
	q, err := Sanitize("snapshot", stages(t,
		`{"$match":{"date":{"$gte":"2024-01-01"},"title":"2024-01-01"}}`,
		`{"$sort":{"date":-1,"createdAt":1,"title":-1}}`,
		`{"$limit":20}`,
	))
	require.NoError(t, err)
	require.Len(t, q.Pipeline, 3)

	match := q.Pipeline[0]["$match"].(map[string]any)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), match["date"].(map[string]any)["$gte"])
	assert.Equal(t, "2024-01-01", match["title"], "non-date fields keep strings")

	assert.Equal(t, bson.D{
		{Key: "date", Value: int32(-1)},
		{Key: "createdAt", Value: int32(1)},
		{Key: "title", Value: int32(-1)},
	}, q.Pipeline[1]["$sort"])
	assert.Equal(t, int64(20), q.Pipeline[2]["$limit"])
}

func TestParseTarget(t *testing.T) {
	for _, name := range []string{"user", "member", "project", "snapshot"} {
		target, err := ParseTarget(name)
		require.NoError(t, err)
		assert.Equal(t, model.QueryTarget(name), target)
	}
	_, err := ParseTarget("users")
	assert.Error(t, err)
}
