package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermission_Valid(t *testing.T) {
	tests := []struct {
		perm Permission
		want bool
	}{
		{PermissionDefaultUser, true},
		{PermissionAdmin, true},
		{Permission("member"), false},
		{Permission(""), false},
		{Permission("ADMIN"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.perm.Valid(), "Permission(%q).Valid()", tt.perm)
	}
}

// TestUser_JSONHidesCredentials 密码哈希和令牌不能出现在 JSON 中
func TestUser_JSONHidesCredentials(t *testing.T) {
	u := User{
		ID:           "65a000000000000000000001",
		Username:     "alice",
		Hash:         "$2a$10$secret",
		Permissions:  PermissionAdmin,
		AccessToken:  "session-id",
		RefreshToken: "refresh-token",
		CreatedAt:    time.Now(),
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "alice", m["username"])
	assert.Equal(t, "admin", m["permissions"])
	assert.NotContains(t, m, "hash")
	assert.NotContains(t, m, "access_token")
	assert.NotContains(t, m, "refresh_token")
	assert.NotContains(t, m, "member")
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "bob", NormalizeUsername("  bob\t"))
	assert.Equal(t, "", NormalizeUsername("   "))
}
