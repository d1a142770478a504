package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-platform/internal/shared/cache"
	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
	"content-platform/internal/shared/storage/memstore"
)

const testPassword = "password123"

func testConfig() Config {
	return Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour}
}

func newTestService(t *testing.T, sessions cache.SessionCache) (*TokenService, *memstore.Store) {
	t.Helper()
	store := memstore.NewStore()
	return NewTokenService(store, sessions, testConfig()), store
}

func mustCreateUser(t *testing.T, svc *TokenService, username string, perm model.Permission) *model.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), username, testPassword, perm, "")
	require.NoError(t, err)
	return user
}

func mustLogin(t *testing.T, svc *TokenService, username string) *TokenPair {
	t.Helper()
	pair, _, err := svc.Login(context.Background(), username, testPassword)
	require.NoError(t, err)
	return pair
}

// sessionCaches 带缓存与不带缓存两种模式都要满足相同语义
func sessionCaches() map[string]func() cache.SessionCache {
	return map[string]func() cache.SessionCache{
		"no cache":     func() cache.SessionCache { return nil },
		"memory cache": func() cache.SessionCache { return cache.NewMemoryCache(time.Hour) },
	}
}

type countingRecorder struct {
	logins    map[string]int
	rotations map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{logins: map[string]int{}, rotations: map[string]int{}}
}

func (r *countingRecorder) RecordLogin(result string)       { r.logins[result]++ }
func (r *countingRecorder) RecordTokenRotation(kind string) { r.rotations[kind]++ }

// ============================================================================
// JWT
// ============================================================================

func TestSignAndParseToken(t *testing.T) {
	cfg := testConfig()
	user := &model.User{
		ID:          model.NewID(),
		Username:    "alice",
		Permissions: model.PermissionAdmin,
		AccessToken: "session-id-0123456789",
	}

	token, err := signClaims(cfg, user, time.Now())
	require.NoError(t, err)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.AccessToken, claims.ID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Permission)
}

func TestParseTokenRejects(t *testing.T) {
	cfg := testConfig()
	user := &model.User{ID: model.NewID(), Username: "alice", AccessToken: "sid"}

	expired, err := signClaims(cfg, user, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	otherSecret, err := signClaims(Config{JWTSecret: "other", AccessTokenTTL: time.Hour}, user, time.Now())
	require.NoError(t, err)

	noSession, err := signClaims(cfg, &model.User{ID: user.ID, Username: "alice"}, time.Now())
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID, ID: "sid"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", otherSecret},
		{"missing session id", noSession},
		{"alg none", unsigned},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(cfg, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword(testPassword)
	require.NoError(t, err)
	assert.NotEqual(t, testPassword, hash)
	assert.True(t, CheckPassword(testPassword, hash))
	assert.False(t, CheckPassword("wrong-password", hash))
}

func TestIssueTokenPair(t *testing.T) {
	svc, _ := newTestService(t, nil)
	tokens, err := svc.IssueTokenPair()
	require.NoError(t, err)
	assert.Len(t, tokens.AccessToken, tokenLength)
	assert.Len(t, tokens.RefreshToken, tokenLength)
	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
}

// ============================================================================
// 账号
// ============================================================================

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.CreateUser(ctx, "alice", testPassword, model.PermissionDefaultUser, "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, first.RefreshToken)

	_, err = svc.CreateUser(ctx, "alice", testPassword, model.PermissionDefaultUser, "")
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestLogin(t *testing.T) {
	svc, store := newTestService(t, nil)
	ctx := context.Background()
	user := mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)

	first := mustLogin(t, svc, "alice")
	second, loggedIn, err := svc.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, user.RefreshToken, first.RefreshToken, "login keeps the refresh token")
	assert.Equal(t, first.RefreshToken, second.RefreshToken)

	stored, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, user.AccessToken, stored.AccessToken, "login rotates the session id")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t, nil)
	rec := newCountingRecorder()
	svc.SetRecorder(rec)
	mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "not-the-password"},
		{"unknown user", "mallory", testPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, user, err := svc.Login(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Nil(t, pair)
			assert.Nil(t, user)
		})
	}
	assert.Equal(t, 2, rec.logins["failure"])
	assert.Zero(t, rec.logins["success"])
}

// ============================================================================
// 校验与轮换
// ============================================================================

func TestValidate(t *testing.T) {
	for name, newCache := range sessionCaches() {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(t, newCache())
			user := mustCreateUser(t, svc, "alice", model.PermissionAdmin)
			pair := mustLogin(t, svc, "alice")

			caller, err := svc.Validate(context.Background(), pair.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, caller.UserID)
			assert.Equal(t, "alice", caller.Username)
			assert.True(t, caller.IsAdmin())

			_, err = svc.Validate(context.Background(), "")
			assert.ErrorIs(t, err, ErrInvalidToken)
			_, err = svc.Validate(context.Background(), "garbage")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateAfterRotationFails(t *testing.T) {
	for name, newCache := range sessionCaches() {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(t, newCache())
			ctx := context.Background()
			user := mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)
			old := mustLogin(t, svc, "alice")

			_, err := svc.Validate(ctx, old.AccessToken)
			require.NoError(t, err)

			fresh, err := svc.RotateBothTokens(ctx, user.ID)
			require.NoError(t, err)
			assert.NotEqual(t, old.RefreshToken, fresh.RefreshToken)

			_, err = svc.Validate(ctx, old.AccessToken)
			assert.ErrorIs(t, err, ErrInvalidToken)

			caller, err := svc.Validate(ctx, fresh.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, user.ID, caller.UserID)
		})
	}
}

func TestRotateAccessToken(t *testing.T) {
	for name, newCache := range sessionCaches() {
		t.Run(name, func(t *testing.T) {
			svc, store := newTestService(t, newCache())
			ctx := context.Background()
			user := mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)
			old := mustLogin(t, svc, "alice")

			_, err := svc.RotateAccessToken(ctx, "unknown-refresh-token")
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)
			_, err = svc.RotateAccessToken(ctx, "")
			assert.ErrorIs(t, err, ErrInvalidRefreshToken)

			access, err := svc.RotateAccessToken(ctx, old.RefreshToken)
			require.NoError(t, err)
			assert.NotEqual(t, old.AccessToken, access)

			stored, err := store.GetUserByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, old.RefreshToken, stored.RefreshToken, "refresh token is unchanged")

			_, err = svc.Validate(ctx, old.AccessToken)
			assert.ErrorIs(t, err, ErrInvalidToken)
			_, err = svc.Validate(ctx, access)
			assert.NoError(t, err)
		})
	}
}

func TestChangePasswordInvalidatesOldToken(t *testing.T) {
	for name, newCache := range sessionCaches() {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestService(t, newCache())
			ctx := context.Background()
			user := mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)
			old := mustLogin(t, svc, "alice")

			pair, err := svc.ChangePassword(ctx, user.ID, "new-password-456")
			require.NoError(t, err)

			_, err = svc.Validate(ctx, old.AccessToken)
			assert.ErrorIs(t, err, ErrInvalidToken)
			_, err = svc.Validate(ctx, pair.AccessToken)
			assert.NoError(t, err)

			_, _, err = svc.Login(ctx, "alice", testPassword)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			_, _, err = svc.Login(ctx, "alice", "new-password-456")
			assert.NoError(t, err)
		})
	}
}

func TestChangeUsername(t *testing.T) {
	svc, _ := newTestService(t, cache.NewMemoryCache(time.Hour))
	ctx := context.Background()
	alice := mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)
	mustCreateUser(t, svc, "bob", model.PermissionDefaultUser)
	old := mustLogin(t, svc, "alice")

	_, err := svc.ChangeUsername(ctx, alice.ID, "bob")
	assert.True(t, errors.Is(err, storage.ErrDuplicate))

	pair, err := svc.ChangeUsername(ctx, alice.ID, "  carol ")
	require.NoError(t, err)

	_, err = svc.Validate(ctx, old.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	caller, err := svc.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "carol", caller.Username)
}

func TestInvalidateUser(t *testing.T) {
	sessions := cache.NewMemoryCache(time.Hour)
	svc, store := newTestService(t, sessions)
	ctx := context.Background()
	user := mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)
	pair := mustLogin(t, svc, "alice")

	require.NoError(t, store.DeleteUserByUsername(ctx, "alice"))
	svc.InvalidateUser(ctx, user.ID)

	cached, err := sessions.GetSession(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = svc.Validate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRecorderCountsRotations(t *testing.T) {
	svc, _ := newTestService(t, nil)
	rec := newCountingRecorder()
	svc.SetRecorder(rec)
	ctx := context.Background()
	user := mustCreateUser(t, svc, "alice", model.PermissionDefaultUser)
	pair := mustLogin(t, svc, "alice")

	_, err := svc.RotateAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = svc.RotateBothTokens(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.logins["success"])
	assert.Equal(t, 1, rec.rotations["access"])
	assert.Equal(t, 1, rec.rotations["both"])
}
