package service

import (
	"context"
	"strings"
	"testing"

	"social-feed-go/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFixture struct {
	svc     UserService
	users   *memUsers
	tokens  *memTokens
	uploads *fakeUploads
	jwt     *token.JWTManager
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:   newMemUsers(),
		tokens:  newMemTokens(),
		uploads: &fakeUploads{},
		jwt:     token.NewJWTManager("test-secret", 1, 7),
	}
	f.svc = NewUserService(f.users, f.tokens, f.uploads, f.jwt)
	return f
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	f := newUserFixture()

	pair, err := f.svc.Register("  alice  ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := f.jwt.VerifyToken(pair.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	_, err = f.svc.Register("alice", "another1")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = f.svc.Login("alice", "secret1")
	require.NoError(t, err)
	_, err = f.svc.Login("alice", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login("nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_RegisterValidation(t *testing.T) {
	f := newUserFixture()
	tests := []struct {
		name, username, password string
	}{
		{"blank username", "   ", "secret1"},
		{"blank password", "bob", ""},
		{"short password", "bob", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUserService_RefreshRotatesAndRevokes(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	pair, err := f.svc.Register("carol", "secret1")
	require.NoError(t, err)

	rotated, err := f.svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// 旧的 refresh token 已被拉黑
	_, err = f.svc.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedRefreshToken)

	// access token 不能当作 refresh token 使用
	_, err = f.svc.RefreshToken(ctx, rotated.Token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.svc.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestUserService_Logout(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	pair, err := f.svc.Register("dave", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, pair.RefreshToken))
	assert.Len(t, f.tokens.revoked, 1)
	for _, ttl := range f.tokens.revoked {
		assert.Greater(t, ttl.Hours(), 24.0*6)
	}

	_, err = f.svc.RefreshToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedRefreshToken)

	// 无效 token 登出视为成功
	assert.NoError(t, f.svc.Logout(ctx, "not-a-token"))
	assert.ErrorIs(t, f.svc.Logout(ctx, ""), ErrInvalidInput)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newUserFixture()
	_, err := f.svc.Register("erin", "secret1")
	require.NoError(t, err)
	_, err = f.svc.Register("frank", "secret1")
	require.NoError(t, err)
	erin, err := f.users.FindByUsername("erin")
	require.NoError(t, err)

	taken := "frank"
	_, err = f.svc.UpdateProfile(erin.ID, ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	blank := "  "
	_, err = f.svc.UpdateProfile(erin.ID, ProfileUpdate{Username: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)

	name, avatar := " erin2 ", "http://img.test/a.png"
	user, err := f.svc.UpdateProfile(erin.ID, ProfileUpdate{Username: &name, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "erin2", user.Username)
	assert.Equal(t, avatar, user.AvatarURL)

	// 保持原用户名不算冲突
	same := "erin2"
	_, err = f.svc.UpdateProfile(erin.ID, ProfileUpdate{Username: &same})
	assert.NoError(t, err)
}

func TestUserService_UpdateAvatar(t *testing.T) {
	f := newUserFixture()
	_, err := f.svc.Register("gina", "secret1")
	require.NoError(t, err)
	gina, _ := f.users.FindByUsername("gina")

	user, err := f.svc.UpdateAvatar(context.Background(), gina.ID, ImageUpload{Filename: "me.png", Size: 10, Reader: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/avatars/me.png", user.AvatarURL)
	assert.Equal(t, []string{ImageKindAvatar}, f.uploads.kinds)

	f.uploads.err = ErrUnsupportedImageType
	_, err = f.svc.UpdateAvatar(context.Background(), gina.ID, ImageUpload{Filename: "me.gif"})
	assert.ErrorIs(t, err, ErrUnsupportedImageType)
}
