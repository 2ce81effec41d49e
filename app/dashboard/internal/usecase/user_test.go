package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/competitor_radar/app/dashboard/internal/domain"
)

// mockUserRepo 模拟用户仓库
type mockUserRepo struct {
	users map[string]*domain.User
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, errors.NotFound("USER_NOT_FOUND", "user not found")
	}
	return u, nil
}

func newUserUseCase(t *testing.T) *UserUseCase {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockUserRepo{users: map[string]*domain.User{
		"analyst": {Username: "analyst", PasswordHash: string(hash)},
	}}
	return NewUserUseCase(repo, &conf.Auth{JwtKey: "test-key"}, log.DefaultLogger)
}

func TestUserUseCase_LoginAndAuthenticate(t *testing.T) {
	uc := newUserUseCase(t)
	issued := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return issued }

	token, exp, err := uc.Login(context.Background(), "analyst", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, issued.Add(24*time.Hour), exp)

	uc.now = func() time.Time { return issued.Add(time.Hour) }
	sess, err := uc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "analyst", sess.Username)
	assert.True(t, sess.IssuedAt.Equal(issued))
}

func TestUserUseCase_LoginRejected(t *testing.T) {
	uc := newUserUseCase(t)

	_, _, err := uc.Login(context.Background(), "analyst", "wrong")
	assert.True(t, errors.IsUnauthorized(err))

	_, _, err = uc.Login(context.Background(), "nobody", "s3cret")
	assert.True(t, errors.IsUnauthorized(err))
	assert.Equal(t, "AUTH_FAILED", errors.Reason(err), "unknown users look like bad passwords")
}

func TestUserUseCase_AuthenticateRejects(t *testing.T) {
	uc := newUserUseCase(t)
	issued := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return issued }
	token, _, err := uc.Login(context.Background(), "analyst", "s3cret")
	require.NoError(t, err)

	_, err = uc.Authenticate(context.Background(), "")
	assert.Equal(t, "TOKEN_MISSING", errors.Reason(err))

	uc.now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err = uc.Authenticate(context.Background(), token)
	assert.True(t, errors.IsUnauthorized(err), "expired")

	other := NewUserUseCase(uc.repo, &conf.Auth{JwtKey: "another-key"}, log.DefaultLogger)
	other.now = func() time.Time { return issued }
	_, err = other.Authenticate(context.Background(), token)
	assert.Equal(t, "TOKEN_INVALID", errors.Reason(err), "signed with another key")

	_, err = uc.Authenticate(context.Background(), "not-a-jwt")
	assert.True(t, errors.IsUnauthorized(err))
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	ctx := NewSessionContext(context.Background(), sessionFor("analyst"))
	s, ok := SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "analyst", s.Username)
}
