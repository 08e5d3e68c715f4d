package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mural/internal/auth"
	"github.com/gosuda/mural/internal/domain"
)

// mockUserRepo is a configurable mock implementing domain.UserRepository.
// It captures calls and returns preconfigured responses.
type mockUserRepo struct {
	getByEmailUser *domain.User
	getByEmailErr  error

	getByIDUser *domain.User
	getByIDErr  error

	createErr   error
	createdUser *domain.User // captures the user passed to Create.
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) error {
	m.createdUser = u
	return m.createErr
}

func (m *mockUserRepo) GetByID(context.Context, uuid.UUID) (*domain.User, error) {
	return m.getByIDUser, m.getByIDErr
}

func (m *mockUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return m.getByEmailUser, m.getByEmailErr
}

func (m *mockUserRepo) Update(context.Context, *domain.User) error { return nil }

func newService(repo domain.UserRepository) *auth.Service {
	return auth.NewService(repo, "test-secret", 15*time.Minute, 24*time.Hour)
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user with hashed password", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepo{getByEmailErr: domain.ErrNotFound}
		svc := newService(repo)

		user, err := svc.Register(context.Background(), "ada@example.com", "hunter22", "Ada")
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, "Ada", user.Name)
		assert.NotEqual(t, uuid.Nil, user.ID)
		// Plaintext never stored.
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotContains(t, user.PasswordHash, "hunter22")
		assert.Same(t, user, repo.createdUser)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepo{getByEmailUser: &domain.User{ID: uuid.New(), Email: "ada@example.com"}}
		svc := newService(repo)

		_, err := svc.Register(context.Background(), "ada@example.com", "hunter22", "Ada")
		assert.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	})

	t.Run("repo failure surfaces", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepo{getByEmailErr: domain.ErrNotFound, createErr: errors.New("insert failed")}
		svc := newService(repo)

		_, err := svc.Register(context.Background(), "ada@example.com", "hunter22", "Ada")
		assert.ErrorContains(t, err, "insert failed")
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	registered := func(t *testing.T, password string) (*mockUserRepo, *auth.Service) {
		t.Helper()
		repo := &mockUserRepo{getByEmailErr: domain.ErrNotFound}
		svc := newService(repo)
		user, err := svc.Register(context.Background(), "ada@example.com", password, "Ada")
		require.NoError(t, err)
		repo.getByEmailErr = nil
		repo.getByEmailUser = user
		return repo, svc
	}

	t.Run("valid credentials yield token pair", func(t *testing.T) {
		t.Parallel()

		repo, svc := registered(t, "hunter22")

		access, refresh, err := svc.Login(context.Background(), "ada@example.com", "hunter22")
		require.NoError(t, err)
		require.NotEmpty(t, access)
		require.NotEmpty(t, refresh)

		claims, err := auth.ValidateToken("test-secret", access)
		require.NoError(t, err)
		assert.Equal(t, repo.getByEmailUser.ID.String(), claims.UserID)
		assert.Equal(t, "access", claims.TokenType)

		claims, err = auth.ValidateToken("test-secret", refresh)
		require.NoError(t, err)
		assert.Equal(t, "refresh", claims.TokenType)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		t.Parallel()

		_, svc := registered(t, "hunter22")

		_, _, err := svc.Login(context.Background(), "ada@example.com", "hunter23")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email rejected", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepo{getByEmailErr: domain.ErrNotFound}
		svc := newService(repo)

		_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_RefreshToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("valid refresh token issues new access token", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepo{getByIDUser: &domain.User{ID: userID}}
		svc := newService(repo)

		refresh, err := auth.IssueRefreshToken("test-secret", userID, time.Hour)
		require.NoError(t, err)

		access, err := svc.RefreshToken(context.Background(), refresh)
		require.NoError(t, err)

		claims, err := auth.ValidateToken("test-secret", access)
		require.NoError(t, err)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("access token cannot be used as refresh token", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepo{getByIDUser: &domain.User{ID: userID}}
		svc := newService(repo)

		access, err := auth.IssueAccessToken("test-secret", userID, time.Hour)
		require.NoError(t, err)

		_, err = svc.RefreshToken(context.Background(), access)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("deleted user rejected", func(t *testing.T) {
		t.Parallel()

		repo := &mockUserRepo{getByIDErr: domain.ErrNotFound}
		svc := newService(repo)

		refresh, err := auth.IssueRefreshToken("test-secret", userID, time.Hour)
		require.NoError(t, err)

		_, err = svc.RefreshToken(context.Background(), refresh)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}
