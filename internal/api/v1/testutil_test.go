package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
	"github.com/gosuda/mural/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject the authenticated user for DoCtx calls.
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyUserID, userID)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users     domain.UserRepository
	boards    domain.BoardRepository
	snapshots domain.SnapshotRepository
}

func (m *mockDataStore) Users() domain.UserRepository         { return m.users }
func (m *mockDataStore) Boards() domain.BoardRepository       { return m.boards }
func (m *mockDataStore) Snapshots() domain.SnapshotRepository { return m.snapshots }

// ---------------------------------------------------------------------------
// Mock BoardRepository
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	createFunc       func(ctx context.Context, b *domain.Board) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	listByUserFunc   func(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error)
	updateFunc       func(ctx context.Context, b *domain.Board) error
	deleteFunc       func(ctx context.Context, id uuid.UUID) error
	upsertMemberFunc func(ctx context.Context, boardID uuid.UUID, m domain.Member) error
	removeMemberFunc func(ctx context.Context, boardID, userID uuid.UUID) error
}

func (m *mockBoardRepo) Create(ctx context.Context, b *domain.Board) error {
	return m.createFunc(ctx, b)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBoardRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	return m.listByUserFunc(ctx, userID)
}

func (m *mockBoardRepo) Update(ctx context.Context, b *domain.Board) error {
	return m.updateFunc(ctx, b)
}

func (m *mockBoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockBoardRepo) UpsertMember(ctx context.Context, boardID uuid.UUID, member domain.Member) error {
	return m.upsertMemberFunc(ctx, boardID, member)
}

func (m *mockBoardRepo) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	return m.removeMemberFunc(ctx, boardID, userID)
}

// ---------------------------------------------------------------------------
// Mock BoardLiveness
// ---------------------------------------------------------------------------

type mockLiveness struct {
	active map[uuid.UUID]bool
}

func (m *mockLiveness) Active(boardID uuid.UUID) bool {
	return m.active[boardID]
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc func(ctx context.Context, email, password, name string) (*domain.User, error)
	loginFunc    func(ctx context.Context, email, password string) (string, string, error)
	refreshFunc  func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	return m.registerFunc(ctx, email, password, name)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshFunc(ctx, refreshToken)
}
