package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Boards() domain.BoardRepository
	Snapshots() domain.SnapshotRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// BoardLiveness reports whether a board currently has connected sessions.
// *realtime.Registry satisfies this interface; handlers use it to refuse
// destructive metadata operations on a board that is in session.
type BoardLiveness interface {
	Active(boardID uuid.UUID) bool
}
