package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of access levels a user can hold on a board.
// Authorization points switch exhaustively on this type; adding a role
// without updating every switch is a compile-visible change, not a silent
// bypass.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// CanEdit reports whether the role may create, update, or delete elements.
// Viewers may still broadcast cursor positions.
func (r Role) CanEdit() bool {
	switch r {
	case RoleOwner, RoleEditor:
		return true
	case RoleViewer:
		return false
	default:
		return false
	}
}

// Member is one membership entry on a board. The owner is recorded on the
// board itself and never appears as a member entry.
type Member struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

type Board struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	Members     []Member
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MemberRole returns the stored role for userID, or false if userID is not
// a member. The owner is not a member; callers check OwnerID first.
func (b *Board) MemberRole(userID uuid.UUID) (Role, bool) {
	for _, m := range b.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

type BoardRepository interface {
	Create(ctx context.Context, b *Board) error
	GetByID(ctx context.Context, id uuid.UUID) (*Board, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Board, error)
	Update(ctx context.Context, b *Board) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Membership
	UpsertMember(ctx context.Context, boardID uuid.UUID, m Member) error
	RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error
}

// SnapshotRepository persists the full element map of a board. Load returns
// ErrNotFound when no snapshot has ever been written for the board.
type SnapshotRepository interface {
	Load(ctx context.Context, boardID uuid.UUID) (map[uuid.UUID]*Element, error)
	Save(ctx context.Context, boardID uuid.UUID, elements map[uuid.UUID]*Element) error
}
