package realtime_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mural/internal/domain"
	"github.com/gosuda/mural/internal/realtime"
)

func TestResolveRole(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	editor := uuid.New()
	viewer := uuid.New()
	stranger := uuid.New()

	board := func(isPublic bool) *domain.Board {
		return &domain.Board{
			ID:      uuid.New(),
			OwnerID: owner,
			Members: []domain.Member{
				{UserID: editor, Role: domain.RoleEditor},
				{UserID: viewer, Role: domain.RoleViewer},
			},
			IsPublic: isPublic,
		}
	}

	tests := []struct {
		name     string
		isPublic bool
		userID   uuid.UUID
		want     domain.Role
		wantErr  bool
	}{
		{"owner on private board", false, owner, domain.RoleOwner, false},
		{"editor member", false, editor, domain.RoleEditor, false},
		{"viewer member", false, viewer, domain.RoleViewer, false},
		{"stranger on private board", false, stranger, "", true},
		{"stranger on public board gets viewer", true, stranger, domain.RoleViewer, false},
		{"member role unaffected by public flag", true, editor, domain.RoleEditor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := realtime.ResolveRole(board(tt.isPublic), tt.userID)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRole_OwnerBeatsMembership(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	b := &domain.Board{
		ID:      uuid.New(),
		OwnerID: owner,
		// Stale membership row for the owner must not demote them.
		Members: []domain.Member{{UserID: owner, Role: domain.RoleViewer}},
	}

	role, err := realtime.ResolveRole(b, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, role)
}

func TestResolveRole_CorruptStoredRoleDenied(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	b := &domain.Board{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Members: []domain.Member{{UserID: userID, Role: "admin"}},
		// Even a public board must not grant access through a corrupt row.
		IsPublic: true,
	}

	_, err := realtime.ResolveRole(b, userID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
