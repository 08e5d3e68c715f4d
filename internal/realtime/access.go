package realtime

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
)

// ResolveRole derives a user's effective role on a board from the ownership
// and membership records the caller already holds. Pure function: no I/O,
// no side effects.
//
// Owner wins over any membership entry. A stored membership role that is not
// in the closed role set never grants access.
func ResolveRole(b *domain.Board, userID uuid.UUID) (domain.Role, error) {
	if b.OwnerID == userID {
		return domain.RoleOwner, nil
	}

	if role, ok := b.MemberRole(userID); ok {
		if !role.Valid() {
			return "", fmt.Errorf("realtime.ResolveRole: unknown stored role %q: %w", role, domain.ErrForbidden)
		}
		return role, nil
	}

	if b.IsPublic {
		return domain.RoleViewer, nil
	}

	return "", fmt.Errorf("realtime.ResolveRole: %w", domain.ErrForbidden)
}
