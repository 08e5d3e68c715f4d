package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cursor is a participant's pointer position on the canvas. Purely
// ephemeral: most recent write wins, no versioning.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Session is one client's live connection to exactly one board. A socket is
// scoped to a single board at upgrade time, so joining another board means a
// new connection (and a new session).
type Session struct {
	ConnID   uuid.UUID `json:"conn_id"`
	UserID   uuid.UUID `json:"user_id"`
	BoardID  uuid.UUID `json:"board_id"`
	Role     Role      `json:"role"`
	Cursor   Cursor    `json:"cursor"`
	JoinedAt time.Time `json:"joined_at"`
}
