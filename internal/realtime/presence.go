package realtime

import (
	"sort"

	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
)

// PresenceTracker holds the ephemeral connected-session set of one board,
// cursors included. Like ElementStore it is only touched inside the owning
// actor's turn. Cursor writes overwrite unconditionally; presence has no
// conflict concept.
type PresenceTracker struct {
	sessions map[uuid.UUID]*domain.Session
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{sessions: make(map[uuid.UUID]*domain.Session)}
}

// AddSession registers a session, replacing any previous entry for the same
// connection id.
func (p *PresenceTracker) AddSession(s *domain.Session) {
	p.sessions[s.ConnID] = s
}

// RemoveSession drops a session and returns it, with ok=false when the
// connection was not present (already left or timed out).
func (p *PresenceTracker) RemoveSession(connID uuid.UUID) (*domain.Session, bool) {
	s, ok := p.sessions[connID]
	if ok {
		delete(p.sessions, connID)
	}
	return s, ok
}

// SetCursor overwrites a session's cursor position. Returns false when the
// session is unknown.
func (p *PresenceTracker) SetCursor(connID uuid.UUID, c domain.Cursor) bool {
	s, ok := p.sessions[connID]
	if !ok {
		return false
	}
	s.Cursor = c
	return true
}

// Sessions returns copies of all connected sessions ordered by join time,
// used for the presence list in join acks.
func (p *PresenceTracker) Sessions() []*domain.Session {
	out := make([]*domain.Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnID.String() < out[j].ConnID.String()
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Len returns the number of connected sessions.
func (p *PresenceTracker) Len() int { return len(p.sessions) }
