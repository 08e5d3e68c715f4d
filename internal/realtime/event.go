package realtime

import (
	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
)

// EventType is the closed set of broadcast event kinds.
type EventType string

const (
	EventElementCreated EventType = "element:created"
	EventElementUpdated EventType = "element:updated"
	EventElementDeleted EventType = "element:deleted"
	EventUserJoined     EventType = "user:joined"
	EventUserLeft       EventType = "user:left"
	EventCursorMoved    EventType = "cursor:moved"
)

// Event is one committed delta or presence change fanned out to a board's
// sessions. Exactly one of the payload fields is set depending on Type:
// Element for element:created/updated, ElementID for element:deleted,
// Session for user:joined/left, ConnID+Cursor for cursor:moved.
type Event struct {
	Type      EventType       `json:"type"`
	BoardID   uuid.UUID       `json:"board_id"`
	Element   *domain.Element `json:"element,omitempty"`
	ElementID uuid.UUID       `json:"element_id,omitzero"`
	Session   *domain.Session `json:"session,omitempty"`
	ConnID    uuid.UUID       `json:"conn_id,omitzero"`
	Cursor    *domain.Cursor  `json:"cursor,omitempty"`
}
