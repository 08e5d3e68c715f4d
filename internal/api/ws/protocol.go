package ws

import (
	"errors"

	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
)

// ClientMessageType is the closed set of inbound frame types.
type ClientMessageType string

const (
	MsgBoardLeave    ClientMessageType = "board:leave"
	MsgElementCreate ClientMessageType = "element:create"
	MsgElementUpdate ClientMessageType = "element:update"
	MsgElementDelete ClientMessageType = "element:delete"
	MsgCursorMove    ClientMessageType = "cursor:move"
	MsgPing          ClientMessageType = "ping"
)

// ClientMessage is the inbound frame envelope. ID is a client-chosen
// request id echoed back on the ack or error; payload fields are populated
// per Type. On update and delete, Version is the element version the
// client last observed; a mutation racing past it is rejected as stale.
type ClientMessage struct {
	Type      ClientMessageType    `json:"type"`
	ID        string               `json:"id,omitempty"`
	Element   *domain.Element      `json:"element,omitempty"`
	ElementID uuid.UUID            `json:"element_id,omitzero"`
	Patch     *domain.ElementPatch `json:"patch,omitempty"`
	Version   int64                `json:"version,omitempty"`
	Cursor    *domain.Cursor       `json:"cursor,omitempty"`
}

// ErrorCode is the wire form of the engine's error taxonomy.
type ErrorCode string

const (
	CodeForbidden    ErrorCode = "Forbidden"
	CodeNotFound     ErrorCode = "NotFound"
	CodeConflict     ErrorCode = "Conflict"
	CodeStaleVersion ErrorCode = "StaleVersion"
	CodeValidation   ErrorCode = "ValidationError"
	CodeInternal     ErrorCode = "Internal"
)

// errorCodeFor maps domain sentinels onto wire codes.
func errorCodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrConflict):
		return CodeConflict
	case errors.Is(err, domain.ErrStaleVersion):
		return CodeStaleVersion
	case errors.Is(err, domain.ErrValidation):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// Outbound frame envelopes. Committed deltas and presence changes are
// realtime.Event frames marshaled as-is; these cover the request/ack side.

type joinedFrame struct {
	Type     string            `json:"type"` // "board:joined"
	BoardID  uuid.UUID         `json:"board_id"`
	ConnID   uuid.UUID         `json:"conn_id"`
	Role     domain.Role       `json:"role"`
	Elements []*domain.Element `json:"elements"`
	Presence []*domain.Session `json:"presence"`
}

type ackFrame struct {
	Type    string          `json:"type"` // "ack"
	ID      string          `json:"id,omitempty"`
	Element *domain.Element `json:"element,omitempty"`
	OK      bool            `json:"ok"`
}

type errorFrame struct {
	Type    string    `json:"type"` // "error"
	ID      string    `json:"id,omitempty"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

type pongFrame struct {
	Type string `json:"type"` // "pong"
	ID   string `json:"id,omitempty"`
}

// errorFrameFor builds the error envelope for a failed request. The raw
// error text stays in server logs; clients get the code only.
func errorFrameFor(id string, err error) errorFrame {
	return errorFrame{Type: "error", ID: id, Code: errorCodeFor(err)}
}
