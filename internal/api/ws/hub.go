package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mural/internal/domain"
	"github.com/gosuda/mural/internal/realtime"
	"github.com/gosuda/mural/internal/server/middleware"
)

// outboundBuffer is the per-connection frame queue depth. A client that
// falls this far behind starts losing events and must resync.
const outboundBuffer = 64

// leaveTimeout bounds the detached-context leave on connection teardown.
const leaveTimeout = 5 * time.Second

// Hub owns the lifecycle of board websocket connections: it authenticates
// the upgrade, resolves the session's role, attaches it to the board's
// actor, and routes inbound frames into that actor's mailbox. One socket
// serves exactly one board; the upgrade itself is the join.
type Hub struct {
	registry         *realtime.Registry
	boards           domain.BoardRepository
	heartbeatTimeout time.Duration
}

// NewHub creates a Hub. Sessions silent longer than heartbeatTimeout are
// disconnected and cleaned up like an explicit leave.
func NewHub(registry *realtime.Registry, boards domain.BoardRepository, heartbeatTimeout time.Duration) *Hub {
	return &Hub{
		registry:         registry,
		boards:           boards,
		heartbeatTimeout: heartbeatTimeout,
	}
}

// ServeBoard handles `GET /ws/board/{boardID}`. Auth middleware has already
// put the user id in the request context; role resolution happens here
// against the board's ownership and membership records.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
	if err != nil {
		http.Error(w, "invalid board id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	h.serveSession(r.Context(), conn, boardID, userID)
}

// serveSession runs the join, the write pump, and the read loop for one
// connection, and guarantees the session leaves its board on the way out.
func (h *Hub) serveSession(ctx context.Context, conn *websocket.Conn, boardID, userID uuid.UUID) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board, err := h.boards.GetByID(ctx, boardID)
	if err != nil {
		h.rejectJoin(ctx, conn, err)
		return
	}

	role, err := realtime.ResolveRole(board, userID)
	if err != nil {
		h.rejectJoin(ctx, conn, err)
		return
	}

	session := &domain.Session{
		ConnID:   uuid.New(),
		UserID:   userID,
		BoardID:  boardID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	sender := newConnSender(outboundBuffer, boardID, session.ConnID, role)

	actor, err := h.registry.Join(ctx, session, sender)
	if err != nil {
		h.rejectJoin(ctx, conn, err)
		return
	}

	log.Debug().
		Str("board_id", boardID.String()).
		Str("conn_id", session.ConnID.String()).
		Str("role", string(role)).
		Msg("session joined")

	go writePump(ctx, conn, sender.frames, cancel)

	h.readLoop(ctx, conn, actor, session, sender, cancel)

	// The request context dies with the connection; leaving must not.
	leaveCtx, cancelLeave := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancelLeave()
	if err := actor.Leave(leaveCtx, session.ConnID); err != nil {
		log.Error().Err(err).Str("conn_id", session.ConnID.String()).Msg("session leave")
	}

	log.Debug().
		Str("board_id", boardID.String()).
		Str("conn_id", session.ConnID.String()).
		Msg("session left")
}

// readLoop decodes inbound frames and forwards them to the board actor
// until the client leaves, goes silent past the heartbeat timeout, or the
// connection errors.
func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, actor *realtime.Actor, session *domain.Session, sender *connSender, cancel context.CancelFunc) {
	watchdog := time.AfterFunc(h.heartbeatTimeout, cancel)
	defer watchdog.Stop()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		watchdog.Reset(h.heartbeatTimeout)

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sender.enqueueJSON(errorFrame{Type: "error", Code: CodeValidation, Message: "malformed frame"})
			continue
		}

		if msg.Type == MsgBoardLeave {
			_ = conn.Close(websocket.StatusNormalClosure, "left board")
			return
		}

		h.dispatch(ctx, actor, session, sender, msg)
	}
}

// dispatch forwards one frame to the actor and acks or errors the request.
// Failed requests never mutate state; the session stays connected.
func (h *Hub) dispatch(ctx context.Context, actor *realtime.Actor, session *domain.Session, sender *connSender, msg ClientMessage) {
	switch msg.Type {
	case MsgElementCreate:
		if msg.Element == nil {
			sender.enqueueJSON(errorFrame{Type: "error", ID: msg.ID, Code: CodeValidation, Message: "element payload required"})
			return
		}
		el, err := actor.CreateElement(ctx, session.ConnID, msg.Element)
		if err != nil {
			sender.enqueueJSON(errorFrameFor(msg.ID, err))
			return
		}
		sender.enqueueJSON(ackFrame{Type: "ack", ID: msg.ID, Element: el, OK: true})

	case MsgElementUpdate:
		if msg.Patch == nil {
			sender.enqueueJSON(errorFrame{Type: "error", ID: msg.ID, Code: CodeValidation, Message: "patch payload required"})
			return
		}
		// The frame carries the version the client observed; the engine
		// wants the successor being proposed.
		el, err := actor.UpdateElement(ctx, session.ConnID, msg.ElementID, *msg.Patch, msg.Version+1)
		if err != nil {
			sender.enqueueJSON(errorFrameFor(msg.ID, err))
			return
		}
		sender.enqueueJSON(ackFrame{Type: "ack", ID: msg.ID, Element: el, OK: true})

	case MsgElementDelete:
		if err := actor.DeleteElement(ctx, session.ConnID, msg.ElementID, msg.Version+1); err != nil {
			sender.enqueueJSON(errorFrameFor(msg.ID, err))
			return
		}
		sender.enqueueJSON(ackFrame{Type: "ack", ID: msg.ID, OK: true})

	case MsgCursorMove:
		if msg.Cursor == nil {
			return
		}
		// Broadcast-only: no ack, any role.
		if err := actor.MoveCursor(ctx, session.ConnID, *msg.Cursor); err != nil {
			log.Debug().Err(err).Str("conn_id", session.ConnID.String()).Msg("cursor move dropped")
		}

	case MsgPing:
		sender.enqueueJSON(pongFrame{Type: "pong", ID: msg.ID})

	default:
		sender.enqueueJSON(errorFrame{Type: "error", ID: msg.ID, Code: CodeValidation, Message: "unknown message type"})
	}
}

// rejectJoin sends the join error as the first and only frame, then closes.
func (h *Hub) rejectJoin(ctx context.Context, conn *websocket.Conn, err error) {
	frame := errorFrameFor("", err)
	if payload, marshalErr := json.Marshal(frame); marshalErr == nil {
		_ = conn.Write(ctx, websocket.MessageText, payload)
	}
	_ = conn.Close(websocket.StatusPolicyViolation, string(frame.Code))
}

// writePump drains the sender queue onto the socket. A write error tears
// the connection down via cancel, which unblocks the read loop.
func writePump(ctx context.Context, conn *websocket.Conn, frames <-chan []byte, cancel context.CancelFunc) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-frames:
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}
