package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mural/internal/domain"
	"github.com/gosuda/mural/internal/realtime"
)

// connSender is one connection's outbound lane: a bounded queue of
// pre-marshaled frames drained by the connection's write pump. Enqueueing
// never blocks; a full queue means the client is too slow and the frame is
// dropped (events) or the join fails (snapshot).
type connSender struct {
	frames  chan []byte
	boardID uuid.UUID
	connID  uuid.UUID
	role    domain.Role
}

func newConnSender(buffer int, boardID, connID uuid.UUID, role domain.Role) *connSender {
	return &connSender{
		frames:  make(chan []byte, buffer),
		boardID: boardID,
		connID:  connID,
		role:    role,
	}
}

// Send implements realtime.Sender for broadcast events.
func (s *connSender) Send(ev realtime.Event) bool {
	return s.enqueueJSON(ev)
}

// SendSnapshot implements realtime.Sender. The actor calls this inside the
// join turn, so the snapshot frame is queued ahead of every delta this
// session will receive.
func (s *connSender) SendSnapshot(snap *realtime.JoinSnapshot) bool {
	return s.enqueueJSON(joinedFrame{
		Type:     "board:joined",
		BoardID:  s.boardID,
		ConnID:   s.connID,
		Role:     s.role,
		Elements: snap.Elements,
		Presence: snap.Presence,
	})
}

func (s *connSender) enqueueJSON(v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("outbound frame marshal")
		return false
	}
	return s.enqueue(payload)
}

func (s *connSender) enqueue(payload []byte) bool {
	select {
	case s.frames <- payload:
		return true
	default:
		return false
	}
}
