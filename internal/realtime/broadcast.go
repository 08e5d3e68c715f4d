package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	redisstore "github.com/gosuda/mural/internal/store/redis"
)

// Sender is one session's outbound lane. Neither method may block; false
// means the session cannot keep up and the delivery is abandoned (the
// client reconciles on its next resync).
//
// SendSnapshot is called inside the join turn, before the session is
// attached for broadcasts, so the snapshot frame always precedes every
// delta the session will receive.
type Sender interface {
	Send(ev Event) bool
	SendSnapshot(snap *JoinSnapshot) bool
}

// Router fans committed deltas and presence events out to every attached
// session of a board except, optionally, the originator. With a Redis
// pub/sub relay configured, events also cross node boundaries: each node
// publishes its commits and forwards remote-origin events to its own local
// sessions.
type Router struct {
	mu     sync.RWMutex
	boards map[uuid.UUID]map[uuid.UUID]Sender

	relay  *redisstore.PubSub // nil in single-node deployments
	nodeID uuid.UUID
}

// relayEnvelope is the cross-node wire form of an Event. Origin breaks the
// forwarding loop: a node never re-delivers its own published events.
type relayEnvelope struct {
	Origin  uuid.UUID `json:"origin"`
	Exclude uuid.UUID `json:"exclude,omitzero"`
	Event   Event     `json:"event"`
}

// NewRouter creates a Router. relay may be nil.
func NewRouter(relay *redisstore.PubSub) *Router {
	return &Router{
		boards: make(map[uuid.UUID]map[uuid.UUID]Sender),
		relay:  relay,
		nodeID: uuid.New(),
	}
}

// Attach registers a session's sender for a board.
func (r *Router) Attach(boardID, connID uuid.UUID, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.boards[boardID]
	if !ok {
		conns = make(map[uuid.UUID]Sender)
		r.boards[boardID] = conns
	}
	conns[connID] = s
}

// Detach removes a session's sender. Detaching an unknown connection is a
// no-op.
func (r *Router) Detach(boardID, connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.boards[boardID]
	if !ok {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.boards, boardID)
	}
}

// Publish delivers ev to every attached sender on the board except the
// excluded originator (pass uuid.Nil to deliver to all), then relays it to
// other nodes. Local delivery never blocks the caller.
func (r *Router) Publish(ctx context.Context, ev Event, exclude uuid.UUID) {
	r.deliverLocal(ev, exclude)

	if r.relay == nil {
		return
	}

	payload, err := json.Marshal(relayEnvelope{Origin: r.nodeID, Exclude: exclude, Event: ev})
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("relay marshal")
		return
	}
	if err := r.relay.PublishBoard(ctx, ev.BoardID, payload); err != nil {
		// Local sessions already got the event; only cross-node fanout is lost.
		log.Warn().Err(err).Str("board_id", ev.BoardID.String()).Msg("relay publish")
	}
}

func (r *Router) deliverLocal(ev Event, exclude uuid.UUID) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for connID, s := range r.boards[ev.BoardID] {
		if connID == exclude {
			continue
		}
		if !s.Send(ev) {
			log.Debug().
				Str("board_id", ev.BoardID.String()).
				Str("conn_id", connID.String()).
				Str("event", string(ev.Type)).
				Msg("slow session, event dropped")
		}
	}
}

// RunRelay subscribes to a board's Redis channel and forwards remote-origin
// events to local sessions until ctx is canceled. The owning actor runs one
// relay per active board; without a relay configured this returns
// immediately.
func (r *Router) RunRelay(ctx context.Context, boardID uuid.UUID) {
	if r.relay == nil {
		return
	}

	messages, cleanup, err := r.relay.SubscribeBoard(ctx, boardID)
	if err != nil {
		log.Error().Err(err).Str("board_id", boardID.String()).Msg("relay subscribe")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			var env relayEnvelope
			if err := json.Unmarshal(payload, &env); err != nil {
				log.Warn().Err(err).Str("board_id", boardID.String()).Msg("relay decode")
				continue
			}
			if env.Origin == r.nodeID {
				continue
			}
			r.deliverLocal(env.Event, env.Exclude)
		}
	}
}
