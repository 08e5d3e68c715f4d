package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mural/internal/domain"
)

// Options tunes the per-board engine.
type Options struct {
	MailboxSize   int
	FlushDebounce time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MailboxSize:   256,
		FlushDebounce: 3 * time.Second,
	}
}

// Registry owns the actor per active board, constructing one lazily on
// first join and forgetting it when it drains. There is no global socket
// state: everything a board needs lives on its actor, and the registry is
// just the boardID -> actor index.
type Registry struct {
	mu     sync.Mutex
	actors map[uuid.UUID]*Actor

	router *Router
	syncer *Syncer
	clock  Clock
	opts   Options

	// ctx bounds every actor loop; canceling it drains all boards.
	ctx context.Context
}

// NewRegistry creates a Registry. ctx is the process lifetime; actors stop
// (with a final flush) when it ends.
func NewRegistry(ctx context.Context, router *Router, syncer *Syncer, clock Clock, opts Options) *Registry {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultOptions().MailboxSize
	}
	if opts.FlushDebounce <= 0 {
		opts.FlushDebounce = DefaultOptions().FlushDebounce
	}
	return &Registry{
		actors: make(map[uuid.UUID]*Actor),
		router: router,
		syncer: syncer,
		clock:  clock,
		opts:   opts,
		ctx:    ctx,
	}
}

// Join routes a session onto its board's actor, activating the board if
// necessary, and returns the actor handle. While the session stays attached
// the returned actor cannot drain, so the handle remains valid for the
// connection's lifetime.
func (r *Registry) Join(ctx context.Context, session *domain.Session, sender Sender) (*Actor, error) {
	// A drained actor can race an incoming join; retry against a fresh one.
	for {
		a := r.actorFor(session.BoardID)

		err := a.Join(ctx, session, sender)
		if errors.Is(err, ErrActorStopped) {
			r.forget(session.BoardID, a)
			continue
		}
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

// Active reports whether a board currently has a live actor. The board
// metadata API uses this to refuse deleting a board that is in session.
func (r *Registry) Active(boardID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.actors[boardID]
	return ok
}

// Shutdown force-flushes and stops every active actor. Called once on
// process shutdown before the stores close.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	actors := make([]*Actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.Unlock()

	for _, a := range actors {
		if err := a.Shutdown(ctx); err != nil {
			log.Error().Err(err).Str("board_id", a.boardID.String()).Msg("actor shutdown")
		}
	}
}

func (r *Registry) actorFor(boardID uuid.UUID) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.actors[boardID]; ok {
		return a
	}

	a := newActor(boardID, r.router, r.syncer, r.clock, r.opts.MailboxSize, r.opts.FlushDebounce)
	a.onStop = func() { r.forget(boardID, a) }
	r.actors[boardID] = a
	go a.run(r.ctx)

	return a
}

// forget removes an actor only if it is still the registered one; a drained
// actor must not evict its replacement.
func (r *Registry) forget(boardID uuid.UUID, a *Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actors[boardID] == a {
		delete(r.actors, boardID)
	}
}
