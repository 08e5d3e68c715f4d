package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/mural/internal/domain"
)

// ErrActorStopped is returned for messages addressed to an actor that has
// drained. The registry reacts by constructing a fresh actor for joins;
// anything else means the session is gone and the caller gives up.
var ErrActorStopped = errors.New("realtime: board actor stopped")

// JoinSnapshot is the full board state handed to a freshly joined session:
// every live element plus the current presence list.
type JoinSnapshot struct {
	Elements []*domain.Element `json:"elements"`
	Presence []*domain.Session `json:"presence"`
}

// Actor serializes all mutation and presence traffic for one board through
// a single goroutine. It is the sole writer of its ElementStore and
// PresenceTracker; processing one message to completion (state change plus
// broadcast) before dequeuing the next is what makes every session observe
// commits in one total order per board.
//
// Lifecycle: the registry constructs an actor on first join (Hydrating:
// snapshot load blocks only that first message), it serves its mailbox
// (Active), and when the last session leaves it force-flushes and stops
// (Draining then gone).
type Actor struct {
	boardID uuid.UUID

	mailbox chan message
	stopped chan struct{}

	store    *ElementStore
	presence *PresenceTracker
	router   *Router
	syncer   *Syncer
	clock    Clock

	flushDebounce time.Duration
	dirty         bool
	flushPending  bool

	// onStop removes the actor from the registry; set by the registry
	// before run starts.
	onStop func()

	// fatalErr records a hydration failure so pending joins are rejected
	// with the cause instead of ErrActorStopped (which would make the
	// registry retry against a store that is down).
	fatalErr error
}

type message interface{ isMessage() }

type joinMsg struct {
	session *domain.Session
	sender  Sender
	reply   chan joinReply
}

type joinReply struct {
	err error
}

type leaveMsg struct {
	connID uuid.UUID
	reply  chan error
}

type createMsg struct {
	connID  uuid.UUID
	element *domain.Element
	reply   chan mutationReply
}

type updateMsg struct {
	connID    uuid.UUID
	elementID uuid.UUID
	patch     domain.ElementPatch
	version   int64
	reply     chan mutationReply
}

type deleteMsg struct {
	connID    uuid.UUID
	elementID uuid.UUID
	version   int64
	reply     chan error
}

type mutationReply struct {
	element *domain.Element
	err     error
}

type cursorMsg struct {
	connID uuid.UUID
	cursor domain.Cursor
}

// flushMsg is the debounce timer handing the flush back into the turn
// order; flushFailedMsg re-marks state dirty after an exhausted flush so a
// later cycle (or drain) tries again.
type flushMsg struct{}
type flushFailedMsg struct{}

type shutdownMsg struct {
	reply chan error
}

func (joinMsg) isMessage()        {}
func (leaveMsg) isMessage()       {}
func (createMsg) isMessage()      {}
func (updateMsg) isMessage()      {}
func (deleteMsg) isMessage()      {}
func (cursorMsg) isMessage()      {}
func (flushMsg) isMessage()       {}
func (flushFailedMsg) isMessage() {}
func (shutdownMsg) isMessage()    {}

func newActor(boardID uuid.UUID, router *Router, syncer *Syncer, clock Clock, mailboxSize int, flushDebounce time.Duration) *Actor {
	return &Actor{
		boardID:       boardID,
		mailbox:       make(chan message, mailboxSize),
		stopped:       make(chan struct{}),
		presence:      NewPresenceTracker(),
		router:        router,
		syncer:        syncer,
		clock:         clock,
		flushDebounce: flushDebounce,
	}
}

// run is the actor's message loop. It hydrates first, then processes
// messages until the last session leaves or ctx ends.
func (a *Actor) run(ctx context.Context) {
	elements, err := a.syncer.Load(ctx, a.boardID)
	if err != nil {
		log.Error().Err(err).Str("board_id", a.boardID.String()).Msg("board hydration failed")
		a.fatalErr = err
		a.terminate(ctx, false)
		return
	}
	a.store = NewElementStore(elements)

	relayCtx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()
	go a.router.RunRelay(relayCtx, a.boardID)

	log.Debug().Str("board_id", a.boardID.String()).Int("elements", a.store.Len()).Msg("board active")

	for {
		select {
		case <-ctx.Done():
			// Process shutdown: the final flush must outlive ctx.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			a.terminate(flushCtx, true)
			cancel()
			return
		case m := <-a.mailbox:
			if stop := a.handle(ctx, m); stop {
				a.terminate(ctx, true)
				return
			}
		}
	}
}

// handle applies one message to completion. Returns true when the actor
// should drain.
func (a *Actor) handle(ctx context.Context, m message) bool {
	switch msg := m.(type) {
	case joinMsg:
		return a.handleJoin(ctx, msg)
	case leaveMsg:
		if a.handleLeave(ctx, msg.connID) {
			msg.reply <- nil
			return true
		}
		msg.reply <- nil
	case createMsg:
		msg.reply <- a.handleCreate(ctx, msg)
	case updateMsg:
		msg.reply <- a.handleUpdate(ctx, msg)
	case deleteMsg:
		msg.reply <- a.handleDelete(ctx, msg)
	case cursorMsg:
		a.handleCursor(ctx, msg)
	case flushMsg:
		a.handleFlush(ctx)
	case flushFailedMsg:
		a.markDirty()
	case shutdownMsg:
		a.flushFinal(ctx)
		msg.reply <- nil
		return true
	}
	return false
}

// handleJoin returns true when a failed join leaves the board empty and the
// actor should drain.
func (a *Actor) handleJoin(ctx context.Context, msg joinMsg) bool {
	s := msg.session
	a.presence.AddSession(s)

	// Snapshot goes out before the session is attached for broadcasts, so
	// on the wire the snapshot always precedes the first delta.
	snapshot := &JoinSnapshot{
		Elements: a.store.List(),
		Presence: a.presence.Sessions(),
	}
	if !msg.sender.SendSnapshot(snapshot) {
		a.presence.RemoveSession(s.ConnID)
		msg.reply <- joinReply{err: fmt.Errorf("realtime.Actor: join snapshot undeliverable: %w", domain.ErrValidation)}
		return a.presence.Len() == 0
	}
	a.router.Attach(a.boardID, s.ConnID, msg.sender)
	msg.reply <- joinReply{}

	cp := *s
	a.router.Publish(ctx, Event{
		Type:    EventUserJoined,
		BoardID: a.boardID,
		Session: &cp,
	}, s.ConnID)
	return false
}

// handleLeave returns true when the last session left and the actor should
// drain.
func (a *Actor) handleLeave(ctx context.Context, connID uuid.UUID) bool {
	s, ok := a.presence.RemoveSession(connID)
	if !ok {
		// Duplicate leave (explicit leave racing a heartbeat timeout).
		return false
	}
	a.router.Detach(a.boardID, connID)

	a.router.Publish(ctx, Event{
		Type:    EventUserLeft,
		BoardID: a.boardID,
		Session: s,
	}, connID)

	return a.presence.Len() == 0
}

func (a *Actor) handleCreate(ctx context.Context, msg createMsg) mutationReply {
	s, err := a.editorSession(msg.connID)
	if err != nil {
		return mutationReply{err: err}
	}

	el, err := a.store.Create(msg.element, s.UserID, a.clock.Now())
	if err != nil {
		return mutationReply{err: err}
	}
	a.markDirty()

	a.router.Publish(ctx, Event{
		Type:    EventElementCreated,
		BoardID: a.boardID,
		Element: el,
	}, msg.connID)

	return mutationReply{element: el}
}

func (a *Actor) handleUpdate(ctx context.Context, msg updateMsg) mutationReply {
	s, err := a.editorSession(msg.connID)
	if err != nil {
		return mutationReply{err: err}
	}

	el, err := a.store.Update(msg.elementID, msg.patch, msg.version, s.UserID, a.clock.Now())
	if err != nil {
		return mutationReply{err: err}
	}
	a.markDirty()

	a.router.Publish(ctx, Event{
		Type:    EventElementUpdated,
		BoardID: a.boardID,
		Element: el,
	}, msg.connID)

	return mutationReply{element: el}
}

func (a *Actor) handleDelete(ctx context.Context, msg deleteMsg) error {
	if _, err := a.editorSession(msg.connID); err != nil {
		return err
	}

	if err := a.store.Delete(msg.elementID, msg.version); err != nil {
		return err
	}
	a.markDirty()

	a.router.Publish(ctx, Event{
		Type:      EventElementDeleted,
		BoardID:   a.boardID,
		ElementID: msg.elementID,
	}, msg.connID)

	return nil
}

func (a *Actor) handleCursor(ctx context.Context, msg cursorMsg) {
	if !a.presence.SetCursor(msg.connID, msg.cursor) {
		return
	}

	a.router.Publish(ctx, Event{
		Type:    EventCursorMoved,
		BoardID: a.boardID,
		ConnID:  msg.connID,
		Cursor:  &msg.cursor,
	}, msg.connID)
}

// editorSession resolves the session behind a mutation and enforces edit
// rights. Role was fixed at join and switch-checked here exhaustively.
func (a *Actor) editorSession(connID uuid.UUID) (*domain.Session, error) {
	s, ok := a.presence.sessions[connID]
	if !ok {
		return nil, fmt.Errorf("realtime.Actor: session %s: %w", connID, domain.ErrNotFound)
	}

	switch s.Role {
	case domain.RoleOwner, domain.RoleEditor:
		return s, nil
	case domain.RoleViewer:
		return nil, fmt.Errorf("realtime.Actor: role %s cannot mutate elements: %w", s.Role, domain.ErrForbidden)
	default:
		return nil, fmt.Errorf("realtime.Actor: unknown role %q: %w", s.Role, domain.ErrForbidden)
	}
}

// markDirty schedules a debounced flush. Consecutive dirty marks inside one
// quiet period coalesce into a single write.
func (a *Actor) markDirty() {
	a.dirty = true
	if a.flushPending {
		return
	}
	a.flushPending = true

	a.clock.AfterFunc(a.flushDebounce, func() {
		// Timer fires outside the loop; hand the flush back into turn
		// order so the snapshot copy happens inside a turn.
		select {
		case a.mailbox <- flushMsg{}:
		case <-a.stopped:
		}
	})
}

// handleFlush copies the element map inside the turn and writes it out in
// the background so I/O never stalls the loop.
func (a *Actor) handleFlush(ctx context.Context) {
	a.flushPending = false
	if !a.dirty {
		return
	}
	a.dirty = false
	snapshot := a.store.Snapshot()

	go func() {
		if err := a.syncer.Flush(ctx, a.boardID, snapshot); err != nil {
			log.Error().Err(err).Str("board_id", a.boardID.String()).Msg("snapshot flush failed")
			select {
			case a.mailbox <- flushFailedMsg{}:
			case <-a.stopped:
			}
		}
	}()
}

// flushFinal is the Draining write: synchronous, unconditional when dirty.
func (a *Actor) flushFinal(ctx context.Context) {
	if !a.dirty || a.store == nil {
		return
	}
	a.dirty = false
	if err := a.syncer.Flush(ctx, a.boardID, a.store.Snapshot()); err != nil {
		// Unflushed mutations since the last good snapshot are lost; the
		// loss window is bounded by the debounce interval.
		log.Error().Err(err).Str("board_id", a.boardID.String()).Msg("final snapshot flush failed")
	}
}

// terminate finishes the Draining transition: optional final flush, removal
// from the registry, then rejection of anything still queued.
func (a *Actor) terminate(ctx context.Context, flush bool) {
	if flush {
		a.flushFinal(ctx)
	}
	if a.onStop != nil {
		a.onStop()
	}

	// Reject what is already queued before stopped fires, so waiters find
	// their buffered reply when they wake; then close and sweep stragglers
	// that slipped in between.
	a.drainMailbox()
	close(a.stopped)
	a.drainMailbox()

	log.Debug().Str("board_id", a.boardID.String()).Msg("board inactive")
}

func (a *Actor) drainMailbox() {
	for {
		select {
		case m := <-a.mailbox:
			a.reject(m)
		default:
			return
		}
	}
}

func (a *Actor) reject(m message) {
	switch msg := m.(type) {
	case joinMsg:
		if a.fatalErr != nil {
			msg.reply <- joinReply{err: a.fatalErr}
		} else {
			msg.reply <- joinReply{err: ErrActorStopped}
		}
	case leaveMsg:
		msg.reply <- nil
	case createMsg:
		msg.reply <- mutationReply{err: ErrActorStopped}
	case updateMsg:
		msg.reply <- mutationReply{err: ErrActorStopped}
	case deleteMsg:
		msg.reply <- ErrActorStopped
	case shutdownMsg:
		msg.reply <- nil
	case cursorMsg, flushMsg, flushFailedMsg:
		// No reply expected.
	}
}

// ---------------------------------------------------------------------------
// Synchronous round-trip API used by the connection layer. Requests are
// enqueued and awaited; a disconnecting caller stops waiting but an already
// enqueued message is still processed in order.
// ---------------------------------------------------------------------------

func (a *Actor) send(ctx context.Context, m message) error {
	select {
	case a.mailbox <- m:
		return nil
	case <-a.stopped:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join attaches a session. The join snapshot is delivered through the
// sender inside the join turn, not returned here.
func (a *Actor) Join(ctx context.Context, session *domain.Session, sender Sender) error {
	m := joinMsg{session: session, sender: sender, reply: make(chan joinReply, 1)}
	if err := a.send(ctx, m); err != nil {
		return err
	}

	select {
	case r := <-m.reply:
		return r.err
	case <-a.stopped:
		select {
		case r := <-m.reply:
			return r.err
		default:
		}
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave detaches a session. Safe to call twice; the second call is a no-op.
func (a *Actor) Leave(ctx context.Context, connID uuid.UUID) error {
	m := leaveMsg{connID: connID, reply: make(chan error, 1)}
	if err := a.send(ctx, m); err != nil {
		if errors.Is(err, ErrActorStopped) {
			// Already drained; the session is necessarily gone.
			return nil
		}
		return err
	}
	return a.awaitErr(ctx, m.reply)
}

// CreateElement inserts a new element and returns the committed value.
func (a *Actor) CreateElement(ctx context.Context, connID uuid.UUID, el *domain.Element) (*domain.Element, error) {
	m := createMsg{connID: connID, element: el, reply: make(chan mutationReply, 1)}
	if err := a.send(ctx, m); err != nil {
		return nil, err
	}
	return a.awaitMutation(ctx, m.reply)
}

// UpdateElement applies a patch at a proposed version and returns the
// committed value.
func (a *Actor) UpdateElement(ctx context.Context, connID, elementID uuid.UUID, patch domain.ElementPatch, version int64) (*domain.Element, error) {
	m := updateMsg{connID: connID, elementID: elementID, patch: patch, version: version, reply: make(chan mutationReply, 1)}
	if err := a.send(ctx, m); err != nil {
		return nil, err
	}
	return a.awaitMutation(ctx, m.reply)
}

// DeleteElement removes an element at a proposed version.
func (a *Actor) DeleteElement(ctx context.Context, connID, elementID uuid.UUID, version int64) error {
	m := deleteMsg{connID: connID, elementID: elementID, version: version, reply: make(chan error, 1)}
	if err := a.send(ctx, m); err != nil {
		return err
	}
	return a.awaitErr(ctx, m.reply)
}

// MoveCursor enqueues a cursor update. No ack: broadcast-only semantics.
func (a *Actor) MoveCursor(ctx context.Context, connID uuid.UUID, c domain.Cursor) error {
	return a.send(ctx, cursorMsg{connID: connID, cursor: c})
}

// Shutdown force-flushes and stops the actor regardless of attached
// sessions. Used on process shutdown.
func (a *Actor) Shutdown(ctx context.Context) error {
	m := shutdownMsg{reply: make(chan error, 1)}
	if err := a.send(ctx, m); err != nil {
		if errors.Is(err, ErrActorStopped) {
			return nil
		}
		return err
	}
	return a.awaitErr(ctx, m.reply)
}

func (a *Actor) awaitMutation(ctx context.Context, reply chan mutationReply) (*domain.Element, error) {
	select {
	case r := <-reply:
		return r.element, r.err
	case <-a.stopped:
		select {
		case r := <-reply:
			return r.element, r.err
		default:
		}
		return nil, ErrActorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Actor) awaitErr(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-a.stopped:
		select {
		case err := <-reply:
			return err
		default:
		}
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
