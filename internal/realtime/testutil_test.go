package realtime_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mural/internal/domain"
	"github.com/gosuda/mural/internal/realtime"
)

// ---------------------------------------------------------------------------
// Fake clock — drives debounce and backoff timers without real sleeps.
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) realtime.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// pending returns the timers that are armed but not yet fired or stopped.
func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// Advance moves the clock forward and fires every due timer. Callbacks run
// outside the lock: they may block on mailbox sends or register new timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.deadline.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// ---------------------------------------------------------------------------
// In-memory snapshot repository.
// ---------------------------------------------------------------------------

type memSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[uuid.UUID]map[uuid.UUID]*domain.Element
	saves     int
	failSaves int // next N Save calls return an error
	loadErr   error
}

func newMemSnapshotRepo() *memSnapshotRepo {
	return &memSnapshotRepo{snapshots: make(map[uuid.UUID]map[uuid.UUID]*domain.Element)}
}

func (r *memSnapshotRepo) Load(_ context.Context, boardID uuid.UUID) (map[uuid.UUID]*domain.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	stored, ok := r.snapshots[boardID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make(map[uuid.UUID]*domain.Element, len(stored))
	for id, el := range stored {
		out[id] = el.Clone()
	}
	return out, nil
}

func (r *memSnapshotRepo) Save(_ context.Context, boardID uuid.UUID, elements map[uuid.UUID]*domain.Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaves > 0 {
		r.failSaves--
		return fmt.Errorf("snapshot store unavailable")
	}
	cp := make(map[uuid.UUID]*domain.Element, len(elements))
	for id, el := range elements {
		cp[id] = el.Clone()
	}
	r.snapshots[boardID] = cp
	r.saves++
	return nil
}

func (r *memSnapshotRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *memSnapshotRepo) saved(boardID uuid.UUID) map[uuid.UUID]*domain.Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[boardID]
}

func (r *memSnapshotRepo) seed(boardID uuid.UUID, elements ...*domain.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[uuid.UUID]*domain.Element, len(elements))
	for _, el := range elements {
		m[el.ID] = el.Clone()
	}
	r.snapshots[boardID] = m
}

// ---------------------------------------------------------------------------
// Capturing sender.
// ---------------------------------------------------------------------------

type captureSender struct {
	mu             sync.Mutex
	events         []realtime.Event
	snapshots      []*realtime.JoinSnapshot
	rejectSnapshot bool
	rejectEvents   bool
}

func newCaptureSender() *captureSender { return &captureSender{} }

func (s *captureSender) Send(ev realtime.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectEvents {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *captureSender) SendSnapshot(snap *realtime.JoinSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectSnapshot {
		return false
	}
	s.snapshots = append(s.snapshots, snap)
	return true
}

func (s *captureSender) Events() []realtime.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]realtime.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *captureSender) Snapshots() []*realtime.JoinSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*realtime.JoinSnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// waitForEvents blocks until the sender has captured at least n events.
func waitForEvents(t *testing.T, s *captureSender, n int) []realtime.Event {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.Events()) >= n
	}, 2*time.Second, 2*time.Millisecond)
	return s.Events()
}

// ---------------------------------------------------------------------------
// Builders.
// ---------------------------------------------------------------------------

func newNoteElement(id uuid.UUID) *domain.Element {
	return &domain.Element{
		ID:       id,
		Type:     domain.ElementTypeNote,
		Geometry: domain.Geometry{X: 10, Y: 20, Width: 120, Height: 80},
		Content:  json.RawMessage(`{"text":"hello"}`),
	}
}

func newSession(boardID uuid.UUID, role domain.Role, joinedAt time.Time) *domain.Session {
	return &domain.Session{
		ConnID:   uuid.New(),
		UserID:   uuid.New(),
		BoardID:  boardID,
		Role:     role,
		JoinedAt: joinedAt,
	}
}
