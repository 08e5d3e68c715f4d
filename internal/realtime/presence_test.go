package realtime_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mural/internal/domain"
	"github.com/gosuda/mural/internal/realtime"
)

func TestPresenceTracker_AddRemove(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	tracker := realtime.NewPresenceTracker()
	s := newSession(boardID, domain.RoleEditor, time.Now())

	tracker.AddSession(s)
	assert.Equal(t, 1, tracker.Len())

	removed, ok := tracker.RemoveSession(s.ConnID)
	require.True(t, ok)
	assert.Equal(t, s.ConnID, removed.ConnID)
	assert.Equal(t, 0, tracker.Len())

	// Second remove reports the session was already gone.
	_, ok = tracker.RemoveSession(s.ConnID)
	assert.False(t, ok)
}

func TestPresenceTracker_SetCursor(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	tracker := realtime.NewPresenceTracker()
	s := newSession(boardID, domain.RoleViewer, time.Now())
	tracker.AddSession(s)

	require.True(t, tracker.SetCursor(s.ConnID, domain.Cursor{X: 3, Y: 4}))
	assert.Equal(t, domain.Cursor{X: 3, Y: 4}, tracker.Sessions()[0].Cursor)

	// Unknown connection: dropped, not created.
	assert.False(t, tracker.SetCursor(uuid.New(), domain.Cursor{X: 1}))
	assert.Equal(t, 1, tracker.Len())
}

func TestPresenceTracker_SessionsOrderedByJoinTime(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	tracker := realtime.NewPresenceTracker()
	base := time.Now()

	third := newSession(boardID, domain.RoleEditor, base.Add(2*time.Second))
	first := newSession(boardID, domain.RoleOwner, base)
	second := newSession(boardID, domain.RoleViewer, base.Add(time.Second))
	tracker.AddSession(third)
	tracker.AddSession(first)
	tracker.AddSession(second)

	sessions := tracker.Sessions()
	require.Len(t, sessions, 3)
	assert.Equal(t, first.ConnID, sessions[0].ConnID)
	assert.Equal(t, second.ConnID, sessions[1].ConnID)
	assert.Equal(t, third.ConnID, sessions[2].ConnID)
}

func TestPresenceTracker_SessionsReturnsCopies(t *testing.T) {
	t.Parallel()

	boardID := uuid.New()
	tracker := realtime.NewPresenceTracker()
	s := newSession(boardID, domain.RoleEditor, time.Now())
	tracker.AddSession(s)

	tracker.Sessions()[0].Cursor = domain.Cursor{X: 99, Y: 99}
	assert.Equal(t, domain.Cursor{}, tracker.Sessions()[0].Cursor)
}
