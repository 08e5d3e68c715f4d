package realtime_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mural/internal/realtime"
)

func TestRouter_PublishExcludesOriginator(t *testing.T) {
	t.Parallel()

	router := realtime.NewRouter(nil)
	boardID := uuid.New()
	origin, other := uuid.New(), uuid.New()
	originSender, otherSender := newCaptureSender(), newCaptureSender()

	router.Attach(boardID, origin, originSender)
	router.Attach(boardID, other, otherSender)

	ev := realtime.Event{Type: realtime.EventElementCreated, BoardID: boardID}
	router.Publish(context.Background(), ev, origin)

	require.Len(t, otherSender.Events(), 1)
	assert.Equal(t, realtime.EventElementCreated, otherSender.Events()[0].Type)
	assert.Empty(t, originSender.Events())
}

func TestRouter_PublishToAll(t *testing.T) {
	t.Parallel()

	router := realtime.NewRouter(nil)
	boardID := uuid.New()
	a, b := newCaptureSender(), newCaptureSender()
	router.Attach(boardID, uuid.New(), a)
	router.Attach(boardID, uuid.New(), b)

	// uuid.Nil excludes nobody: presence events go to every session.
	router.Publish(context.Background(), realtime.Event{Type: realtime.EventUserLeft, BoardID: boardID}, uuid.Nil)

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestRouter_BoardIsolation(t *testing.T) {
	t.Parallel()

	router := realtime.NewRouter(nil)
	boardA, boardB := uuid.New(), uuid.New()
	senderA, senderB := newCaptureSender(), newCaptureSender()
	router.Attach(boardA, uuid.New(), senderA)
	router.Attach(boardB, uuid.New(), senderB)

	router.Publish(context.Background(), realtime.Event{Type: realtime.EventCursorMoved, BoardID: boardA}, uuid.Nil)

	assert.Len(t, senderA.Events(), 1)
	assert.Empty(t, senderB.Events())
}

func TestRouter_DetachStopsDelivery(t *testing.T) {
	t.Parallel()

	router := realtime.NewRouter(nil)
	boardID := uuid.New()
	connID := uuid.New()
	sender := newCaptureSender()

	router.Attach(boardID, connID, sender)
	router.Detach(boardID, connID)

	router.Publish(context.Background(), realtime.Event{Type: realtime.EventElementDeleted, BoardID: boardID}, uuid.Nil)
	assert.Empty(t, sender.Events())

	// Detaching an unknown connection is a no-op.
	router.Detach(boardID, uuid.New())
	router.Detach(uuid.New(), connID)
}

func TestRouter_SlowSessionDropped(t *testing.T) {
	t.Parallel()

	router := realtime.NewRouter(nil)
	boardID := uuid.New()
	slow := newCaptureSender()
	slow.rejectEvents = true
	healthy := newCaptureSender()

	router.Attach(boardID, uuid.New(), slow)
	router.Attach(boardID, uuid.New(), healthy)

	// A session that cannot keep up loses the event; the others still get it.
	router.Publish(context.Background(), realtime.Event{Type: realtime.EventElementUpdated, BoardID: boardID}, uuid.Nil)

	assert.Empty(t, slow.Events())
	assert.Len(t, healthy.Events(), 1)
}
