// Package redis is the cross-node event relay. Each node publishes the
// events its boards commit onto a per-board channel and subscribes to the
// channels of its active boards, so sessions connected to different nodes
// observe the same commits.
package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// forwardBuffer is the per-subscription forward queue depth between the
// Redis reader and the relay consumer.
const forwardBuffer = 64

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// PublishBoard fans one marshaled event out to every node subscribed to the
// board's channel, the publishing node included; subscribers break the echo
// loop by origin tag, not here.
func (ps *PubSub) PublishBoard(ctx context.Context, boardID uuid.UUID, payload []byte) error {
	if err := ps.client.Publish(ctx, BoardChannel(boardID), payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.PublishBoard: board %s: %w", boardID, err)
	}
	return nil
}

// SubscribeBoard opens a subscription to one board's channel and returns
// the payload stream plus a cleanup func. The stream closes on cleanup; a
// canceled ctx stops forwarding but the caller still owns cleanup.
func (ps *PubSub) SubscribeBoard(ctx context.Context, boardID uuid.UUID) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, BoardChannel(boardID))

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.SubscribeBoard: board %s: %w", boardID, err)
	}

	out := make(chan []byte, forwardBuffer)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}

// BoardChannel returns the Redis channel name carrying one board's
// committed deltas and presence events between nodes.
func BoardChannel(boardID uuid.UUID) string {
	return "board:" + boardID.String()
}
