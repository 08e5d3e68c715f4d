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

// Syncer moves board snapshots between the engine and durable storage. It
// decides when to read and write; the store itself is an external
// collaborator behind domain.SnapshotRepository. Flush retries transient
// failures with exponential backoff so a blip in the durable store never
// corrupts or blocks in-memory state, which stays authoritative throughout.
type Syncer struct {
	repo        domain.SnapshotRepository
	clock       Clock
	maxAttempts int
	baseBackoff time.Duration
}

// NewSyncer creates a Syncer. maxAttempts < 1 is treated as 1.
func NewSyncer(repo domain.SnapshotRepository, clock Clock, maxAttempts int, baseBackoff time.Duration) *Syncer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Syncer{
		repo:        repo,
		clock:       clock,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

// Load reads a board's snapshot. A board with no stored snapshot yields an
// empty map, not an error; hydration of a brand-new board is normal.
func (s *Syncer) Load(ctx context.Context, boardID uuid.UUID) (map[uuid.UUID]*domain.Element, error) {
	elements, err := s.repo.Load(ctx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return make(map[uuid.UUID]*domain.Element), nil
		}
		return nil, fmt.Errorf("realtime.Syncer.Load: %w", err)
	}
	return elements, nil
}

// Flush writes a snapshot, retrying with exponential backoff. On exhausted
// retries the error is returned for the caller to surface; the in-memory
// state it was taken from remains live and will be re-flushed on the next
// dirty cycle.
func (s *Syncer) Flush(ctx context.Context, boardID uuid.UUID, elements map[uuid.UUID]*domain.Element) error {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := s.baseBackoff << (attempt - 1)
			if !s.sleep(ctx, delay) {
				return fmt.Errorf("realtime.Syncer.Flush: %w", ctx.Err())
			}
			log.Warn().
				Str("board_id", boardID.String()).
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("snapshot flush retry")
		}

		if err := s.repo.Save(ctx, boardID, elements); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("realtime.Syncer.Flush: %d attempts: %w", s.maxAttempts, lastErr)
}

// sleep blocks for d on the syncer's clock. Returns false if ctx ended
// first.
func (s *Syncer) sleep(ctx context.Context, d time.Duration) bool {
	done := make(chan struct{})
	t := s.clock.AfterFunc(d, func() { close(done) })
	defer t.Stop()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

