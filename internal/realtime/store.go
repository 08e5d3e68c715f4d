package realtime

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
)

// ElementStore is the authoritative in-memory element map of one board.
// It is owned by a single BoardActor and only ever touched inside that
// actor's serialized turn, so it needs no locking of its own. Every
// operation either fully applies or leaves the map untouched.
type ElementStore struct {
	elements map[uuid.UUID]*domain.Element
}

// NewElementStore wraps a hydrated element map. The store takes ownership
// of the map; pass nil for a fresh board.
func NewElementStore(initial map[uuid.UUID]*domain.Element) *ElementStore {
	if initial == nil {
		initial = make(map[uuid.UUID]*domain.Element)
	}
	return &ElementStore{elements: initial}
}

// Create inserts a new element at version 1. Fails with ErrConflict when an
// element with that id already exists.
func (s *ElementStore) Create(el *domain.Element, by uuid.UUID, now time.Time) (*domain.Element, error) {
	if err := el.Validate(); err != nil {
		return nil, fmt.Errorf("realtime.ElementStore.Create: %w", err)
	}
	if _, exists := s.elements[el.ID]; exists {
		return nil, fmt.Errorf("realtime.ElementStore.Create: element %s: %w", el.ID, domain.ErrConflict)
	}

	stored := el.Clone()
	stored.Version = 1
	stored.LastModifiedBy = by
	stored.LastModifiedAt = now
	s.elements[stored.ID] = stored

	return stored.Clone(), nil
}

// Update merges a patch into an existing element. The proposed version must
// be strictly greater than the stored version; a proposal carrying a version
// the element has already moved past lost the race and fails with
// ErrStaleVersion. On success the stored version advances by exactly one.
func (s *ElementStore) Update(id uuid.UUID, patch domain.ElementPatch, proposedVersion int64, by uuid.UUID, now time.Time) (*domain.Element, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("realtime.ElementStore.Update: %w", err)
	}

	stored, ok := s.elements[id]
	if !ok {
		return nil, fmt.Errorf("realtime.ElementStore.Update: element %s: %w", id, domain.ErrNotFound)
	}
	if proposedVersion <= stored.Version {
		return nil, fmt.Errorf("realtime.ElementStore.Update: element %s at v%d, proposed v%d: %w",
			id, stored.Version, proposedVersion, domain.ErrStaleVersion)
	}

	if patch.Geometry != nil {
		stored.Geometry = *patch.Geometry
	}
	if patch.Content != nil {
		stored.Content = append(stored.Content[:0:0], patch.Content...)
	}
	stored.Version++
	stored.LastModifiedBy = by
	stored.LastModifiedAt = now

	return stored.Clone(), nil
}

// Delete removes an element under the same staleness rule as Update.
// Deleting an absent element is ErrNotFound, never a silent success; no
// tombstone is kept.
func (s *ElementStore) Delete(id uuid.UUID, proposedVersion int64) error {
	stored, ok := s.elements[id]
	if !ok {
		return fmt.Errorf("realtime.ElementStore.Delete: element %s: %w", id, domain.ErrNotFound)
	}
	if proposedVersion <= stored.Version {
		return fmt.Errorf("realtime.ElementStore.Delete: element %s at v%d, proposed v%d: %w",
			id, stored.Version, proposedVersion, domain.ErrStaleVersion)
	}

	delete(s.elements, id)
	return nil
}

// Snapshot returns a deep copy of the full element map, safe to hand to the
// persistence and broadcast paths outside the actor's turn.
func (s *ElementStore) Snapshot() map[uuid.UUID]*domain.Element {
	out := make(map[uuid.UUID]*domain.Element, len(s.elements))
	for id, el := range s.elements {
		out[id] = el.Clone()
	}
	return out
}

// List returns copies of all elements ordered by id, for join acks where a
// stable ordering keeps client hydration deterministic.
func (s *ElementStore) List() []*domain.Element {
	out := make([]*domain.Element, 0, len(s.elements))
	for _, el := range s.elements {
		out = append(out, el.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Len returns the number of live elements.
func (s *ElementStore) Len() int { return len(s.elements) }
