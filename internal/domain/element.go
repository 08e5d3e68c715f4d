package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ElementType is the closed set of element kinds a board can hold.
type ElementType string

const (
	ElementTypeText    ElementType = "text"
	ElementTypeShape   ElementType = "shape"
	ElementTypeNote    ElementType = "note"
	ElementTypeDrawing ElementType = "drawing"
)

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	switch t {
	case ElementTypeText, ElementTypeShape, ElementTypeNote, ElementTypeDrawing:
		return true
	default:
		return false
	}
}

// Geometry is the placement of an element on the canvas.
type Geometry struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// MaxContentBytes bounds the type-dependent payload of a single element.
// Drawings carry stroke point lists and are the largest legitimate payloads.
const MaxContentBytes = 256 * 1024

// Element is one positioned, versioned object on a board. Version increases
// by exactly one per committed mutation and never decreases; it is the whole
// conflict-resolution mechanism (last writer wins at element granularity).
type Element struct {
	ID             uuid.UUID       `json:"id"`
	Type           ElementType     `json:"type"`
	Geometry       Geometry        `json:"geometry"`
	Content        json.RawMessage `json:"content,omitempty"`
	Version        int64           `json:"version"`
	LastModifiedBy uuid.UUID       `json:"last_modified_by"`
	LastModifiedAt time.Time       `json:"last_modified_at"`
}

// Validate checks the fields a client supplies on create.
func (e *Element) Validate() error {
	if e.ID == uuid.Nil {
		return fmt.Errorf("element id is required: %w", ErrValidation)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown element type %q: %w", e.Type, ErrValidation)
	}
	if e.Geometry.Width < 0 || e.Geometry.Height < 0 {
		return fmt.Errorf("negative element dimensions: %w", ErrValidation)
	}
	if len(e.Content) > MaxContentBytes {
		return fmt.Errorf("element content exceeds %d bytes: %w", MaxContentBytes, ErrValidation)
	}
	return nil
}

// Clone returns a deep copy. Snapshots hand copies to the persistence and
// broadcast paths so the authoritative map is never aliased outside the
// owning actor.
func (e *Element) Clone() *Element {
	cp := *e
	if e.Content != nil {
		cp.Content = make(json.RawMessage, len(e.Content))
		copy(cp.Content, e.Content)
	}
	return &cp
}

// ElementPatch is a partial update. Nil fields are left untouched; a
// non-nil field fully replaces its counterpart (no per-field merge of
// concurrent edits — the second writer loses by version check instead).
type ElementPatch struct {
	Geometry *Geometry       `json:"geometry,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// Validate checks patch payload bounds.
func (p *ElementPatch) Validate() error {
	if p.Geometry == nil && p.Content == nil {
		return fmt.Errorf("empty patch: %w", ErrValidation)
	}
	if p.Geometry != nil && (p.Geometry.Width < 0 || p.Geometry.Height < 0) {
		return fmt.Errorf("negative element dimensions: %w", ErrValidation)
	}
	if len(p.Content) > MaxContentBytes {
		return fmt.Errorf("element content exceeds %d bytes: %w", MaxContentBytes, ErrValidation)
	}
	return nil
}
