package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/mural/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. Role — closed enum and edit rights.
// ---------------------------------------------------------------------------

func TestRole_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role domain.Role
		want bool
	}{
		{domain.RoleOwner, true},
		{domain.RoleEditor, true},
		{domain.RoleViewer, true},
		{domain.Role("admin"), false},
		{domain.Role(""), false},
		{domain.Role("Owner"), false}, // case-sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.role.Valid())
		})
	}
}

func TestRole_CanEdit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role domain.Role
		want bool
	}{
		{domain.RoleOwner, true},
		{domain.RoleEditor, true},
		{domain.RoleViewer, false},
		{domain.Role("admin"), false}, // unknown roles never edit
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.role.CanEdit())
		})
	}
}

// ---------------------------------------------------------------------------
// 2. ElementType — closed enum.
// ---------------------------------------------------------------------------

func TestElementType_Valid(t *testing.T) {
	t.Parallel()

	valid := []domain.ElementType{
		domain.ElementTypeText,
		domain.ElementTypeShape,
		domain.ElementTypeNote,
		domain.ElementTypeDrawing,
	}
	for _, et := range valid {
		t.Run(string(et), func(t *testing.T) {
			t.Parallel()

			assert.True(t, et.Valid())
		})
	}

	for _, et := range []domain.ElementType{"sticker", "", "Text"} {
		t.Run("invalid "+string(et), func(t *testing.T) {
			t.Parallel()

			assert.False(t, et.Valid())
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Element validation and cloning.
// ---------------------------------------------------------------------------

func TestElement_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *domain.Element {
		return &domain.Element{
			ID:       uuid.New(),
			Type:     domain.ElementTypeShape,
			Geometry: domain.Geometry{Width: 100, Height: 50},
			Content:  json.RawMessage(`{"shape":"rect"}`),
		}
	}

	t.Run("valid element", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, valid().Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		el := valid()
		el.ID = uuid.Nil
		assert.ErrorIs(t, el.Validate(), domain.ErrValidation)
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		el := valid()
		el.Type = "sticker"
		assert.ErrorIs(t, el.Validate(), domain.ErrValidation)
	})

	t.Run("negative dimensions", func(t *testing.T) {
		t.Parallel()

		el := valid()
		el.Geometry.Width = -1
		assert.ErrorIs(t, el.Validate(), domain.ErrValidation)
	})

	t.Run("oversized content", func(t *testing.T) {
		t.Parallel()

		el := valid()
		el.Content = json.RawMessage(`"` + strings.Repeat("x", domain.MaxContentBytes) + `"`)
		assert.ErrorIs(t, el.Validate(), domain.ErrValidation)
	})

	t.Run("content at the limit passes", func(t *testing.T) {
		t.Parallel()

		el := valid()
		el.Content = json.RawMessage(strings.Repeat("x", domain.MaxContentBytes))
		assert.NoError(t, el.Validate())
	})
}

func TestElement_Clone(t *testing.T) {
	t.Parallel()

	orig := &domain.Element{
		ID:      uuid.New(),
		Type:    domain.ElementTypeDrawing,
		Content: json.RawMessage(`{"points":[1,2,3]}`),
		Version: 5,
	}

	cp := orig.Clone()
	require.Equal(t, orig, cp)

	// Mutating the clone's content must not reach the original.
	cp.Content[2] = 'X'
	cp.Version = 9
	assert.Equal(t, json.RawMessage(`{"points":[1,2,3]}`), orig.Content)
	assert.Equal(t, int64(5), orig.Version)
}

func TestElementPatch_Validate(t *testing.T) {
	t.Parallel()

	t.Run("empty patch rejected", func(t *testing.T) {
		t.Parallel()

		p := domain.ElementPatch{}
		assert.ErrorIs(t, p.Validate(), domain.ErrValidation)
	})

	t.Run("geometry only", func(t *testing.T) {
		t.Parallel()

		p := domain.ElementPatch{Geometry: &domain.Geometry{Width: 1, Height: 1}}
		assert.NoError(t, p.Validate())
	})

	t.Run("negative patch dimensions", func(t *testing.T) {
		t.Parallel()

		p := domain.ElementPatch{Geometry: &domain.Geometry{Height: -3}}
		assert.ErrorIs(t, p.Validate(), domain.ErrValidation)
	})

	t.Run("oversized patch content", func(t *testing.T) {
		t.Parallel()

		p := domain.ElementPatch{Content: json.RawMessage(strings.Repeat("y", domain.MaxContentBytes+1))}
		assert.ErrorIs(t, p.Validate(), domain.ErrValidation)
	})
}

// ---------------------------------------------------------------------------
// 4. Board membership lookup.
// ---------------------------------------------------------------------------

func TestBoard_MemberRole(t *testing.T) {
	t.Parallel()

	editor := uuid.New()
	viewer := uuid.New()
	b := &domain.Board{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Members: []domain.Member{
			{UserID: editor, Role: domain.RoleEditor},
			{UserID: viewer, Role: domain.RoleViewer},
		},
	}

	role, ok := b.MemberRole(editor)
	require.True(t, ok)
	assert.Equal(t, domain.RoleEditor, role)

	role, ok = b.MemberRole(viewer)
	require.True(t, ok)
	assert.Equal(t, domain.RoleViewer, role)

	_, ok = b.MemberRole(uuid.New())
	assert.False(t, ok)

	// The owner is tracked on the board itself, not the member list.
	_, ok = b.MemberRole(b.OwnerID)
	assert.False(t, ok)
}
