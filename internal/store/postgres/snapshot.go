package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mural/internal/domain"
)

// SnapshotRepo stores the full element map of a board as one JSONB row.
// The engine decides when to read and write; this repo is dumb storage.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

func (r *SnapshotRepo) Load(ctx context.Context, boardID uuid.UUID) (map[uuid.UUID]*domain.Element, error) {
	var raw []byte

	err := r.pool.QueryRow(ctx,
		`SELECT elements FROM board_snapshots WHERE board_id = $1`,
		boardID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("snapshotRepo.Load: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load: %w", err)
	}

	elements := make(map[uuid.UUID]*domain.Element)
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load: decode: %w", err)
	}

	return elements, nil
}

func (r *SnapshotRepo) Save(ctx context.Context, boardID uuid.UUID, elements map[uuid.UUID]*domain.Element) error {
	raw, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("snapshotRepo.Save: encode: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO board_snapshots (board_id, elements, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (board_id) DO UPDATE SET elements = EXCLUDED.elements, updated_at = now()`,
		boardID, raw,
	)
	if err != nil {
		return fmt.Errorf("snapshotRepo.Save: %w", err)
	}

	return nil
}
