package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/mural/internal/domain"
)

type BoardRepo struct {
	pool *pgxpool.Pool
}

func NewBoardRepo(pool *pgxpool.Pool) *BoardRepo {
	return &BoardRepo{pool: pool}
}

func (r *BoardRepo) Create(ctx context.Context, b *domain.Board) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO boards (id, owner_id, title, description, is_public, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.OwnerID, b.Title, b.Description, b.IsPublic, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Create: %w", err)
	}

	return nil
}

func (r *BoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	var b domain.Board

	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, description, is_public, created_at, updated_at
		 FROM boards WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description, &b.IsPublic, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", err)
	}

	members, err := r.listMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Members = members

	return &b, nil
}

func (r *BoardRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, title, description, is_public, created_at, updated_at
		 FROM boards
		 WHERE owner_id = $1
		    OR id IN (SELECT board_id FROM board_members WHERE user_id = $1)
		 ORDER BY updated_at DESC
		 LIMIT 500`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var boards []*domain.Board
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description, &b.IsPublic, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("boardRepo.ListByUser: scan: %w", err)
		}
		boards = append(boards, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("boardRepo.ListByUser: rows: %w", err)
	}

	return boards, nil
}

func (r *BoardRepo) Update(ctx context.Context, b *domain.Board) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE boards SET title = $1, description = $2, is_public = $3, updated_at = now()
		 WHERE id = $4`,
		b.Title, b.Description, b.IsPublic, b.ID,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *BoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	// Members and snapshot rows go with the board (ON DELETE CASCADE).
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM boards WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *BoardRepo) UpsertMember(ctx context.Context, boardID uuid.UUID, m domain.Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO board_members (board_id, user_id, role)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (board_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		boardID, m.UserID, m.Role,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.UpsertMember: %w", err)
	}

	return nil
}

func (r *BoardRepo) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`,
		boardID, userID,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.RemoveMember: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.RemoveMember: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *BoardRepo) listMembers(ctx context.Context, boardID uuid.UUID) ([]domain.Member, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, role FROM board_members WHERE board_id = $1 ORDER BY user_id`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.listMembers: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("boardRepo.listMembers: scan: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("boardRepo.listMembers: rows: %w", err)
	}

	return members, nil
}
