package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/mural/internal/domain"
	"github.com/gosuda/mural/internal/realtime"
	"github.com/gosuda/mural/internal/server/middleware"
)

// Board metadata CRUD and membership management. These are thin wrappers
// around BoardRepository; live board state is never touched here — the only
// interaction with the realtime engine is refusing to delete a board that
// currently has connected sessions.

type CreateBoardInput struct {
	Body struct {
		Title       string `json:"title" minLength:"1" maxLength:"255" doc:"Board title"`
		Description string `json:"description,omitempty" maxLength:"2000" doc:"Board description"`
		IsPublic    bool   `json:"is_public,omitempty" doc:"Anyone may view when true"`
	}
}

type BoardOutput struct {
	Body *domain.Board
}

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

type UpdateBoardInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	Body    struct {
		Title       *string `json:"title,omitempty" maxLength:"255" doc:"New title"`
		Description *string `json:"description,omitempty" maxLength:"2000" doc:"New description"`
		IsPublic    *bool   `json:"is_public,omitempty" doc:"New visibility"`
	}
}

type DeleteBoardInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
}

type DeleteBoardOutput struct {
	Body struct {
		OK bool `json:"ok"`
	}
}

type UpsertMemberInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	UserID  uuid.UUID `path:"userID" doc:"User ID"`
	Body    struct {
		Role domain.Role `json:"role" enum:"editor,viewer" doc:"Member role"`
	}
}

type RemoveMemberInput struct {
	BoardID uuid.UUID `path:"boardID" doc:"Board ID"`
	UserID  uuid.UUID `path:"userID" doc:"User ID"`
}

func RegisterBoardRoutes(api huma.API, store DataStore, live BoardLiveness) {
	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/boards",
		Summary:     "Create a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*BoardOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		now := time.Now()
		board := &domain.Board{
			ID:          uuid.New(),
			OwnerID:     userID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			IsPublic:    input.Body.IsPublic,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Boards().Create(ctx, board); err != nil {
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		return &BoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards owned by or shared with the caller",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, _ *struct{}) (*ListBoardsOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		boards, err := store.Boards().ListByUser(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}
		if boards == nil {
			boards = []*domain.Board{}
		}

		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{boardID}",
		Summary:     "Get a board with its membership",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*BoardOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		board, err := loadBoard(ctx, store, input.BoardID)
		if err != nil {
			return nil, err
		}

		if _, err := realtime.ResolveRole(board, userID); err != nil {
			return nil, huma.Error403Forbidden("no access to this board")
		}

		return &BoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board",
		Method:      http.MethodPatch,
		Path:        "/boards/{boardID}",
		Summary:     "Update board title, description, or visibility",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpdateBoardInput) (*BoardOutput, error) {
		board, err := requireOwner(ctx, store, input.BoardID)
		if err != nil {
			return nil, err
		}

		if input.Body.Title != nil {
			board.Title = *input.Body.Title
		}
		if input.Body.Description != nil {
			board.Description = *input.Body.Description
		}
		if input.Body.IsPublic != nil {
			board.IsPublic = *input.Body.IsPublic
		}

		if err := store.Boards().Update(ctx, board); err != nil {
			return nil, huma.Error500InternalServerError("failed to update board", err)
		}

		return &BoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-board",
		Method:      http.MethodDelete,
		Path:        "/boards/{boardID}",
		Summary:     "Delete a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *DeleteBoardInput) (*DeleteBoardOutput, error) {
		if _, err := requireOwner(ctx, store, input.BoardID); err != nil {
			return nil, err
		}

		if live.Active(input.BoardID) {
			return nil, huma.Error409Conflict("board has connected sessions")
		}

		if err := store.Boards().Delete(ctx, input.BoardID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete board", err)
		}

		out := &DeleteBoardOutput{}
		out.Body.OK = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-board-member",
		Method:      http.MethodPut,
		Path:        "/boards/{boardID}/members/{userID}",
		Summary:     "Add a member or change their role",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpsertMemberInput) (*DeleteBoardOutput, error) {
		board, err := requireOwner(ctx, store, input.BoardID)
		if err != nil {
			return nil, err
		}

		// The owner is never a member entry.
		if input.UserID == board.OwnerID {
			return nil, huma.Error422UnprocessableEntity("owner cannot be added as a member")
		}

		member := domain.Member{UserID: input.UserID, Role: input.Body.Role}
		if err := store.Boards().UpsertMember(ctx, input.BoardID, member); err != nil {
			return nil, huma.Error500InternalServerError("failed to upsert member", err)
		}

		out := &DeleteBoardOutput{}
		out.Body.OK = true
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-board-member",
		Method:      http.MethodDelete,
		Path:        "/boards/{boardID}/members/{userID}",
		Summary:     "Remove a member",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *RemoveMemberInput) (*DeleteBoardOutput, error) {
		if _, err := requireOwner(ctx, store, input.BoardID); err != nil {
			return nil, err
		}

		if err := store.Boards().RemoveMember(ctx, input.BoardID, input.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("member not found")
			}
			return nil, huma.Error500InternalServerError("failed to remove member", err)
		}

		out := &DeleteBoardOutput{}
		out.Body.OK = true
		return out, nil
	})
}

func loadBoard(ctx context.Context, store DataStore, boardID uuid.UUID) (*domain.Board, error) {
	board, err := store.Boards().GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("board not found")
		}
		return nil, huma.Error500InternalServerError("failed to load board", err)
	}
	return board, nil
}

// requireOwner loads the board and checks the caller owns it.
func requireOwner(ctx context.Context, store DataStore, boardID uuid.UUID) (*domain.Board, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	board, err := loadBoard(ctx, store, boardID)
	if err != nil {
		return nil, err
	}

	role, err := realtime.ResolveRole(board, userID)
	if err != nil || role != domain.RoleOwner {
		return nil, huma.Error403Forbidden("owner access required")
	}

	return board, nil
}
