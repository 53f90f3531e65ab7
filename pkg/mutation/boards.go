package mutation

import (
	"context"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/permission"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
)

func boardsOf(s cache.Snapshot) ([]model.Board, bool) {
	boards, ok := s.Value.([]model.Board)

	return boards, s.Present && ok
}

func membersOf(s cache.Snapshot) (model.BoardMembers, bool) {
	members, ok := s.Value.(model.BoardMembers)

	return members, s.Present && ok
}

func idOfBoard(b model.Board) string { return b.ID }

func boardIndex(boards []model.Board, boardID string) int {
	for i := range boards {
		if boards[i].ID == boardID {
			return i
		}
	}

	return -1
}

func memberIndex(members []model.Member, userID string) int {
	for i := range members {
		if members[i].UserID == userID {
			return i
		}
	}

	return -1
}

// CreateBoard adds a placeholder board owned by the engine's user. Anyone signed in may
// create a board.
func (e *Engine) CreateBoard(name string) (*Mutation, error) {
	key := cache.Boards()
	tempID := model.NewTempID()

	return e.start(plan{
		name:   "create board",
		allow:  func(*model.Board) bool { return true },
		form:   validation.Board{Name: name},
		keys:   []cache.Key{key},
		tempID: tempID,
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			boards, ok := boardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			board := model.Board{
				ID:      tempID,
				Name:    name,
				OwnerID: e.user.ID,
				Owner:   e.user,
				Members: []model.Member{},
			}

			return []any{append(boards, board)}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.CreateBoard(ctx, name)
		},
		commit: func(result any) string {
			board, _ := result.(model.Board)
			replace(e.cache, key, idOfBoard, tempID, board)

			return board.ID
		},
	})
}

// UpdateBoard renames a board. Only the owner may rename.
func (e *Engine) UpdateBoard(boardID, name string) (*Mutation, error) {
	realBoard, err := e.resolve(boardID)
	if err != nil {
		return nil, err
	}

	return e.start(plan{
		name:    "update board",
		boardID: realBoard,
		action:  permission.ActionRenameBoard,
		form:    validation.Board{Name: name},
		keys:    []cache.Key{cache.Boards()},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			boards, ok := boardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := boardIndex(boards, realBoard)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			if boards[i].Name == name {
				return nil, false, nil
			}

			boards[i].Name = name

			return []any{boards}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.UpdateBoard(ctx, realBoard, name)
		},
	})
}

// DeleteBoard removes a board the user owns. Every cached collection below it is dropped
// once the server confirms.
func (e *Engine) DeleteBoard(boardID string) (*Mutation, error) {
	realBoard, err := e.resolve(boardID)
	if err != nil {
		return nil, err
	}

	return e.start(plan{
		name:    "delete board",
		boardID: realBoard,
		action:  permission.ActionDeleteBoard,
		keys:    []cache.Key{cache.Boards()},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			boards, ok := boardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := boardIndex(boards, realBoard)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			return []any{append(boards[:i:i], boards[i+1:]...)}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.DeleteBoard(ctx, realBoard)
		},
		evict: func() []cache.Key {
			keys := []cache.Key{cache.Lists(realBoard), cache.Labels(realBoard), cache.Members(realBoard)}

			lists, _ := e.cache.Snapshot(cache.Lists(realBoard)).Value.([]model.List)
			for _, l := range lists {
				keys = append(keys, cache.Cards(l.ID))
			}

			return keys
		},
	})
}

// InviteMember adds a registered user to the board by email. The server decides the new
// member's identity, so nothing is written until it answers.
func (e *Engine) InviteMember(boardID, email string) (*Mutation, error) {
	return e.start(plan{
		name:    "invite member",
		boardID: boardID,
		action:  permission.ActionManageMembers,
		form:    validation.Invite{Email: email},
		keys:    []cache.Key{cache.Members(boardID)},
		send: func(ctx context.Context) (any, error) {
			return e.backend.InviteMember(ctx, boardID, email)
		},
		refresh: []cache.Key{cache.Boards()},
	})
}

// UpdateMemberRole changes a member's role. The owner is not a member and cannot be changed.
func (e *Engine) UpdateMemberRole(boardID, userID string, role model.Role) (*Mutation, error) {
	return e.start(plan{
		name:    "update member role",
		boardID: boardID,
		action:  permission.ActionManageMembers,
		keys:    []cache.Key{cache.Members(boardID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			roster, ok := membersOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := memberIndex(roster.Members, userID)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			if roster.Members[i].Role == role {
				return nil, false, nil
			}

			roster.Members[i].Role = role

			return []any{roster}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.UpdateMemberRole(ctx, boardID, userID, role)
		},
		refresh: []cache.Key{cache.Boards()},
	})
}

// RemoveMember takes a member off the board.
func (e *Engine) RemoveMember(boardID, userID string) (*Mutation, error) {
	return e.start(plan{
		name:    "remove member",
		boardID: boardID,
		action:  permission.ActionManageMembers,
		keys:    []cache.Key{cache.Members(boardID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			roster, ok := membersOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := memberIndex(roster.Members, userID)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			roster.Members = append(roster.Members[:i:i], roster.Members[i+1:]...)

			return []any{roster}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.RemoveMember(ctx, boardID, userID)
		},
		refresh: []cache.Key{cache.Boards()},
	})
}
