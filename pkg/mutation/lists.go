package mutation

import (
	"context"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/permission"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/reorder"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
)

func listsOf(s cache.Snapshot) ([]model.List, bool) {
	lists, ok := s.Value.([]model.List)

	return lists, s.Present && ok
}

func idOfList(l model.List) string { return l.ID }

// CreateList appends a placeholder list to the board.
func (e *Engine) CreateList(boardID, title string) (*Mutation, error) {
	key := cache.Lists(boardID)
	tempID := model.NewTempID()

	return e.start(plan{
		name:    "create list",
		boardID: boardID,
		action:  permission.ActionEdit,
		form:    validation.List{Title: title},
		keys:    []cache.Key{key},
		tempID:  tempID,
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			lists, ok := listsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			list := model.List{ID: tempID, BoardID: boardID, Title: title, Position: len(lists)}

			return []any{append(lists, list)}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.CreateList(ctx, boardID, title)
		},
		commit: func(result any) string {
			list, _ := result.(model.List)
			replace(e.cache, key, idOfList, tempID, list)

			return list.ID
		},
	})
}

// UpdateList renames a list.
func (e *Engine) UpdateList(boardID, listID, title string) (*Mutation, error) {
	realList, err := e.resolve(listID)
	if err != nil {
		return nil, err
	}

	return e.start(plan{
		name:    "update list",
		boardID: boardID,
		action:  permission.ActionEdit,
		form:    validation.List{Title: title},
		keys:    []cache.Key{cache.Lists(boardID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			lists, ok := listsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.listIndexLocked(lists, realList)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			if lists[i].Title == title {
				return nil, false, nil
			}

			lists[i].Title = title

			return []any{lists}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.UpdateList(ctx, realList, title)
		},
	})
}

// DeleteList removes a list. Its cards go with it on the server, so their cache entry is
// dropped once the delete is confirmed.
func (e *Engine) DeleteList(boardID, listID string) (*Mutation, error) {
	realList, err := e.resolve(listID)
	if err != nil {
		return nil, err
	}

	return e.start(plan{
		name:    "delete list",
		boardID: boardID,
		action:  permission.ActionDelete,
		keys:    []cache.Key{cache.Lists(boardID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			lists, ok := listsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.listIndexLocked(lists, realList)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			out, _ := reorder.Remove(lists, i, setListPos)

			return []any{out}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.DeleteList(ctx, realList)
		},
		evict: func() []cache.Key {
			return []cache.Key{cache.Cards(listID), cache.Cards(realList)}
		},
	})
}

// MoveList drags a list to index toIndex of its board.
func (e *Engine) MoveList(boardID, listID string, toIndex int) (*Mutation, error) {
	realList, err := e.resolve(listID)
	if err != nil {
		return nil, err
	}

	var position int

	return e.start(plan{
		name:    "move list",
		boardID: boardID,
		action:  permission.ActionEdit,
		keys:    []cache.Key{cache.Lists(boardID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			lists, ok := listsOf(cur[0])
			if !ok {
				return nil, false, ErrNotFound
			}

			from := e.listIndexLocked(lists, realList)
			if from < 0 {
				return nil, false, ErrNotFound
			}

			out, moved := reorder.Reorder(lists, from, toIndex, setListPos)
			position = clamp(toIndex, 0, len(lists)-1)

			return []any{out}, moved, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.MoveList(ctx, realList, position)
		},
	})
}
