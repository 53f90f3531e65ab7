package mutation

import (
	"context"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/permission"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
)

func commentsOf(s cache.Snapshot) ([]model.Comment, bool) {
	comments, ok := s.Value.([]model.Comment)

	return comments, s.Present && ok
}

func idOfComment(c model.Comment) string { return c.ID }

// CreateComment posts a comment as the engine's user. The placeholder only appears when the
// card's comments are loaded.
func (e *Engine) CreateComment(boardID, cardID, content string) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	key := cache.Comments(realCard)
	tempID := model.NewTempID()

	return e.start(plan{
		name:    "create comment",
		boardID: boardID,
		action:  permission.ActionComment,
		form:    validation.Comment{Content: content},
		keys:    []cache.Key{key},
		tempID:  tempID,
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			comments, ok := commentsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			comment := model.Comment{
				ID:        tempID,
				CardID:    realCard,
				UserID:    e.user.ID,
				Content:   content,
				CreatedAt: time.Now().UTC(),
				User:      e.user,
			}

			return []any{append(comments, comment)}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.CreateComment(ctx, realCard, content)
		},
		commit: func(result any) string {
			comment, _ := result.(model.Comment)
			replace(e.cache, key, idOfComment, tempID, comment)

			return comment.ID
		},
	})
}

// DeleteComment removes a comment. Authors may delete their own comments; anyone else needs
// the delete capability on the board.
func (e *Engine) DeleteComment(boardID, cardID, commentID string) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	realComment, err := e.resolve(commentID)
	if err != nil {
		return nil, err
	}

	author := ""
	if comment, ok := e.FindComment(realCard, realComment); ok {
		author = comment.UserID
	}

	return e.start(plan{
		name:    "delete comment",
		boardID: boardID,
		allow: func(board *model.Board) bool {
			if !permission.CanComment(board, e.user.ID) {
				return false
			}

			return author == e.user.ID || permission.CanDelete(board, e.user.ID)
		},
		keys: []cache.Key{cache.Comments(realCard)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			comments, ok := commentsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.indexLocked(len(comments), func(i int) string { return comments[i].ID }, realComment)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			return []any{append(comments[:i:i], comments[i+1:]...)}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.DeleteComment(ctx, realCard, realComment)
		},
	})
}
