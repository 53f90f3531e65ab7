package mutation

import (
	"context"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/permission"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/reorder"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
)

func cardsOf(s cache.Snapshot) ([]model.Card, bool) {
	cards, ok := s.Value.([]model.Card)

	return cards, s.Present && ok
}

func idOfCard(c model.Card) string { return c.ID }

// MoveCard drags a card to index toIndex of toListID, which may be its own list. Only the
// target list and index are sent; the server assigns the canonical positions. A move onto
// the card's current slot returns a nil mutation.
func (e *Engine) MoveCard(boardID, cardID, fromListID, toListID string, toIndex int) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	realTo, err := e.resolve(toListID)
	if err != nil {
		return nil, err
	}

	sameList := fromListID == toListID

	keys := []cache.Key{cache.Cards(fromListID)}
	if !sameList {
		keys = append(keys, cache.Cards(toListID))
	}

	var position int

	return e.start(plan{
		name:    "move card",
		boardID: boardID,
		action:  permission.ActionEdit,
		keys:    keys,
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			src, ok := cardsOf(cur[0])
			if !ok {
				return nil, false, ErrNotFound
			}

			from := e.cardIndexLocked(src, realCard)
			if from < 0 {
				return nil, false, ErrNotFound
			}

			if sameList {
				out, moved := reorder.Reorder(src, from, toIndex, setCardPos)
				position = clamp(toIndex, 0, len(src)-1)

				return []any{out}, moved, nil
			}

			dst, loaded := cardsOf(cur[1])
			newSrc, newDst, _ := reorder.MoveBetween(src, dst, from, toIndex, setCardPos, func(c *model.Card) {
				c.ListID = toListID
			})

			if !loaded {
				// the destination loads from the server once the move commits
				position = max(toIndex, 0)

				return []any{newSrc, nil}, true, nil
			}

			position = clamp(toIndex, 0, len(dst))

			return []any{newSrc, newDst}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.MoveCard(ctx, realCard, realTo, position)
		},
	})
}

// CreateCard appends a placeholder card to the list until the server confirms it.
func (e *Engine) CreateCard(boardID, listID string, in api.CardInput) (*Mutation, error) {
	realList, err := e.resolve(listID)
	if err != nil {
		return nil, err
	}

	key := cache.Cards(listID)
	tempID := model.NewTempID()

	return e.start(plan{
		name:    "create card",
		boardID: boardID,
		action:  permission.ActionEdit,
		form:    validation.Card{Title: in.Title},
		keys:    []cache.Key{key},
		tempID:  tempID,
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			cards, ok := cardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			card := model.Card{
				ID:          tempID,
				ListID:      listID,
				Title:       in.Title,
				Description: in.Description,
				DueDate:     in.DueDate,
				Position:    len(cards),
				Labels:      []model.CardLabel{},
				Assignees:   []model.CardAssignee{},
			}

			return []any{append(cards, card)}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.CreateCard(ctx, realList, in)
		},
		commit: func(result any) string {
			card, _ := result.(model.Card)
			replace(e.cache, key, idOfCard, tempID, card)

			return card.ID
		},
	})
}

// UpdateCard applies the non-nil fields of patch.
func (e *Engine) UpdateCard(boardID, listID, cardID string, patch api.CardPatch) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	var form any
	if patch.Title != nil {
		form = validation.Card{Title: *patch.Title}
	}

	return e.start(plan{
		name:    "update card",
		boardID: boardID,
		action:  permission.ActionEdit,
		form:    form,
		keys:    []cache.Key{cache.Cards(listID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			cards, ok := cardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.cardIndexLocked(cards, realCard)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			if patch.Title != nil {
				cards[i].Title = *patch.Title
			}

			if patch.Description != nil {
				cards[i].Description = *patch.Description
			}

			if patch.DueDate != nil {
				due := *patch.DueDate
				cards[i].DueDate = &due
			}

			return []any{cards}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.UpdateCard(ctx, realCard, patch)
		},
	})
}

// DeleteCard removes the card and closes the gap it leaves.
func (e *Engine) DeleteCard(boardID, listID, cardID string) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	return e.start(plan{
		name:    "delete card",
		boardID: boardID,
		action:  permission.ActionDelete,
		keys:    []cache.Key{cache.Cards(listID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			cards, ok := cardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.cardIndexLocked(cards, realCard)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			out, _ := reorder.Remove(cards, i, setCardPos)

			return []any{out}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.DeleteCard(ctx, realCard)
		},
		evict: func() []cache.Key {
			return []cache.Key{cache.Comments(realCard)}
		},
	})
}

// AssignUser adds the user to the card's assignees under a placeholder id. Assigning an
// assigned user is a no-op.
func (e *Engine) AssignUser(boardID, listID, cardID string, user model.User) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	key := cache.Cards(listID)
	tempID := model.NewTempID()

	return e.start(plan{
		name:    "assign user",
		boardID: boardID,
		action:  permission.ActionEdit,
		keys:    []cache.Key{key},
		tempID:  tempID,
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			cards, ok := cardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.cardIndexLocked(cards, realCard)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			if cards[i].HasAssignee(user.ID) {
				return nil, false, nil
			}

			cards[i].Assignees = append(cards[i].Assignees, model.CardAssignee{
				ID:     tempID,
				CardID: realCard,
				UserID: user.ID,
				User:   user,
			})

			return []any{cards}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.AssignUser(ctx, realCard, user.ID)
		},
		commit: func(result any) string {
			assignee, _ := result.(model.CardAssignee)

			e.cache.Update(key, func(s cache.Snapshot) (any, bool) {
				cards, ok := cardsOf(s)
				if !ok {
					return nil, false
				}

				for i := range cards {
					for j := range cards[i].Assignees {
						if cards[i].Assignees[j].ID == tempID {
							cards[i].Assignees[j] = assignee

							return cards, true
						}
					}
				}

				return nil, false
			})

			return assignee.ID
		},
	})
}

// UnassignUser removes the user from the card's assignees. Removing a user who is not
// assigned is a no-op.
func (e *Engine) UnassignUser(boardID, listID, cardID, userID string) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	if card, ok := e.FindCard(listID, cardID); ok {
		for _, a := range card.Assignees {
			if a.UserID == userID && model.IsTempID(a.ID) {
				if _, err := e.resolve(a.ID); err != nil {
					return nil, err
				}
			}
		}
	}

	return e.start(plan{
		name:    "unassign user",
		boardID: boardID,
		action:  permission.ActionEdit,
		keys:    []cache.Key{cache.Cards(listID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			cards, ok := cardsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.cardIndexLocked(cards, realCard)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			if !cards[i].HasAssignee(userID) {
				return nil, false, nil
			}

			kept := make([]model.CardAssignee, 0, len(cards[i].Assignees))
			for _, a := range cards[i].Assignees {
				if a.UserID != userID {
					kept = append(kept, a)
				}
			}

			cards[i].Assignees = kept

			return []any{cards}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.UnassignUser(ctx, realCard, userID)
		},
	})
}

// ToggleAssignee assigns the user if they are not on the card, and unassigns them otherwise.
func (e *Engine) ToggleAssignee(boardID, listID, cardID string, user model.User) (*Mutation, error) {
	card, ok := e.FindCard(listID, cardID)
	if !ok {
		return nil, ErrNotFound
	}

	if card.HasAssignee(user.ID) {
		return e.UnassignUser(boardID, listID, cardID, user.ID)
	}

	return e.AssignUser(boardID, listID, cardID, user)
}
