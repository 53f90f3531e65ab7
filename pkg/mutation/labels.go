package mutation

import (
	"context"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/permission"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
)

func labelsOf(s cache.Snapshot) ([]model.Label, bool) {
	labels, ok := s.Value.([]model.Label)

	return labels, s.Present && ok
}

func idOfLabel(l model.Label) string { return l.ID }

// label returns the board label with the given id, or a bare label when the board's labels
// are not cached.
func (e *Engine) label(boardID, labelID string) model.Label {
	labels, _ := e.cache.Snapshot(cache.Labels(boardID)).Value.([]model.Label)
	for _, l := range labels {
		if e.same(l.ID, labelID) {
			return l
		}
	}

	return model.Label{ID: labelID, BoardID: boardID}
}

// AddLabel attaches a board label to a card. Adding a label the card already carries is a
// no-op.
func (e *Engine) AddLabel(boardID, listID, cardID, labelID string) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	realLabel, err := e.resolve(labelID)
	if err != nil {
		return nil, err
	}

	key := cache.Cards(listID)
	tempID := model.NewTempID()
	label := e.label(boardID, realLabel)

	return e.start(plan{
		name:    "add label",
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

			if cards[i].HasLabel(realLabel) {
				return nil, false, nil
			}

			cards[i].Labels = append(cards[i].Labels, model.CardLabel{
				ID:      tempID,
				CardID:  realCard,
				LabelID: realLabel,
				Label:   label,
			})

			return []any{cards}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.AddCardLabel(ctx, realCard, realLabel)
		},
		commit: func(result any) string {
			attached, _ := result.(model.CardLabel)
			if attached.Label.ID == "" {
				attached.Label = label
			}

			e.cache.Update(key, func(s cache.Snapshot) (any, bool) {
				cards, ok := cardsOf(s)
				if !ok {
					return nil, false
				}

				for i := range cards {
					for j := range cards[i].Labels {
						if cards[i].Labels[j].ID == tempID {
							cards[i].Labels[j] = attached

							return cards, true
						}
					}
				}

				return nil, false
			})

			return attached.ID
		},
	})
}

// RemoveLabel detaches a label from a card. Removing a label the card does not carry is a
// no-op.
func (e *Engine) RemoveLabel(boardID, listID, cardID, labelID string) (*Mutation, error) {
	realCard, err := e.resolve(cardID)
	if err != nil {
		return nil, err
	}

	realLabel, err := e.resolve(labelID)
	if err != nil {
		return nil, err
	}

	if card, ok := e.FindCard(listID, cardID); ok {
		for _, l := range card.Labels {
			if l.LabelID == realLabel && model.IsTempID(l.ID) {
				if _, err := e.resolve(l.ID); err != nil {
					return nil, err
				}
			}
		}
	}

	return e.start(plan{
		name:    "remove label",
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

			if !cards[i].HasLabel(realLabel) {
				return nil, false, nil
			}

			kept := make([]model.CardLabel, 0, len(cards[i].Labels))
			for _, l := range cards[i].Labels {
				if l.LabelID != realLabel {
					kept = append(kept, l)
				}
			}

			cards[i].Labels = kept

			return []any{cards}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.RemoveCardLabel(ctx, realCard, realLabel)
		},
	})
}

// ToggleLabel adds the label if the card does not carry it, and removes it otherwise.
func (e *Engine) ToggleLabel(boardID, listID, cardID, labelID string) (*Mutation, error) {
	card, ok := e.FindCard(listID, cardID)
	if !ok {
		return nil, ErrNotFound
	}

	if card.HasLabel(e.RealID(labelID)) {
		return e.RemoveLabel(boardID, listID, cardID, labelID)
	}

	return e.AddLabel(boardID, listID, cardID, labelID)
}

// CreateLabel adds a placeholder label to the board's label set.
func (e *Engine) CreateLabel(boardID, name, color string) (*Mutation, error) {
	key := cache.Labels(boardID)
	tempID := model.NewTempID()

	return e.start(plan{
		name:    "create label",
		boardID: boardID,
		action:  permission.ActionEdit,
		form:    validation.Label{Name: name, Color: color},
		keys:    []cache.Key{key},
		tempID:  tempID,
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			labels, ok := labelsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			return []any{append(labels, model.Label{ID: tempID, BoardID: boardID, Name: name, Color: color})}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.CreateLabel(ctx, boardID, name, color)
		},
		commit: func(result any) string {
			label, _ := result.(model.Label)
			replace(e.cache, key, idOfLabel, tempID, label)

			return label.ID
		},
	})
}

// UpdateLabel renames or recolors a label. Cards embed their labels, so every cached card
// collection is refreshed once the server confirms.
func (e *Engine) UpdateLabel(boardID, labelID, name, color string) (*Mutation, error) {
	realLabel, err := e.resolve(labelID)
	if err != nil {
		return nil, err
	}

	return e.start(plan{
		name:    "update label",
		boardID: boardID,
		action:  permission.ActionEdit,
		form:    validation.Label{Name: name, Color: color},
		keys:    []cache.Key{cache.Labels(boardID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			labels, ok := labelsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.indexLocked(len(labels), func(i int) string { return labels[i].ID }, realLabel)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			labels[i].Name = name
			labels[i].Color = color

			return []any{labels}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return e.backend.UpdateLabel(ctx, realLabel, name, color)
		},
		refreshKinds: []cache.Kind{cache.KindCards},
	})
}

// DeleteLabel removes a label from the board and, on the server, from every card.
func (e *Engine) DeleteLabel(boardID, labelID string) (*Mutation, error) {
	realLabel, err := e.resolve(labelID)
	if err != nil {
		return nil, err
	}

	return e.start(plan{
		name:    "delete label",
		boardID: boardID,
		action:  permission.ActionDelete,
		keys:    []cache.Key{cache.Labels(boardID)},
		write: func(cur []cache.Snapshot) ([]any, bool, error) {
			labels, ok := labelsOf(cur[0])
			if !ok {
				return []any{nil}, true, nil
			}

			i := e.indexLocked(len(labels), func(i int) string { return labels[i].ID }, realLabel)
			if i < 0 {
				return nil, false, ErrNotFound
			}

			return []any{append(labels[:i:i], labels[i+1:]...)}, true, nil
		},
		send: func(ctx context.Context) (any, error) {
			return nil, e.backend.DeleteLabel(ctx, realLabel)
		},
		refreshKinds: []cache.Kind{cache.KindCards},
	})
}
