package mutation

import (
	"fmt"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
)

// RealID returns the server id recorded for a confirmed placeholder, or id itself.
func (e *Engine) RealID(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if real, ok := e.aliases[id]; ok {
		return real
	}

	return id
}

// resolve maps id to the id the server knows. Placeholders whose create request is still in
// flight cannot be sent and yield ErrNotSynced.
func (e *Engine) resolve(id string) (string, error) {
	if !model.IsTempID(id) {
		return id, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if real, ok := e.aliases[id]; ok {
		return real, nil
	}

	if e.creating[id] {
		return "", fmt.Errorf("%s: %w", id, ErrNotSynced)
	}

	return "", fmt.Errorf("%s: %w", id, ErrNotFound)
}

// sameLocked reports whether two ids name the same entity, looking through placeholders.
func (e *Engine) sameLocked(a, b string) bool {
	if a == b {
		return true
	}

	return e.aliases[a] == b || e.aliases[b] == a
}

func (e *Engine) same(a, b string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sameLocked(a, b)
}

// FindCard returns the cached card with the given placeholder or server id.
func (e *Engine) FindCard(listID, cardID string) (model.Card, bool) {
	cards, _ := e.cache.Snapshot(cache.Cards(listID)).Value.([]model.Card)

	for _, c := range cards {
		if e.same(c.ID, cardID) {
			return c, true
		}
	}

	return model.Card{}, false
}

// FindComment returns the cached comment with the given placeholder or server id.
func (e *Engine) FindComment(cardID, commentID string) (model.Comment, bool) {
	comments, _ := e.cache.Snapshot(cache.Comments(e.RealID(cardID))).Value.([]model.Comment)

	for _, c := range comments {
		if e.same(c.ID, commentID) {
			return c, true
		}
	}

	return model.Comment{}, false
}

func (e *Engine) indexLocked(n int, id func(i int) string, want string) int {
	for i := 0; i < n; i++ {
		if e.sameLocked(id(i), want) {
			return i
		}
	}

	return -1
}

func (e *Engine) cardIndexLocked(cards []model.Card, cardID string) int {
	return e.indexLocked(len(cards), func(i int) string { return cards[i].ID }, cardID)
}

func (e *Engine) listIndexLocked(lists []model.List, listID string) int {
	return e.indexLocked(len(lists), func(i int) string { return lists[i].ID }, listID)
}

func setCardPos(c *model.Card, i int) { c.Position = i }

func setListPos(l *model.List, i int) { l.Position = i }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// replace swaps the entity with id old in key's collection for the server's version.
func replace[T any](c *cache.Cache, key cache.Key, id func(T) string, old string, with T) {
	c.Update(key, func(s cache.Snapshot) (any, bool) {
		items, ok := s.Value.([]T)
		if !ok {
			return nil, false
		}

		for i := range items {
			if id(items[i]) == old {
				items[i] = with

				return items, true
			}
		}

		return nil, false
	})
}
