// Package realtime turns push events into cache invalidations and loads a board's
// collections when it is opened.
//
// Events are never merged into the cache. Each handler invalidates the keys the event's
// payload names, and the cache refetches them; an echo of the local user's own change
// therefore costs at most one refetch and cannot apply the change twice.
package realtime

import (
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/push"
	"github.com/rs/zerolog/log"
)

// Invalidator is the part of the cache the dispatch policy needs.
type Invalidator interface {
	Invalidate(key cache.Key)
	Evict(key cache.Key)
}

// Subscriber registers handlers per event kind.
type Subscriber interface {
	Subscribe(kind push.EventKind, h push.Handler) (unsubscribe func())
}

// Keys returns the collections an event makes stale.
func Keys(ev push.Event) []cache.Key {
	p := ev.Payload

	switch ev.Kind {
	case push.CardCreated, push.CardUpdated, push.CardDeleted,
		push.CardAssigneeAdded, push.CardAssigneeRemoved,
		push.CardLabelAdded, push.CardLabelRemoved:
		return []cache.Key{cache.Cards(p.ListID)}
	case push.CardMoved:
		if p.OldListID == p.NewListID {
			return []cache.Key{cache.Cards(p.NewListID)}
		}

		return []cache.Key{cache.Cards(p.OldListID), cache.Cards(p.NewListID)}
	case push.ListCreated, push.ListUpdated, push.ListDeleted, push.ListMoved:
		return []cache.Key{cache.Lists(p.BoardID)}
	case push.BoardUpdated:
		return []cache.Key{cache.Boards()}
	case push.BoardMemberAdded, push.BoardMemberRemoved, push.BoardMemberRoleUpdated:
		return []cache.Key{cache.Members(p.BoardID), cache.Boards()}
	case push.CommentCreated, push.CommentDeleted:
		return []cache.Key{cache.Comments(p.CardID)}
	}

	return nil
}

// evictions returns the collections an event makes meaningless.
func evictions(ev push.Event) []cache.Key {
	switch ev.Kind {
	case push.ListDeleted:
		return []cache.Key{cache.Cards(ev.Payload.ListID)}
	case push.CardDeleted:
		return []cache.Key{cache.Comments(ev.Payload.CardID)}
	}

	return nil
}

type invalidate struct {
	cache  Invalidator
	accept func(push.Event) bool
}

func (h *invalidate) Handle(ev push.Event) error {
	if h.accept != nil && !h.accept(ev) {
		log.Debug().Str("event", ev.Kind.String()).Str("board", ev.Payload.BoardID).Msg("ignoring event for another board")

		return nil
	}

	for _, key := range evictions(ev) {
		h.cache.Evict(key)
	}

	for _, key := range Keys(ev) {
		h.cache.Invalidate(key)
	}

	return nil
}

// Bind subscribes the invalidation policy to every event kind. accept, when set, filters
// events before they touch the cache. The returned func removes every subscription.
func Bind(router Subscriber, c Invalidator, accept func(push.Event) bool) (unbind func()) {
	h := &invalidate{cache: c, accept: accept}

	kinds := push.Kinds()
	unsubs := make([]func(), 0, len(kinds))

	for _, kind := range kinds {
		unsubs = append(unsubs, router.Subscribe(kind, h))
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
