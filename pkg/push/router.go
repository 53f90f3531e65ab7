package push

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler reacts to one event.
type Handler interface {
	Handle(ev Event) error
}

// HandlerFunc adapts a function to Handler. Every subscription of a HandlerFunc is distinct.
type HandlerFunc func(ev Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ev Event) error {
	return f(ev)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Router fans events out to handlers in registration order.
type Router struct {
	mu       sync.RWMutex
	handlers map[EventKind][]subscription
	nextID   uint64
}

func NewRouter() *Router {
	return &Router{handlers: map[EventKind][]subscription{}}
}

// Subscribe registers h for kind. A comparable handler already registered for kind is not
// added twice; the returned unsubscribe then removes that existing registration. Calling
// unsubscribe more than once is safe.
func (r *Router) Subscribe(kind EventKind, h Handler) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, found := r.findLocked(kind, h)
	if !found {
		r.nextID++
		id = r.nextID
		r.handlers[kind] = append(r.handlers[kind], subscription{id: id, handler: h})
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			r.remove(kind, id)
		})
	}
}

func (r *Router) findLocked(kind EventKind, h Handler) (uint64, bool) {
	t := reflect.TypeOf(h)
	if t == nil || !t.Comparable() {
		return 0, false
	}

	for _, s := range r.handlers[kind] {
		if reflect.TypeOf(s.handler) == t && s.handler == h {
			return s.id, true
		}
	}

	return 0, false
}

func (r *Router) remove(kind EventKind, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.handlers[kind]
	for i, s := range subs {
		if s.id == id {
			r.handlers[kind] = append(subs[:i:i], subs[i+1:]...)

			break
		}
	}

	if len(r.handlers[kind]) == 0 {
		delete(r.handlers, kind)
	}
}

// Handlers returns the number of handlers subscribed to kind.
func (r *Router) Handlers(kind EventKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers[kind])
}

// Dispatch runs every handler of the event's kind synchronously, in registration order. A
// failing or panicking handler is logged and does not stop the rest; the failures are
// returned joined.
func (r *Router) Dispatch(ev Event) error {
	r.mu.RLock()
	subs := make([]subscription, len(r.handlers[ev.Kind]))
	copy(subs, r.handlers[ev.Kind])
	r.mu.RUnlock()

	var errs []error

	for _, s := range subs {
		if err := call(s.handler, ev); err != nil {
			log.Error().Err(err).Str("event", ev.Kind.String()).Msg("push handler failed")

			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func call(h Handler, ev Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler for %s panicked: %v", ev.Kind, p)
		}
	}()

	return h.Handle(ev)
}
