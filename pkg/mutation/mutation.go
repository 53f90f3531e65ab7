package mutation

import (
	"context"
	"sync"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
)

// State is where a mutation is in its lifecycle.
type State int

// These constants refer to the states of a mutation. Committed and RolledBack are final.
const (
	Idle State = iota
	Pending
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	}

	return "unknown"
}

// Mutation is one optimistic edit.
type Mutation struct {
	name   string
	keys   []cache.Key
	tempID string
	done   chan struct{}

	// optimistic and snaps are guarded by the engine's lock.
	optimistic bool
	snaps      map[cache.Key]cache.Snapshot

	mu     sync.Mutex
	state  State
	err    error
	result any
}

func newMutation(name string, keys []cache.Key, tempID string) *Mutation {
	return &Mutation{
		name:   name,
		keys:   keys,
		tempID: tempID,
		done:   make(chan struct{}),
		snaps:  make(map[cache.Key]cache.Snapshot, len(keys)),
	}
}

func (m *Mutation) Name() string { return m.name }

// Keys returns the cache keys the mutation touches.
func (m *Mutation) Keys() []cache.Key {
	out := make([]cache.Key, len(m.keys))
	copy(out, m.keys)

	return out
}

// TempID returns the placeholder id of the entity the mutation creates, or "".
func (m *Mutation) TempID() string { return m.tempID }

// Done is closed when the mutation reaches a final state.
func (m *Mutation) Done() <-chan struct{} { return m.done }

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Err returns the failure that rolled the mutation back.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.err
}

// Result returns the entity the server answered with, if any.
func (m *Mutation) Result() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.result
}

// Wait blocks until the mutation settles and returns its error.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = s
}

func (m *Mutation) finish(s State, err error, result any) {
	m.mu.Lock()
	m.state = s
	m.err = err
	m.result = result
	m.mu.Unlock()

	close(m.done)
}
