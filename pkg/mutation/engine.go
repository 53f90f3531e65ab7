// Package mutation applies user edits to the cache before the server confirms them.
//
// Every operation follows the same sequence: permission check, input validation, hold and
// cancel the touched keys, snapshot and speculatively write them in one atomic step, then
// send the request in the background. Success marks the keys stale so the cache refetches
// the authoritative values; failure puts the snapshots back.
//
// Mutations on the same key stack. A mutation's snapshot is the value just before its own
// write, which may itself be optimistic. When a mutation that is not the newest on a key
// fails, its snapshot is handed to the mutation above it instead of being restored, so the
// key ends at the last value the server could have agreed with.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/api"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/permission"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/validation"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrForbidden is returned, before any cache write or request, when the user's role does
	// not allow the action.
	ErrForbidden = errors.New("action not permitted")
	// ErrNotSynced is returned when an operation needs the server id of an entity whose
	// create request is still pending.
	ErrNotSynced = errors.New("entity is not confirmed by the server yet")
	// ErrNotFound is returned when the entity is not in the cached collection.
	ErrNotFound = errors.New("entity not found")
)

// Backend is the REST surface the engine sends confirmed intents to. *api.Client
// implements it.
type Backend interface {
	CreateBoard(ctx context.Context, name string) (model.Board, error)
	UpdateBoard(ctx context.Context, boardID, name string) (model.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error
	InviteMember(ctx context.Context, boardID, email string) (model.Member, error)
	UpdateMemberRole(ctx context.Context, boardID, userID string, role model.Role) (model.Member, error)
	RemoveMember(ctx context.Context, boardID, userID string) error

	CreateList(ctx context.Context, boardID, title string) (model.List, error)
	UpdateList(ctx context.Context, listID, title string) (model.List, error)
	DeleteList(ctx context.Context, listID string) error
	MoveList(ctx context.Context, listID string, newPosition int) (model.List, error)

	CreateCard(ctx context.Context, listID string, in api.CardInput) (model.Card, error)
	UpdateCard(ctx context.Context, cardID string, patch api.CardPatch) (model.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	MoveCard(ctx context.Context, cardID, newListID string, newPosition int) (model.Card, error)
	AssignUser(ctx context.Context, cardID, userID string) (model.CardAssignee, error)
	UnassignUser(ctx context.Context, cardID, userID string) error

	CreateLabel(ctx context.Context, boardID, name, color string) (model.Label, error)
	UpdateLabel(ctx context.Context, labelID, name, color string) (model.Label, error)
	DeleteLabel(ctx context.Context, labelID string) error
	AddCardLabel(ctx context.Context, cardID, labelID string) (model.CardLabel, error)
	RemoveCardLabel(ctx context.Context, cardID, labelID string) error

	CreateComment(ctx context.Context, cardID, content string) (model.Comment, error)
	DeleteComment(ctx context.Context, cardID, commentID string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithContext sets the parent context of every request.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		e.ctx = ctx
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// OnError is called after a mutation rolled back.
func OnError(fn func(m *Mutation, err error)) Option {
	return func(e *Engine) {
		e.onError = fn
	}
}

// OnUnauthorized is called, after the rollback, when the server rejected the session.
func OnUnauthorized(fn func(err error)) Option {
	return func(e *Engine) {
		e.onUnauthorized = fn
	}
}

// Engine runs optimistic mutations for one signed in user.
type Engine struct {
	cache   *cache.Cache
	backend Backend
	user    model.User

	ctx            context.Context
	timeout        time.Duration
	onError        func(*Mutation, error)
	onUnauthorized func(error)

	mu sync.Mutex
	// stacks holds, per key, the pending mutations that wrote it, oldest first.
	stacks map[cache.Key][]*Mutation
	// aliases maps confirmed placeholder ids to server ids.
	aliases map[string]string
	// creating holds placeholder ids whose create request is in flight.
	creating map[string]bool

	wg sync.WaitGroup
}

func New(c *cache.Cache, backend Backend, user model.User, opts ...Option) *Engine {
	e := &Engine{
		cache:    c,
		backend:  backend,
		user:     user,
		ctx:      context.Background(),
		timeout:  defaultTimeout,
		stacks:   map[cache.Key][]*Mutation{},
		aliases:  map[string]string{},
		creating: map[string]bool{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// User returns the user the engine acts as.
func (e *Engine) User() model.User {
	return e.user
}

// Wait blocks until every started mutation has settled.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Pending returns the number of mutations holding each key.
func (e *Engine) Pending(key cache.Key) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.stacks[key])
}

// plan describes one mutation to start.
type plan struct {
	name    string
	boardID string
	action  permission.Action
	// allow replaces the action check when set.
	allow func(board *model.Board) bool
	// form is validated before anything else happens.
	form any
	keys []cache.Key
	// tempID is the placeholder id of the entity the mutation creates.
	tempID string
	// write computes the speculative values of keys. A nil value leaves its key untouched;
	// ok false makes the whole mutation a no-op. It runs with the cache locked and must not
	// call back into it. Plans without write never touch the cache before the response.
	write func(current []cache.Snapshot) (next []any, ok bool, err error)
	send  func(ctx context.Context) (any, error)
	// commit runs after a successful response and returns the server id of the created
	// entity, if any. It runs with e.mu held.
	commit func(result any) string
	// refresh lists keys to invalidate on success in addition to keys.
	refresh []cache.Key
	// refreshKinds lists whole kinds to invalidate on success.
	refreshKinds []cache.Kind
	// evict lists keys that are meaningless after success.
	evict func() []cache.Key
}

func (e *Engine) start(p plan) (*Mutation, error) {
	if !e.allowed(p) {
		log.Info().Str("mutation", p.name).Str("board", p.boardID).Msg("denied")

		return nil, fmt.Errorf("error running %s: %w", p.name, ErrForbidden)
	}

	if p.form != nil {
		if err := validation.Validate(p.form); err != nil {
			return nil, err
		}
	}

	m := newMutation(p.name, p.keys, p.tempID)

	e.mu.Lock()

	e.cache.Hold(p.keys...)

	for _, key := range p.keys {
		e.cache.Cancel(key)
	}

	var (
		writeErr error
		noop     bool
	)

	before := e.cache.Apply(p.keys, func(current []cache.Snapshot) []any {
		if p.write == nil {
			return nil
		}

		next, ok, err := p.write(current)

		switch {
		case err != nil:
			writeErr = err
		case !ok:
			noop = true
		default:
			return next
		}

		return nil
	})

	if writeErr != nil || noop {
		e.mu.Unlock()
		e.cache.Release(p.keys...)

		if writeErr != nil {
			return nil, fmt.Errorf("error running %s: %w", p.name, writeErr)
		}

		log.Debug().Str("mutation", p.name).Msg("no-op")

		return nil, nil
	}

	m.optimistic = p.write != nil

	for i, key := range p.keys {
		m.snaps[key] = before[i]
		e.stacks[key] = append(e.stacks[key], m)
	}

	if p.tempID != "" {
		e.creating[p.tempID] = true
	}

	m.setState(Pending)
	e.wg.Add(1)
	e.mu.Unlock()

	log.Debug().Str("mutation", p.name).Strs("keys", keyStrings(p.keys)).Msg("pending")

	go e.run(m, p)

	return m, nil
}

func (e *Engine) allowed(p plan) bool {
	if p.allow != nil {
		return p.allow(e.board(p.boardID))
	}

	return permission.Allowed(e.board(p.boardID), e.user.ID, p.action)
}

func (e *Engine) run(m *Mutation, p plan) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	result, err := p.send(ctx)
	if err != nil {
		e.rollback(m, p, err)

		return
	}

	e.settle(m, p, result)
}

func (e *Engine) settle(m *Mutation, p plan, result any) {
	e.mu.Lock()
	e.popLocked(m)

	if p.tempID != "" {
		delete(e.creating, p.tempID)
	}

	if p.commit != nil {
		if realID := p.commit(result); realID != "" && p.tempID != "" {
			e.aliases[p.tempID] = realID
		}
	}
	e.mu.Unlock()

	if p.evict != nil {
		for _, key := range p.evict() {
			e.cache.Evict(key)
		}
	}

	for _, key := range p.keys {
		e.cache.Invalidate(key)
	}

	for _, key := range p.refresh {
		e.cache.Invalidate(key)
	}

	for _, kind := range p.refreshKinds {
		e.cache.InvalidateKind(kind)
	}

	e.cache.Release(p.keys...)

	m.finish(Committed, nil, result)

	log.Debug().Str("mutation", p.name).Msg("committed")
}

func (e *Engine) rollback(m *Mutation, p plan, err error) {
	e.mu.Lock()

	for i := len(p.keys) - 1; i >= 0; i-- {
		if snap, ok := e.unwindLocked(m, p.keys[i]); ok {
			e.cache.Restore(snap)
		}
	}

	if p.tempID != "" {
		delete(e.creating, p.tempID)
	}
	e.mu.Unlock()

	e.cache.Release(p.keys...)

	err = fmt.Errorf("error running %s: %w", p.name, err)
	m.finish(RolledBack, err, nil)

	log.Warn().Err(err).Str("mutation", p.name).Msg("rolled back")

	if api.IsKind(err, api.KindUnauthorized) && e.onUnauthorized != nil {
		e.onUnauthorized(err)
	}

	if e.onError != nil {
		e.onError(m, err)
	}
}

// unwindLocked removes m from key's stack and returns the snapshot to restore, if m is the
// newest writer of key. Otherwise m's snapshot replaces the one of the mutation above it.
func (e *Engine) unwindLocked(m *Mutation, key cache.Key) (cache.Snapshot, bool) {
	stack := e.stacks[key]

	idx := -1

	for i, other := range stack {
		if other == m {
			idx = i

			break
		}
	}

	if idx < 0 {
		return cache.Snapshot{}, false
	}

	e.removeLocked(key, idx)

	if !m.optimistic {
		return cache.Snapshot{}, false
	}

	for _, above := range stack[idx+1:] {
		if above.optimistic {
			above.snaps[key] = m.snaps[key]

			return cache.Snapshot{}, false
		}
	}

	return m.snaps[key], true
}

func (e *Engine) popLocked(m *Mutation) {
	for _, key := range m.keys {
		for i, other := range e.stacks[key] {
			if other == m {
				e.removeLocked(key, i)

				break
			}
		}
	}
}

func (e *Engine) removeLocked(key cache.Key, idx int) {
	stack := e.stacks[key]

	e.stacks[key] = append(stack[:idx:idx], stack[idx+1:]...)
	if len(e.stacks[key]) == 0 {
		delete(e.stacks, key)
	}
}

// board returns the cached board, or nil when it is not loaded.
func (e *Engine) board(boardID string) *model.Board {
	if boardID == "" {
		return nil
	}

	boards, _ := e.cache.Snapshot(cache.Boards()).Value.([]model.Board)
	for i := range boards {
		if boards[i].ID == boardID {
			return &boards[i]
		}
	}

	return nil
}

func keyStrings(keys []cache.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}

	return out
}
