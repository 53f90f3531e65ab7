// Package cache is the keyed, versioned in-memory store every other component reads and
// writes entity collections through.
//
// Each key holds one ordered collection plus bookkeeping: a version bumped on every write, a
// generation counter that retires in-flight fetches, a stale flag and a hold count. At most
// one fetch per key is ever in flight. Writes cancel that fetch, so a response started
// before a write can never overwrite it. An invalidation that lands while a fetch is in
// flight is folded into a single follow-up fetch once that one returns.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// DefaultSize bounds the number of collections kept before the least recently used is evicted.
const DefaultSize = 1024

var (
	// ErrCanceled is reported to waiters of a fetch that was canceled or evicted.
	ErrCanceled = errors.New("fetch canceled")
	// ErrNoLoader is returned when a fetch is needed but the cache has no loader.
	ErrNoLoader = errors.New("cache has no loader")
)

// Loader fetches the authoritative value of a key.
type Loader interface {
	Load(ctx context.Context, key Key) (any, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, key Key) (any, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, key Key) (any, error) {
	return f(ctx, key)
}

// Snapshot is a point in time copy of one key's value.
type Snapshot struct {
	Key     Key
	Value   any
	Present bool
	Stale   bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithSize bounds the number of cached collections.
func WithSize(size int) Option {
	return func(c *Cache) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithCopier sets the deep copy applied to every value crossing the cache boundary.
func WithCopier(copier func(any) any) Option {
	return func(c *Cache) {
		if copier != nil {
			c.copy = copier
		}
	}
}

type fetch struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

type entry struct {
	value   any
	present bool
	stale   bool
	// dirty records an invalidation that arrived while the key was held.
	dirty bool
	// refetch records an invalidation that arrived while fetch was in flight.
	refetch bool
	holds   int
	version uint64
	gen     uint64
	fetch   *fetch
}

type watcher struct {
	id uint64
	fn func(Key, any)
}

// Cache is safe for concurrent use. Every exported method is atomic with respect to the
// keys it touches; watchers are always called without the lock held.
type Cache struct {
	ctx    context.Context
	cancel context.CancelFunc
	loader Loader
	copy   func(any) any
	size   int

	mu       sync.Mutex
	idle     *sync.Cond
	entries  *lru.Cache[Key, *entry]
	watchers map[Key][]watcher
	nextID   uint64
	fetches  uint64
	inflight int
}

// New creates a cache that loads missing or stale keys through loader.
func New(ctx context.Context, loader Loader, opts ...Option) (*Cache, error) {
	c := &Cache{
		loader:   loader,
		copy:     func(v any) any { return v },
		size:     DefaultSize,
		watchers: map[Key][]watcher{},
	}

	for _, opt := range opts {
		opt(c)
	}

	entries, err := lru.NewWithEvict[Key, *entry](c.size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("error creating cache storage: %w", err)
	}

	c.entries = entries
	c.idle = sync.NewCond(&c.mu)
	c.ctx, c.cancel = context.WithCancel(ctx)

	return c, nil
}

// Close cancels every in-flight fetch and drops all values.
func (c *Cache) Close() {
	c.cancel()
	c.Reset()
}

// Get returns a copy of the key's value. A stale, unheld key schedules a background
// refetch and still returns the stale value.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok || !e.present {
		return nil, false
	}

	if e.stale && e.holds == 0 {
		c.startFetchLocked(key, e)
	}

	return c.copy(e.value), true
}

// Fetch returns the key's value, loading it first when it is missing or stale. Concurrent
// callers share one request. When a write supersedes the shared request, Fetch returns the
// written value; when the key was evicted meanwhile, it loads again.
func (c *Cache) Fetch(ctx context.Context, key Key) (any, error) {
	c.mu.Lock()

	for {
		e := c.getOrCreateLocked(key)
		if e.present && (!e.stale || e.holds > 0) {
			v := c.copy(e.value)
			c.mu.Unlock()

			return v, nil
		}

		f := c.startFetchLocked(key, e)
		c.mu.Unlock()

		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if f.err != nil && !errors.Is(f.err, ErrCanceled) {
			return nil, f.err
		}

		if c.ctx.Err() != nil {
			return nil, ErrCanceled
		}

		// the next pass returns what superseded the fetch, joins its follow-up or loads again
		c.mu.Lock()
	}
}

// Set replaces the key's value, canceling any in-flight fetch for it.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()

	e := c.getOrCreateLocked(key)
	c.writeLocked(key, e, value)
	notify := c.notifyLocked(key, e)

	c.mu.Unlock()

	notify()
}

// Update atomically replaces the key's value with fn's result and returns the value it
// replaced. fn receives a copy it may modify; returning false leaves the key untouched.
// fn must not call back into the cache.
func (c *Cache) Update(key Key, fn func(Snapshot) (any, bool)) Snapshot {
	snaps := c.Apply([]Key{key}, func(current []Snapshot) []any {
		if v, ok := fn(current[0]); ok {
			return []any{v}
		}

		return []any{nil}
	})

	return snaps[0]
}

// Apply atomically reads every key and writes fn's results back. A nil result leaves its
// key untouched. It returns the values as they were before the write. fn must not call
// back into the cache.
func (c *Cache) Apply(keys []Key, fn func(current []Snapshot) []any) []Snapshot {
	c.mu.Lock()

	before := make([]Snapshot, len(keys))
	current := make([]Snapshot, len(keys))

	for i, key := range keys {
		before[i] = c.snapshotLocked(key)
		current[i] = c.snapshotLocked(key)
	}

	next := fn(current)

	var notifies []func()

	for i, key := range keys {
		if i >= len(next) || next[i] == nil {
			continue
		}

		e := c.getOrCreateLocked(key)
		c.writeLocked(key, e, next[i])
		notifies = append(notifies, c.notifyLocked(key, e))
	}

	c.mu.Unlock()

	for _, notify := range notifies {
		notify()
	}

	return before
}

// Snapshot returns a copy of the key's current value without triggering a fetch.
func (c *Cache) Snapshot(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked(key)
}

// Restore puts a snapshot back exactly, discarding whatever was written since.
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()

	e := c.getOrCreateLocked(s.Key)
	c.cancelFetchLocked(e)

	if s.Present {
		e.value = c.copy(s.Value)
	} else {
		e.value = nil
	}

	e.present = s.Present
	e.stale = s.Stale || e.dirty
	e.version++
	e.gen++

	notify := c.notifyLocked(s.Key, e)

	c.mu.Unlock()

	log.Debug().Str("key", s.Key.String()).Msg("restored snapshot")

	notify()
}

// Hold pins the current values of keys: while held, invalidations only mark the key stale
// and no refetch starts. Holds nest.
func (c *Cache) Hold(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		c.getOrCreateLocked(key).holds++
	}
}

// Release drops one hold per key. When the last hold goes, a stale watched key refetches.
func (c *Cache) Release(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		e, ok := c.entries.Peek(key)
		if !ok || e.holds == 0 {
			continue
		}

		e.holds--
		if e.holds > 0 {
			continue
		}

		e.dirty = false

		if e.stale && c.watchedLocked(key) {
			c.startFetchLocked(key, e)
		}
	}
}

// Invalidate marks the key stale. A watched key refetches right away, others on their next
// read. Invalidating a stale key again costs nothing more. Invalidations that land while a
// fetch is in flight, however many, cost exactly one more fetch after it returns, since the
// running request may have read the server before the change.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries.Peek(key); ok {
		c.invalidateLocked(key, e)
	}
}

// InvalidateKind invalidates every cached key of the kind.
func (c *Cache) InvalidateKind(kind Kind) {
	c.InvalidateWhere(func(k Key) bool { return k.Kind == kind })
}

// InvalidateWhere invalidates every cached key matching.
func (c *Cache) InvalidateWhere(match func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.entries.Keys() {
		if !match(key) {
			continue
		}

		if e, ok := c.entries.Peek(key); ok {
			c.invalidateLocked(key, e)
		}
	}
}

// Cancel aborts the key's in-flight fetch. A response that arrives afterwards is discarded.
func (c *Cache) Cancel(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok {
		return
	}

	if e.fetch != nil {
		log.Debug().Str("key", key.String()).Msg("canceling fetch")
	}

	c.cancelFetchLocked(e)
	e.gen++
}

// Evict drops the key.
func (c *Cache) Evict(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(key)
}

// EvictWhere drops every key matching.
func (c *Cache) EvictWhere(match func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.entries.Keys() {
		if match(key) {
			c.entries.Remove(key)
		}
	}
}

// Reset drops every key. Watchers stay registered.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
}

// Watch registers fn to be called with a copy of the key's value after every write and
// refetch. Watched keys refetch eagerly when invalidated.
func (c *Cache) Watch(key Key, fn func(Key, any)) (unwatch func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers[key] = append(c.watchers[key], watcher{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			ws := c.watchers[key]
			for i, w := range ws {
				if w.id == id {
					c.watchers[key] = append(ws[:i:i], ws[i+1:]...)

					break
				}
			}

			if len(c.watchers[key]) == 0 {
				delete(c.watchers, key)
			}
		})
	}
}

// Wait blocks until no fetch is in flight.
func (c *Cache) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.inflight > 0 {
		c.idle.Wait()
	}
}

// Fetches returns the number of fetches started since creation.
func (c *Cache) Fetches() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fetches
}

// Version returns the key's write counter, or 0 when the key is unknown.
func (c *Cache) Version(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries.Peek(key); ok {
		return e.version
	}

	return 0
}

// IsStale reports whether the key has been invalidated and not yet refreshed.
func (c *Cache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)

	return ok && e.stale
}

// Keys lists the cached keys, oldest first.
func (c *Cache) Keys() []Key {
	return c.entries.Keys()
}

func (c *Cache) getOrCreateLocked(key Key) *entry {
	if e, ok := c.entries.Get(key); ok {
		return e
	}

	e := &entry{}
	c.entries.Add(key, e)

	return e
}

func (c *Cache) snapshotLocked(key Key) Snapshot {
	e, ok := c.entries.Peek(key)
	if !ok || !e.present {
		return Snapshot{Key: key}
	}

	return Snapshot{Key: key, Value: c.copy(e.value), Present: true, Stale: e.stale}
}

func (c *Cache) writeLocked(key Key, e *entry, value any) {
	if e.fetch != nil {
		log.Debug().Str("key", key.String()).Msg("write supersedes in-flight fetch")
	}

	c.cancelFetchLocked(e)

	e.value = c.copy(value)
	e.present = true
	e.stale = false
	e.version++
	e.gen++
}

func (c *Cache) invalidateLocked(key Key, e *entry) {
	if e.fetch != nil {
		e.refetch = true

		return
	}

	e.stale = true

	if e.holds > 0 {
		e.dirty = true

		return
	}

	if c.watchedLocked(key) {
		c.startFetchLocked(key, e)
	}
}

func (c *Cache) watchedLocked(key Key) bool {
	return len(c.watchers[key]) > 0
}

func (c *Cache) startFetchLocked(key Key, e *entry) *fetch {
	if e.fetch != nil {
		return e.fetch
	}

	if c.loader == nil {
		f := &fetch{cancel: func() {}, done: make(chan struct{}), err: ErrNoLoader}
		close(f.done)

		return f
	}

	ctx, cancel := context.WithCancel(c.ctx)
	f := &fetch{gen: e.gen, cancel: cancel, done: make(chan struct{})}
	e.fetch = f

	c.fetches++
	c.inflight++

	log.Debug().Str("key", key.String()).Uint64("gen", f.gen).Msg("fetching")

	go c.run(ctx, key, f)

	return f
}

func (c *Cache) run(ctx context.Context, key Key, f *fetch) {
	value, err := c.loader.Load(ctx, key)

	c.mu.Lock()

	notify := func() {}

	e, ok := c.entries.Peek(key)

	switch {
	case !ok || e.fetch != f:
		log.Debug().Str("key", key.String()).Msg("discarding response of canceled fetch")
	case err != nil:
		log.Warn().Err(err).Str("key", key.String()).Msg("error fetching")
		c.finishFetchLocked(e, fmt.Errorf("error fetching %s: %w", key, err))
		c.followUpLocked(key, e)
	case e.gen != f.gen:
		log.Debug().Str("key", key.String()).Msg("discarding response of superseded fetch")
		c.finishFetchLocked(e, nil)
		c.followUpLocked(key, e)
	default:
		e.value = value
		e.present = true
		e.stale = false
		e.version++
		notify = c.notifyLocked(key, e)
		c.finishFetchLocked(e, nil)
		c.followUpLocked(key, e)
	}

	c.inflight--
	c.idle.Broadcast()
	c.mu.Unlock()

	notify()
}

// followUpLocked honors invalidations that arrived during the fetch that just finished: the
// key stays stale and, unless held, loads once more.
func (c *Cache) followUpLocked(key Key, e *entry) {
	if !e.refetch {
		return
	}

	e.refetch = false
	e.stale = true

	if e.holds > 0 {
		e.dirty = true

		return
	}

	log.Debug().Str("key", key.String()).Msg("invalidated during fetch, fetching again")

	c.startFetchLocked(key, e)
}

func (c *Cache) finishFetchLocked(e *entry, err error) {
	f := e.fetch
	if f == nil {
		return
	}

	e.fetch = nil
	f.err = err
	f.cancel()
	close(f.done)
}

// cancelFetchLocked retires the in-flight fetch. An invalidation it was carrying leaves the
// key stale.
func (c *Cache) cancelFetchLocked(e *entry) {
	if e.refetch {
		e.refetch = false
		e.stale = true

		if e.holds > 0 {
			e.dirty = true
		}
	}

	c.finishFetchLocked(e, ErrCanceled)
}

// onEvict runs under c.mu: every eviction path goes through a locked method.
func (c *Cache) onEvict(key Key, e *entry) {
	if e.fetch != nil {
		log.Debug().Str("key", key.String()).Msg("evicted key had a fetch in flight")
	}

	c.cancelFetchLocked(e)
}

func (c *Cache) notifyLocked(key Key, e *entry) func() {
	ws := c.watchers[key]
	if len(ws) == 0 {
		return func() {}
	}

	calls := make([]func(), 0, len(ws))

	for _, w := range ws {
		fn := w.fn
		value := c.copy(e.value)
		calls = append(calls, func() { fn(key, value) })
	}

	return func() {
		for _, call := range calls {
			call()
		}
	}
}
