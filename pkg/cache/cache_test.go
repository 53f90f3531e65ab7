package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/cache"
	"github.com/Ayman-AbuHijleh/Kanban-Board/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoader returns the configured value for a key, counting calls. When gate is set,
// every load blocks until the gate is closed.
type fakeLoader struct {
	mu     sync.Mutex
	values map[cache.Key]any
	err    error
	gate   chan struct{}
	calls  atomic.Int32
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{values: map[cache.Key]any{}}
}

func (f *fakeLoader) set(key cache.Key, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = v
}

func (f *fakeLoader) block() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gate = make(chan struct{})

	return f.gate
}

func (f *fakeLoader) Load(ctx context.Context, key cache.Key) (any, error) {
	f.calls.Add(1)

	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	return model.CloneValue(f.values[key]), nil
}

// snapshotLoader reads the server value when the load starts, then blocks on the gate, the
// way a request answered before a later change does.
type snapshotLoader struct {
	mu    sync.Mutex
	value any
	gate  chan struct{}
	calls atomic.Int32
}

func (s *snapshotLoader) set(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = v
}

func (s *snapshotLoader) block() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gate = make(chan struct{})

	return s.gate
}

func (s *snapshotLoader) Load(ctx context.Context, _ cache.Key) (any, error) {
	s.calls.Add(1)

	s.mu.Lock()
	v := model.CloneValue(s.value)
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return v, nil
}

func lists(titles ...string) []model.List {
	out := make([]model.List, len(titles))
	for i, t := range titles {
		out[i] = model.List{ID: t, BoardID: "b1", Title: t, Position: i}
	}

	return out
}

func newCache(t *testing.T, loader cache.Loader, opts ...cache.Option) *cache.Cache {
	t.Helper()

	opts = append([]cache.Option{cache.WithCopier(model.CloneValue)}, opts...)

	c, err := cache.New(context.Background(), loader, opts...)
	require.NoError(t, err)

	t.Cleanup(c.Close)

	return c
}

func TestGetMiss(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	c := newCache(t, newFakeLoader())

	v, ok := c.Get(cache.Lists("b1"))
	assert.Nil(v)
	assert.False(ok)
	assert.Equal(uint64(0), c.Fetches())
}

func TestFetchSharesOneRequest(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("todo", "doing"))
	gate := loader.block()

	c := newCache(t, loader)

	var wg sync.WaitGroup

	results := make([]any, 5)

	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			v, err := c.Fetch(context.Background(), key)
			assert.NoError(err)

			results[i] = v
		}(i)
	}

	assert.Eventually(func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(int32(1), loader.calls.Load())
	assert.Equal(uint64(1), c.Fetches())

	for _, r := range results {
		assert.Equal(lists("todo", "doing"), r)
	}
}

func TestInvalidateTwiceRefetchesOnce(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("todo"))

	c := newCache(t, loader)

	_, err := c.Fetch(context.Background(), key)
	assert.NoError(err)

	loader.set(key, lists("todo", "done"))

	c.Invalidate(key)
	c.Invalidate(key)

	v, err := c.Fetch(context.Background(), key)
	assert.NoError(err)
	assert.Equal(lists("todo", "done"), v)

	c.Wait()

	assert.Equal(uint64(2), c.Fetches())
	assert.Equal(int32(2), loader.calls.Load())
	assert.False(c.IsStale(key))
}

func TestInvalidateDuringFetchRefetches(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := &snapshotLoader{}
	key := cache.Lists("b1")
	loader.set(lists("a"))

	c := newCache(t, loader)

	_, err := c.Fetch(context.Background(), key)
	require.NoError(t, err)

	var notified atomic.Int32

	unwatch := c.Watch(key, func(cache.Key, any) { notified.Add(1) })
	defer unwatch()

	gate := loader.block()
	c.Invalidate(key)
	assert.Eventually(func() bool { return loader.calls.Load() == 2 }, time.Second, time.Millisecond)

	// the running request already read ["a"]
	loader.set(lists("a", "b"))
	c.Invalidate(key)

	close(gate)
	c.Wait()

	v, ok := c.Get(key)
	assert.True(ok)
	assert.Equal(lists("a", "b"), v)
	assert.False(c.IsStale(key))
	assert.Equal(uint64(3), c.Fetches())
	assert.Eventually(func() bool { return notified.Load() == 2 }, time.Second, time.Millisecond)
}

func TestInvalidationsDuringFetchShareOneFollowUp(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := &snapshotLoader{}
	key := cache.Cards("l1")
	loader.set(lists("a"))
	gate := loader.block()

	c := newCache(t, loader)

	done := make(chan any, 1)

	go func() {
		v, err := c.Fetch(context.Background(), key)
		assert.NoError(err)
		done <- v
	}()

	assert.Eventually(func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	loader.set(lists("a", "b"))

	for range 3 {
		c.Invalidate(key)
	}

	close(gate)

	// the waiter sees the follow-up's answer, not the one read before the change
	assert.Equal(lists("a", "b"), <-done)

	c.Wait()

	assert.Equal(uint64(2), c.Fetches())
	assert.False(c.IsStale(key))
}

func TestInvalidateDuringHeldFetchDefersFollowUp(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := &snapshotLoader{}
	key := cache.Lists("b1")
	loader.set(lists("a"))

	c := newCache(t, loader)

	_, err := c.Fetch(context.Background(), key)
	require.NoError(t, err)

	unwatch := c.Watch(key, func(cache.Key, any) {})
	defer unwatch()

	gate := loader.block()
	c.Invalidate(key)
	assert.Eventually(func() bool { return loader.calls.Load() == 2 }, time.Second, time.Millisecond)

	c.Hold(key)
	loader.set(lists("a", "b"))
	c.Invalidate(key)

	close(gate)
	c.Wait()

	assert.Equal(uint64(2), c.Fetches())
	assert.True(c.IsStale(key))

	c.Release(key)
	c.Wait()

	assert.Equal(uint64(3), c.Fetches())

	v, _ := c.Get(key)
	assert.Equal(lists("a", "b"), v)
	assert.False(c.IsStale(key))
}

func TestInvalidateUnwatchedIsLazy(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("todo"))

	c := newCache(t, loader)

	_, err := c.Fetch(context.Background(), key)
	assert.NoError(err)

	c.Invalidate(key)
	c.Invalidate(key)
	assert.True(c.IsStale(key))
	assert.Equal(uint64(1), c.Fetches())

	// the stale value is still served while the refetch runs
	v, ok := c.Get(key)
	assert.True(ok)
	assert.Equal(lists("todo"), v)

	c.Wait()
	assert.Equal(uint64(2), c.Fetches())
	assert.False(c.IsStale(key))
}

func TestInvalidateUnknownKeyIsNoop(t *testing.T) {
	t.Parallel()

	c := newCache(t, newFakeLoader())

	c.Invalidate(cache.Cards("nope"))
	c.Wait()

	assert.Equal(t, uint64(0), c.Fetches())
}

func TestCancelDiscardsLateResponse(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("old"))

	c := newCache(t, loader)

	_, err := c.Fetch(context.Background(), key)
	assert.NoError(err)

	unwatch := c.Watch(key, func(cache.Key, any) {})
	defer unwatch()

	gate := loader.block()
	c.Invalidate(key)

	c.Cancel(key)
	c.Set(key, lists("optimistic"))

	close(gate)
	c.Wait()

	v, ok := c.Get(key)
	assert.True(ok)
	assert.Equal(lists("optimistic"), v)
}

func TestSetSupersedesInFlightFetch(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("server"))
	gate := loader.block()

	c := newCache(t, loader)

	type result struct {
		v   any
		err error
	}

	done := make(chan result, 1)

	go func() {
		v, err := c.Fetch(context.Background(), key)
		done <- result{v, err}
	}()

	assert.Eventually(func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Set(key, lists("local"))

	// the waiter gets the write that superseded its request
	r := <-done
	assert.NoError(r.err)
	assert.Equal(lists("local"), r.v)

	close(gate)
	c.Wait()

	v, _ := c.Get(key)
	assert.Equal(lists("local"), v)

	// a later invalidation is not swallowed by the canceled fetch
	unwatch := c.Watch(key, func(cache.Key, any) {})
	defer unwatch()

	c.Invalidate(key)
	c.Wait()

	v, _ = c.Get(key)
	assert.Equal(lists("server"), v)
}

func TestFetchReloadsEvictedKey(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("server"))
	gate := loader.block()

	c := newCache(t, loader)

	done := make(chan error, 1)

	var got any

	go func() {
		v, err := c.Fetch(context.Background(), key)
		got = v
		done <- err
	}()

	assert.Eventually(func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Evict(key)
	assert.Eventually(func() bool { return loader.calls.Load() == 2 }, time.Second, time.Millisecond)

	close(gate)

	assert.NoError(<-done)
	assert.Equal(lists("server"), got)
	assert.Equal(uint64(2), c.Fetches())
}

func TestFetchAfterCloseIsCanceled(t *testing.T) {
	t.Parallel()

	loader := newFakeLoader()
	key := cache.Lists("b1")
	gate := loader.block()

	c := newCache(t, loader)

	done := make(chan error, 1)

	go func() {
		_, err := c.Fetch(context.Background(), key)
		done <- err
	}()

	assert.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	c.Close()
	close(gate)

	assert.ErrorIs(t, <-done, cache.ErrCanceled)
}

func TestHoldDefersRefetch(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("a"))

	c := newCache(t, loader)

	_, err := c.Fetch(context.Background(), key)
	assert.NoError(err)

	unwatch := c.Watch(key, func(cache.Key, any) {})
	defer unwatch()

	c.Hold(key)
	c.Set(key, lists("speculative"))
	c.Invalidate(key)
	c.Invalidate(key)
	c.Wait()

	assert.Equal(uint64(1), c.Fetches())

	v, _ := c.Get(key)
	assert.Equal(lists("speculative"), v)

	loader.set(key, lists("a", "b"))
	c.Release(key)
	c.Wait()

	assert.Equal(uint64(2), c.Fetches())

	v, _ = c.Get(key)
	assert.Equal(lists("a", "b"), v)
}

func TestApplyAndRestore(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	c := newCache(t, newFakeLoader())

	a := cache.Lists("a")
	b := cache.Lists("b")
	c.Set(a, lists("x", "y"))

	before := c.Apply([]cache.Key{a, b}, func(cur []cache.Snapshot) []any {
		assert.True(cur[0].Present)
		assert.False(cur[1].Present)

		moved, _ := cur[0].Value.([]model.List)
		moved[0].Title = "mutated in place"

		return []any{moved[1:], moved[:1]}
	})

	assert.Equal(lists("x", "y"), before[0].Value)
	assert.False(before[1].Present)

	v, _ := c.Get(a)
	assert.Len(v, 1)

	for i := len(before) - 1; i >= 0; i-- {
		c.Restore(before[i])
	}

	v, ok := c.Get(a)
	assert.True(ok)
	assert.Equal(lists("x", "y"), v)

	_, ok = c.Get(b)
	assert.False(ok)
}

func TestUpdateSkipsWhenFnDeclines(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	c := newCache(t, newFakeLoader())
	key := cache.Lists("b1")
	c.Set(key, lists("x"))
	version := c.Version(key)

	snap := c.Update(key, func(cache.Snapshot) (any, bool) { return nil, false })

	assert.Equal(lists("x"), snap.Value)
	assert.Equal(version, c.Version(key))
}

func TestValuesAreCopied(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	c := newCache(t, newFakeLoader())
	key := cache.Lists("b1")

	in := lists("x")
	c.Set(key, in)
	in[0].Title = "changed after set"

	v, _ := c.Get(key)
	got, _ := v.([]model.List)
	got[0].Title = "changed after get"

	again, _ := c.Get(key)
	assert.Equal(lists("x"), again)
}

func TestLoaderErrorKeepsStaleValue(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	loader := newFakeLoader()
	key := cache.Lists("b1")
	loader.set(key, lists("x"))

	c := newCache(t, loader)

	_, err := c.Fetch(context.Background(), key)
	assert.NoError(err)

	loader.mu.Lock()
	loader.err = errors.New("boom")
	loader.mu.Unlock()

	c.Invalidate(key)

	_, err = c.Fetch(context.Background(), key)
	assert.ErrorContains(err, "boom")

	v, ok := c.Get(key)
	assert.True(ok)
	assert.Equal(lists("x"), v)
	assert.True(c.IsStale(key))
}

func TestEvictAndSizeBound(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	c := newCache(t, newFakeLoader(), cache.WithSize(2))

	c.Set(cache.Lists("1"), lists("a"))
	c.Set(cache.Lists("2"), lists("b"))
	c.Set(cache.Lists("3"), lists("c"))

	_, ok := c.Get(cache.Lists("1"))
	assert.False(ok)
	assert.Len(c.Keys(), 2)

	c.EvictWhere(func(k cache.Key) bool { return k.ParentID == "2" })

	_, ok = c.Get(cache.Lists("2"))
	assert.False(ok)
}

func TestWatchAndUnwatch(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	c := newCache(t, newFakeLoader())
	key := cache.Lists("b1")

	var calls atomic.Int32

	unwatch := c.Watch(key, func(cache.Key, any) { calls.Add(1) })

	c.Set(key, lists("a"))
	unwatch()
	unwatch()
	c.Set(key, lists("b"))

	assert.Equal(int32(1), calls.Load())
}

func TestNoLoader(t *testing.T) {
	t.Parallel()

	c, err := cache.New(context.Background(), nil)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), cache.Boards())
	assert.ErrorIs(t, err, cache.ErrNoLoader)
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	assert.Equal("boards", cache.Boards().String())
	assert.Equal("cards:l1", cache.Cards("l1").String())
}
