// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-engine/internal/cache"
	"github.com/pdiddy/menu-engine/internal/store"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// countingRunner returns a one-item document and counts runs. When gate is
// set each run waits for it to close.
type countingRunner struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
	items int
}

func (c *countingRunner) Run(ctx context.Context, req types.ExtractionRequest) (*types.MenuDocument, error) {
	c.calls.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return menuDoc(req, c.items), nil
}

func menuDoc(req types.ExtractionRequest, items int) *types.MenuDocument {
	doc := &types.MenuDocument{Request: req, Restaurant: types.RestaurantMeta{Name: req.RestaurantName}}
	if items > 0 {
		sub := types.Subcategory{Name: "starters"}
		for range items {
			sub.Items = append(sub.Items, types.LineItem{Name: "Idli", Prices: types.Prices{"full": 40}})
		}
		doc.Menu = types.Menu{{Name: "vegetarian", Subcategories: []types.Subcategory{sub}}}
	}
	doc.Meta.ItemsCount = items
	return doc
}

func newTestResolver(t *testing.T, runner Runner) (*Resolver, *cache.Memory, *store.SQLite) {
	t.Helper()
	fast := cache.NewMemory()
	durable, err := store.OpenSQLite(filepath.Join(t.TempDir(), "menus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { durable.Close() })
	r := NewResolver(runner, fast, durable, types.CacheConfig{FastTTL: time.Hour, DurableTTL: 24 * time.Hour}, nil)
	return r, fast, durable
}

func TestResolveCacheRoundTrip(t *testing.T) {
	runner := &countingRunner{items: 1}
	r, fast, durable := newTestResolver(t, runner)
	ctx := context.Background()

	first, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.SourceFresh, first.Meta.Source)

	_, err = fast.Get(ctx, req.Key())
	require.NoError(t, err)
	entry, err := durable.Get(ctx, req.Key())
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, entry.TTL)

	second, err := r.Resolve(ctx, types.ExtractionRequest{RestaurantName: "  udupi   CAFE ", Location: "bangalore"})
	require.NoError(t, err)
	assert.Equal(t, types.SourceCache, second.Meta.Source)
	assert.Equal(t, first.Menu, second.Menu)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestResolveDurableHitRepopulatesFastTier(t *testing.T) {
	runner := &countingRunner{items: 1}
	r, fast, durable := newTestResolver(t, runner)
	ctx := context.Background()

	require.NoError(t, durable.Put(ctx, types.CacheEntry{
		Key: req.Key(), Payload: menuDoc(req, 3), InsertedAt: time.Now(), TTL: time.Hour,
	}))

	doc, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.SourceDurable, doc.Meta.Source)
	assert.Equal(t, 3, doc.Meta.ItemsCount)
	assert.Zero(t, runner.calls.Load())

	r.Wait()
	cached, err := fast.Get(ctx, req.Key())
	require.NoError(t, err)
	assert.Equal(t, 3, cached.Meta.ItemsCount)
}

func TestResolveIgnoresEmptyDurableEntry(t *testing.T) {
	runner := &countingRunner{items: 2}
	r, _, durable := newTestResolver(t, runner)
	ctx := context.Background()

	require.NoError(t, durable.Put(ctx, types.CacheEntry{
		Key: req.Key(), Payload: menuDoc(req, 0), InsertedAt: time.Now(), TTL: time.Hour,
	}))

	doc, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.SourceFresh, doc.Meta.Source)
	assert.Equal(t, 2, doc.Meta.ItemsCount)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestResolveNeverStoresEmptyDocuments(t *testing.T) {
	runner := &countingRunner{}
	r, fast, durable := newTestResolver(t, runner)
	ctx := context.Background()

	_, err := r.Resolve(ctx, req)
	require.NoError(t, err)

	_, err = fast.Get(ctx, req.Key())
	assert.ErrorIs(t, err, types.ErrCacheMiss)
	_, err = durable.Get(ctx, req.Key())
	assert.ErrorIs(t, err, types.ErrCacheMiss)
}

func TestResolveCoalescesConcurrentMisses(t *testing.T) {
	runner := &countingRunner{items: 1, gate: make(chan struct{})}
	r, _, _ := newTestResolver(t, runner)

	const n = 8
	var wg sync.WaitGroup
	docs := make([]*types.MenuDocument, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs[i], errs[i] = r.Resolve(context.Background(), req)
		}()
	}

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return r.leases.Waiters(string(req.Key())) == n }, time.Second, time.Millisecond)
	close(runner.gate)
	wg.Wait()

	assert.Equal(t, int32(1), runner.calls.Load())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, docs[i].Meta.ItemsCount)
	}
}

func TestResolveFailureIsNotCached(t *testing.T) {
	runner := &countingRunner{err: &types.StageError{Stage: types.StageRecognition, Err: types.ErrNoTextRecognized}}
	r, _, _ := newTestResolver(t, runner)
	ctx := context.Background()

	_, err := r.Resolve(ctx, req)
	require.ErrorIs(t, err, types.ErrNoTextRecognized)
	assert.False(t, r.leases.InFlight(string(req.Key())))

	runner.err = nil
	runner.items = 1
	doc, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.SourceFresh, doc.Meta.Source)
	assert.Equal(t, int32(2), runner.calls.Load())
}

// brokenFast fails every operation.
type brokenFast struct{}

var errTierDown = errors.New("tier down")

func (brokenFast) Get(context.Context, types.CacheKey) (*types.MenuDocument, error) {
	return nil, errTierDown
}
func (brokenFast) Set(context.Context, types.CacheKey, *types.MenuDocument, time.Duration) error {
	return errTierDown
}
func (brokenFast) Delete(context.Context, types.CacheKey) error { return errTierDown }
func (brokenFast) Close() error                                { return nil }

// brokenDurable fails every operation.
type brokenDurable struct{}

func (brokenDurable) Get(context.Context, types.CacheKey) (types.CacheEntry, error) {
	return types.CacheEntry{}, errTierDown
}
func (brokenDurable) Put(context.Context, types.CacheEntry) error { return errTierDown }
func (brokenDurable) Delete(context.Context, types.CacheKey) (bool, error) {
	return false, errTierDown
}
func (brokenDurable) List(context.Context, int, int) ([]store.Record, int, error) {
	return nil, 0, errTierDown
}
func (brokenDurable) Purge(context.Context) (int, error) { return 0, errTierDown }
func (brokenDurable) Close() error                       { return nil }

func TestResolveBypassesUnavailableTiers(t *testing.T) {
	runner := &countingRunner{items: 1}
	r := NewResolver(runner, brokenFast{}, brokenDurable{}, types.CacheConfig{}, nil)

	for range 2 {
		doc, err := r.Resolve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, types.SourceFresh, doc.Meta.Source)
	}
	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestResolveWithoutTiers(t *testing.T) {
	runner := &countingRunner{items: 1}
	r := NewResolver(runner, nil, nil, types.CacheConfig{}, nil)

	doc, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Meta.ItemsCount)

	recs, total, err := r.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, total)
}

func TestLookupAndEvict(t *testing.T) {
	runner := &countingRunner{items: 1}
	r, fast, _ := newTestResolver(t, runner)
	ctx := context.Background()

	_, err := r.Lookup(ctx, req)
	require.ErrorIs(t, err, types.ErrNotFound)

	_, err = r.Resolve(ctx, req)
	require.NoError(t, err)

	doc, err := r.Lookup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.SourceCache, doc.Meta.Source)

	require.NoError(t, fast.Delete(ctx, req.Key()))
	doc, err = r.Lookup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, types.SourceDurable, doc.Meta.Source)

	recs, total, err := r.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, req.Key(), recs[0].Key)

	_, err = r.Resolve(ctx, req)
	require.NoError(t, err)
	r.Wait()

	existed, err := r.Evict(ctx, req)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = fast.Get(ctx, req.Key())
	assert.ErrorIs(t, err, types.ErrCacheMiss)
	_, err = r.Lookup(ctx, req)
	assert.ErrorIs(t, err, types.ErrNotFound)

	existed, err = r.Evict(ctx, req)
	require.NoError(t, err)
	assert.False(t, existed)
}
