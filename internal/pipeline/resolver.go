// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pdiddy/menu-engine/internal/cache"
	"github.com/pdiddy/menu-engine/internal/lease"
	"github.com/pdiddy/menu-engine/internal/store"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// repopulateTimeout bounds the background fast-tier write after a durable hit.
var repopulateTimeout = 5 * time.Second

// Runner produces a fresh menu document for a request.
type Runner interface {
	Run(ctx context.Context, req types.ExtractionRequest) (*types.MenuDocument, error)
}

// Resolver answers menu requests from the fast tier, then the durable tier,
// and only then from a fresh run. Concurrent misses for the same key share
// one run. Either tier may be nil; tier errors are logged and the tier is
// bypassed.
//
// Documents returned by Resolve may be shared between callers and must not
// be modified.
type Resolver struct {
	Runner  Runner
	Fast    cache.Fast
	Durable store.Durable

	FastTTL    time.Duration
	DurableTTL time.Duration

	Logger *slog.Logger

	leases lease.Group[*types.MenuDocument]
	bg     sync.WaitGroup
}

// NewResolver builds a Resolver using the TTLs from cfg.
func NewResolver(runner Runner, fast cache.Fast, durable store.Durable, cfg types.CacheConfig, logger *slog.Logger) *Resolver {
	return &Resolver{
		Runner:     runner,
		Fast:       fast,
		Durable:    durable,
		FastTTL:    cfg.FastTTL,
		DurableTTL: cfg.DurableTTL,
		Logger:     logger,
	}
}

// Resolve returns the menu document for req.
func (r *Resolver) Resolve(ctx context.Context, req types.ExtractionRequest) (*types.MenuDocument, error) {
	key := req.Key()
	log := r.logger().With("key", string(key))

	if doc := r.fastGet(ctx, key, log); doc != nil {
		log.Debug("fast tier hit")
		doc.Meta.Source = types.SourceCache
		return doc, nil
	}
	if doc := r.durableGet(ctx, key, log); doc != nil {
		log.Debug("durable tier hit")
		r.repopulate(ctx, key, doc, log)
		doc.Meta.Source = types.SourceDurable
		return doc, nil
	}

	if n := r.leases.Waiters(string(key)); n > 0 {
		log.Debug("extraction already in flight", "waiters", n)
	}
	doc, _, err := r.leases.Do(ctx, string(key), func(ctx context.Context) (*types.MenuDocument, error) {
		// Another run may have finished between the miss and the lease.
		if doc := r.durableGet(ctx, key, log); doc != nil {
			r.repopulate(ctx, key, doc, log)
			doc.Meta.Source = types.SourceDurable
			return doc, nil
		}
		doc, err := r.Runner.Run(ctx, req)
		if err != nil {
			return nil, err
		}
		doc.Meta.Source = types.SourceFresh
		r.save(ctx, key, doc, log)
		return doc, nil
	})
	return doc, err
}

// Lookup returns a stored document without running the pipeline. It fails
// with types.ErrNotFound when neither tier holds the key.
func (r *Resolver) Lookup(ctx context.Context, req types.ExtractionRequest) (*types.MenuDocument, error) {
	key := req.Key()
	log := r.logger().With("key", string(key))
	if doc := r.fastGet(ctx, key, log); doc != nil {
		doc.Meta.Source = types.SourceCache
		return doc, nil
	}
	if doc := r.durableGet(ctx, key, log); doc != nil {
		doc.Meta.Source = types.SourceDurable
		return doc, nil
	}
	return nil, fmt.Errorf("%w: no stored menu for %q", types.ErrNotFound, req.Query())
}

// Evict removes req from both tiers and reports whether the durable tier
// held it.
func (r *Resolver) Evict(ctx context.Context, req types.ExtractionRequest) (bool, error) {
	key := req.Key()
	if r.Fast != nil {
		if err := r.Fast.Delete(ctx, key); err != nil {
			r.logger().Warn("fast tier delete failed", "key", string(key), "error", err)
		}
	}
	if r.Durable == nil {
		return false, nil
	}
	return r.Durable.Delete(ctx, key)
}

// List pages through the durable tier.
func (r *Resolver) List(ctx context.Context, limit, skip int) ([]store.Record, int, error) {
	if r.Durable == nil {
		return nil, 0, nil
	}
	return r.Durable.List(ctx, limit, skip)
}

// Purge removes expired durable entries.
func (r *Resolver) Purge(ctx context.Context) (int, error) {
	if r.Durable == nil {
		return 0, nil
	}
	return r.Durable.Purge(ctx)
}

// Wait blocks until background fast-tier writes finish.
func (r *Resolver) Wait() {
	r.bg.Wait()
}

func (r *Resolver) fastGet(ctx context.Context, key types.CacheKey, log *slog.Logger) *types.MenuDocument {
	if r.Fast == nil {
		return nil
	}
	doc, err := r.Fast.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, types.ErrCacheMiss) {
			log.Warn("fast tier unavailable", "error", err)
		}
		return nil
	}
	return doc
}

// durableGet only honors entries that hold at least one item.
func (r *Resolver) durableGet(ctx context.Context, key types.CacheKey, log *slog.Logger) *types.MenuDocument {
	if r.Durable == nil {
		return nil
	}
	entry, err := r.Durable.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, types.ErrCacheMiss) {
			log.Warn("durable tier unavailable", "error", err)
		}
		return nil
	}
	if entry.Payload.Empty() {
		return nil
	}
	return entry.Payload
}

func (r *Resolver) repopulate(ctx context.Context, key types.CacheKey, doc *types.MenuDocument, log *slog.Logger) {
	if r.Fast == nil {
		return
	}
	cp := *doc
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), repopulateTimeout)
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		defer cancel()
		if err := r.Fast.Set(ctx, key, &cp, r.fastTTL()); err != nil {
			log.Warn("fast tier repopulate failed", "error", err)
		}
	}()
}

// save writes doc to both tiers. Empty documents are never stored.
func (r *Resolver) save(ctx context.Context, key types.CacheKey, doc *types.MenuDocument, log *slog.Logger) {
	if doc.Empty() {
		return
	}
	if r.Durable != nil {
		entry := types.CacheEntry{
			Key:        key,
			Payload:    doc,
			Tier:       types.TierDurable,
			InsertedAt: time.Now(),
			TTL:        r.durableTTL(),
		}
		if err := r.Durable.Put(ctx, entry); err != nil {
			log.Warn("durable tier write failed", "error", err)
		}
	}
	if r.Fast != nil {
		if err := r.Fast.Set(ctx, key, doc, r.fastTTL()); err != nil {
			log.Warn("fast tier write failed", "error", err)
		}
	}
}

func (r *Resolver) fastTTL() time.Duration {
	if r.FastTTL <= 0 {
		return types.DefaultFastTTL
	}
	return r.FastTTL
}

func (r *Resolver) durableTTL() time.Duration {
	if r.DurableTTL <= 0 {
		return types.DefaultDurableTTL
	}
	return r.DurableTTL
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
