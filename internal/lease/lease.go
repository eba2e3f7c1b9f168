// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lease coalesces concurrent computations for the same key so that
// at most one runs at a time. Callers for a key that is already in flight
// wait for the running call and receive its result.
package lease

import (
	"context"
	"fmt"
	"sync"
)

// Group holds the in-flight calls for a set of keys. The zero value is ready
// to use.
type Group[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
}

type call[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	refs   int
	val    T
	err    error
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call. The bool result reports whether this caller
// joined an existing call rather than starting one.
//
// fn receives a context detached from any single caller. It is cancelled
// once every caller waiting on the key has given up, so a call nobody waits
// for stops making upstream requests. A caller whose ctx ends returns
// ctx.Err() immediately. The key is released when fn returns, panics, or is
// abandoned, so a later Do starts a fresh call.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, bool, error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
	}
	c, shared := g.calls[key]
	if shared {
		c.refs++
	} else {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		c = &call[T]{done: make(chan struct{}), cancel: cancel, refs: 1}
		g.calls[key] = c
		go g.run(runCtx, key, c, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		g.mu.Lock()
		c.refs--
		g.mu.Unlock()
		return c.val, shared, c.err
	case <-ctx.Done():
		g.leave(key, c)
		var zero T
		return zero, shared, ctx.Err()
	}
}

// InFlight reports whether a call for key is currently running.
func (g *Group[T]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.calls[key]
	return ok
}

// Waiters returns how many callers are waiting on key, or 0 when no call is
// in flight.
func (g *Group[T]) Waiters(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.calls[key]; ok {
		return c.refs
	}
	return 0
}

// leave drops one waiter. The last waiter out cancels the call and frees the
// key.
func (g *Group[T]) leave(key string, c *call[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.refs--
	if c.refs > 0 {
		return
	}
	c.cancel()
	if g.calls[key] == c {
		delete(g.calls, key)
	}
}

func (g *Group[T]) run(ctx context.Context, key string, c *call[T], fn func(context.Context) (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("lease %q: panic: %v", key, r)
		}
		c.cancel()
		g.mu.Lock()
		if g.calls[key] == c {
			delete(g.calls, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn(ctx)
}
