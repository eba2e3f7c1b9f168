// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package structure turns chunks of recognized menu text into partial
// structured menus by prompting a language model once per chunk. Chunks run
// concurrently; a failed chunk is recorded in its fragment and never stops
// the others.
package structure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/menu-engine/internal/httputil"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// Backend abstracts the language model so tests can supply a mock. Generate
// returns the model's raw text for prompt.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// backoffBase controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Engine fans chunks out to a Backend.
type Engine struct {
	Backend  Backend
	Taxonomy types.Taxonomy

	// Concurrency caps in-flight chunks. Zero runs every chunk at once.
	Concurrency int

	// Timeout bounds each model call.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a failed call.
	MaxRetries int

	Logger *slog.Logger
}

// New builds an Engine from configuration.
func New(b Backend, cfg types.ExtractionConfig, logger *slog.Logger) *Engine {
	tax := cfg.Taxonomy
	if len(tax) == 0 {
		tax = types.DefaultTaxonomy()
	}
	return &Engine{
		Backend:     b,
		Taxonomy:    tax,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
		Logger:      logger,
	}
}

// Extract structures every chunk and returns one fragment per chunk sorted
// by chunk index. When no fragment succeeds it also returns a
// *types.StageError wrapping types.ErrNoStructureExtracted.
func (e *Engine) Extract(ctx context.Context, chunks []types.TextChunk, restaurant string) ([]types.ExtractionFragment, error) {
	fragments := make([]types.ExtractionFragment, len(chunks))

	var g errgroup.Group
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i, c := range chunks {
		g.Go(func() error {
			fragments[i] = e.extractOne(ctx, c, restaurant)
			return nil
		})
	}
	g.Wait()

	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].ChunkIndex < fragments[j].ChunkIndex
	})

	var reasons []string
	for _, f := range fragments {
		if !f.OK {
			reasons = append(reasons, fmt.Sprintf("chunk %d: %s", f.ChunkIndex, f.ErrorKind))
		}
	}
	if len(reasons) == len(fragments) {
		return fragments, &types.StageError{Stage: types.StageExtraction, Err: types.ErrNoStructureExtracted, Reasons: reasons}
	}
	return fragments, nil
}

func (e *Engine) extractOne(ctx context.Context, c types.TextChunk, restaurant string) (f types.ExtractionFragment) {
	start := time.Now()
	f = types.ExtractionFragment{ChunkIndex: c.Index}
	defer func() {
		f.LatencyMs = time.Since(start).Milliseconds()
		if !f.OK {
			e.logger().Warn("chunk failed", "chunk", c.Index, "kind", f.ErrorKind, "error", f.Error)
		}
	}()

	if err := ctx.Err(); err != nil {
		f.ErrorKind, f.Error = types.KindCancelled, err.Error()
		return f
	}

	prompt, err := renderPrompt(promptData{Restaurant: restaurant, Taxonomy: e.Taxonomy, Text: c.Text})
	if err != nil {
		f.ErrorKind, f.Error = types.KindMalformed, err.Error()
		return f
	}

	menu, err := e.callWithRetry(ctx, prompt)
	if err != nil {
		kind := httputil.Kind(err, types.KindUpstream)
		if errors.Is(err, errMalformed) {
			kind = types.KindMalformed
		}
		if ctx.Err() != nil {
			kind = types.KindCancelled
		}
		f.ErrorKind, f.Error = kind, err.Error()
		return f
	}

	f.Menu = menu
	f.OK = true
	e.logger().Debug("chunk structured", "chunk", c.Index, "items", menu.ItemsCount())
	return f
}

// callWithRetry runs one attempt per try with exponential backoff between
// tries. Malformed output is retried like any other failure.
func (e *Engine) callWithRetry(ctx context.Context, prompt string) (types.Menu, error) {
	retries := max(e.MaxRetries, 0)
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		menu, err := e.attempt(ctx, prompt)
		if err == nil {
			return menu, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d retries: %w", retries, lastErr)
}

func (e *Engine) attempt(ctx context.Context, prompt string) (types.Menu, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.Timeout)
	}
	defer cancel()

	raw, err := e.Backend.Generate(callCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Backend.Name(), err)
	}
	return ParseMenu(raw)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
