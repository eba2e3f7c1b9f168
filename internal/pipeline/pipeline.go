// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the fresh menu extraction (photos, recognition,
// chunking, structuring, merge) and guards it behind the two cache tiers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pdiddy/menu-engine/internal/chunk"
	"github.com/pdiddy/menu-engine/internal/merge"
	"github.com/pdiddy/menu-engine/internal/photos"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// Recognizer turns photos into text, one result per asset in rank order.
type Recognizer interface {
	Recognize(ctx context.Context, assets []types.PhotoAsset) ([]types.RecognitionResult, error)
}

// Extractor structures text chunks, one fragment per chunk in index order.
type Extractor interface {
	Extract(ctx context.Context, chunks []types.TextChunk, restaurant string) ([]types.ExtractionFragment, error)
}

// Pipeline wires the stages together. Stages 2 and 4 fan out internally;
// everything else runs sequentially between stage boundaries.
type Pipeline struct {
	Photos     photos.Source
	Recognizer Recognizer
	Extractor  Extractor

	MaxAssets int
	Chunking  types.ChunkingConfig
	Merge     merge.Options

	Logger *slog.Logger
}

// New builds a Pipeline from configuration.
func New(src photos.Source, rec Recognizer, ext Extractor, cfg types.Config, logger *slog.Logger) *Pipeline {
	tax := cfg.Extraction.Taxonomy
	if len(tax) == 0 {
		tax = types.DefaultTaxonomy()
	}
	return &Pipeline{
		Photos:     src,
		Recognizer: rec,
		Extractor:  ext,
		MaxAssets:  cfg.Photos.MaxAssets,
		Chunking:   cfg.Chunking,
		Merge:      merge.Options{Taxonomy: tax, Strict: cfg.Extraction.StrictTaxonomy},
		Logger:     logger,
	}
}

// run carries the state of one pipeline execution.
type run struct {
	id       string
	start    time.Time
	log      *slog.Logger
	timings  types.Timings
	warnings []string

	set     types.PhotoSet
	results []types.RecognitionResult
	chunks  []types.TextChunk
	meta    types.Meta
}

func (r *run) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	r.log.Warn(msg)
}

func (r *run) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.timings[stage] = time.Since(start).Milliseconds()
	return err
}

// Run executes stages 1 through 5 and returns the merged document. Partial
// failures are reported in Warnings and Meta; a stage that yields nothing
// usable fails the run with a *types.StageError.
func (p *Pipeline) Run(ctx context.Context, req types.ExtractionRequest) (*types.MenuDocument, error) {
	r, err := p.front(ctx, req)
	if err != nil {
		return nil, err
	}

	var fragments []types.ExtractionFragment
	err = r.timed(types.StageExtraction, func() error {
		var err error
		fragments, err = p.Extractor.Extract(ctx, r.chunks, r.set.Restaurant.Name)
		return err
	})
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, err
	}

	var merged merge.Result
	r.timed(types.StageMerge, func() error {
		merged = merge.Merge(fragments, p.Merge)
		return nil
	})
	if n := len(merged.FailedChunks); n > 0 {
		r.warn("%d of %d text chunks could not be structured", n, len(fragments))
	}
	if merged.OutOfTaxonomy > 0 {
		r.warn("%d items dropped outside the configured taxonomy", merged.OutOfTaxonomy)
	}
	if merged.ItemsCount == 0 {
		return nil, &types.StageError{
			Stage:   types.StageExtraction,
			Err:     types.ErrNoStructureExtracted,
			Reasons: []string{"no menu items in any chunk"},
		}
	}

	r.meta.ItemsCount = merged.ItemsCount
	r.meta.ChunksFailed = len(merged.FailedChunks)
	r.meta.DuplicatesDropped = merged.DuplicatesDropped
	r.finish()

	r.log.Info("menu extracted",
		"items", merged.ItemsCount,
		"chunks", len(fragments),
		"total_ms", r.timings[types.StageTotal])

	return &types.MenuDocument{
		Request:    req,
		Restaurant: r.set.Restaurant,
		Menu:       merged.Menu,
		Meta:       r.meta,
		Warnings:   r.warnings,
	}, nil
}

// RecognizeOnly executes stages 1 through 3 and returns the recognized text
// with its chunking.
func (p *Pipeline) RecognizeOnly(ctx context.Context, req types.ExtractionRequest) (*types.SimpleResult, error) {
	r, err := p.front(ctx, req)
	if err != nil {
		return nil, err
	}
	r.finish()

	var text strings.Builder
	for _, c := range r.chunks {
		text.WriteString(c.Text)
	}
	return &types.SimpleResult{
		Request:    req,
		Restaurant: r.set.Restaurant,
		Text:       text.String(),
		Chunks:     r.chunks,
		Results:    r.results,
		Meta:       r.meta,
		Warnings:   r.warnings,
	}, nil
}

// front runs photo lookup, recognition, and chunking.
func (p *Pipeline) front(ctx context.Context, req types.ExtractionRequest) (*run, error) {
	r := &run{
		id:      uuid.NewString(),
		start:   time.Now(),
		timings: types.Timings{},
	}
	r.log = p.logger().With("run_id", r.id, "key", string(req.Key()))
	r.meta = types.Meta{Timings: r.timings, RunID: r.id}

	err := r.timed(types.StagePhotos, func() error {
		var err error
		r.set, err = p.Photos.Fetch(ctx, req.RestaurantName, req.Location)
		return err
	})
	if err != nil {
		return nil, &types.StageError{Stage: types.StagePhotos, Err: err}
	}
	if r.set.Restaurant.Name == "" {
		r.set.Restaurant.Name = req.RestaurantName
	}
	if len(r.set.Assets) == 0 {
		return nil, &types.StageError{Stage: types.StagePhotos, Err: types.ErrNoMenuPhotos}
	}
	assets := photos.Limit(r.set.Assets, p.MaxAssets)
	if len(assets) < len(r.set.Assets) {
		r.warn("using %d of %d menu photos", len(assets), len(r.set.Assets))
	}
	r.log.Debug("photos found", "source", p.Photos.Name(), "assets", len(assets))

	err = r.timed(types.StageRecognition, func() error {
		var err error
		r.results, err = p.Recognizer.Recognize(ctx, assets)
		return err
	})
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, err
	}

	r.meta.ImagesProcessed = len(r.results)
	for _, res := range r.results {
		if !res.OK {
			r.meta.ImagesFailed++
			continue
		}
		r.meta.Sources = append(r.meta.Sources, res.URL)
		r.meta.OCRChars += utf8.RuneCountInString(res.Text)
	}
	if r.meta.ImagesFailed > 0 {
		r.warn("%d of %d photos could not be read", r.meta.ImagesFailed, len(r.results))
	}

	r.timed(types.StageChunking, func() error {
		r.chunks = chunk.Chunk(r.results, p.Chunking)
		return nil
	})
	r.meta.Chunks = len(r.chunks)
	return r, nil
}

func (r *run) finish() {
	r.timings[types.StageTotal] = time.Since(r.start).Milliseconds()
	r.meta.ExtractedAt = time.Now().UTC()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}
