// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/menu-engine/internal/cache"
	"github.com/pdiddy/menu-engine/internal/photos"
	"github.com/pdiddy/menu-engine/internal/pipeline"
	"github.com/pdiddy/menu-engine/internal/recognize"
	"github.com/pdiddy/menu-engine/internal/recognize/tesseract"
	"github.com/pdiddy/menu-engine/internal/store"
	"github.com/pdiddy/menu-engine/internal/structure"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// newHTTPClient has no overall timeout; each stage applies its own per-call
// deadline.
func newHTTPClient() *http.Client {
	return &http.Client{}
}

func buildPhotoSource(cfg types.PhotosConfig, images []string, client *http.Client) (photos.Source, error) {
	if len(images) > 0 {
		return &photos.Static{URLs: images}, nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("photos.api_key is not set (or add .secrets/serpapi-api-key)")
	}
	return photos.NewSerpAPI(cfg, client), nil
}

func buildRecognizer(cfg types.RecognitionConfig, client *http.Client) (*recognize.Engine, error) {
	var r recognize.Recognizer
	switch cfg.Backend {
	case types.RecognitionTesseract:
		r = tesseract.New(cfg.Languages)
	case types.RecognitionVision, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("recognition.api_key is not set (or add .secrets/google-vision-api-key)")
		}
		r = recognize.NewVision(cfg, client)
	default:
		return nil, fmt.Errorf("unknown recognition backend %q", cfg.Backend)
	}
	return recognize.New(r, cfg, client, logger), nil
}

func buildExtractor(cfg types.ExtractionConfig, client *http.Client) (*structure.Engine, error) {
	var b structure.Backend
	switch cfg.Backend {
	case types.ExtractionGemini, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("extraction.api_key is not set (or add .secrets/gemini-api-key)")
		}
		b = structure.NewGemini(cfg, client)
	case types.ExtractionOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("extraction.api_key is not set (or add .secrets/openai-api-key)")
		}
		b = structure.NewOpenAI(cfg, client)
	case types.ExtractionOllama:
		o, err := structure.NewOllama(cfg, client)
		if err != nil {
			return nil, err
		}
		b = o
	default:
		return nil, fmt.Errorf("unknown extraction backend %q", cfg.Backend)
	}
	return structure.New(b, cfg, logger), nil
}

// buildPipeline wires every stage. images, when given, replace the photo
// search.
func buildPipeline(cfg types.Config, images []string) (*pipeline.Pipeline, error) {
	client := newHTTPClient()
	src, err := buildPhotoSource(cfg.Photos, images, client)
	if err != nil {
		return nil, err
	}
	rec, err := buildRecognizer(cfg.Recognition, client)
	if err != nil {
		return nil, err
	}
	ext, err := buildExtractor(cfg.Extraction, client)
	if err != nil {
		return nil, err
	}
	return pipeline.New(src, rec, ext, cfg, logger), nil
}

// tiers holds the opened cache tiers so they can be closed together.
type tiers struct {
	fast    cache.Fast
	durable store.Durable
}

// openTiers opens both cache tiers. A tier that cannot be opened is logged
// and skipped.
func openTiers(ctx context.Context, cfg types.CacheConfig) *tiers {
	t := &tiers{}
	fast, err := cache.New(cfg)
	if err != nil {
		logger.Warn("fast tier unavailable, continuing without it", "error", err)
	} else {
		t.fast = fast
	}
	durable, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Warn("durable tier unavailable, continuing without it", "error", err)
	} else {
		t.durable = durable
	}
	return t
}

// openDurable opens only the durable tier; menu management commands need it.
func openDurable(ctx context.Context, cfg types.CacheConfig) (store.Durable, error) {
	d, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening durable tier: %w", err)
	}
	return d, nil
}

func (t *tiers) Close() {
	if t.fast != nil {
		t.fast.Close()
	}
	if t.durable != nil {
		t.durable.Close()
	}
}

func newResolver(p pipeline.Runner, t *tiers, cfg types.CacheConfig) *pipeline.Resolver {
	var fast cache.Fast
	var durable store.Durable
	if t != nil {
		fast, durable = t.fast, t.durable
	}
	return pipeline.NewResolver(p, fast, durable, cfg, logger)
}
