// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recognize downloads menu photos and turns them into text. Assets
// are processed concurrently under an optional worker cap; every asset
// yields exactly one result, in rank order, whether it succeeded or not.
package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/menu-engine/internal/httputil"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// Recognizer turns the bytes of one image into plain text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// defaultMaxImageBytes bounds a single download.
const defaultMaxImageBytes = 20 << 20

var errInvalidImage = errors.New("invalid image")

// Engine runs download and recognition for a batch of assets.
type Engine struct {
	Recognizer Recognizer
	Client     *http.Client
	UserAgent  string

	// Concurrency caps in-flight assets. Zero runs every asset at once.
	Concurrency int

	// Timeout bounds each download and each recognition call separately.
	Timeout time.Duration

	MinImageBytes int64
	MaxImageBytes int64

	Logger *slog.Logger
}

// New builds an Engine from configuration.
func New(r Recognizer, cfg types.RecognitionConfig, client *http.Client, logger *slog.Logger) *Engine {
	return &Engine{
		Recognizer:    r,
		Client:        client,
		UserAgent:     cfg.UserAgent,
		Concurrency:   cfg.Concurrency,
		Timeout:       cfg.Timeout,
		MinImageBytes: cfg.MinImageBytes,
		Logger:        logger,
	}
}

// Recognize processes assets concurrently and returns one result per asset
// sorted by rank. Per-asset failures are recorded in the result. When no
// asset yields text it also returns a *types.StageError wrapping
// types.ErrNoTextRecognized; the results are still returned for diagnostics.
//
// Cancelling ctx abandons in-flight calls and marks assets that had not
// started as cancelled.
func (e *Engine) Recognize(ctx context.Context, assets []types.PhotoAsset) ([]types.RecognitionResult, error) {
	results := make([]types.RecognitionResult, len(assets))

	var g errgroup.Group
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i, a := range assets {
		g.Go(func() error {
			results[i] = e.recognizeOne(ctx, a)
			return nil
		})
	}
	g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AssetRank < results[j].AssetRank
	})

	var reasons []string
	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
			continue
		}
		reasons = append(reasons, fmt.Sprintf("photo %d: %s", r.AssetRank, r.ErrorKind))
	}
	e.logger().Debug("recognition finished", "assets", len(assets), "ok", ok)
	if ok == 0 {
		return results, &types.StageError{Stage: types.StageRecognition, Err: types.ErrNoTextRecognized, Reasons: reasons}
	}
	return results, nil
}

func (e *Engine) recognizeOne(ctx context.Context, a types.PhotoAsset) (res types.RecognitionResult) {
	start := time.Now()
	res = types.RecognitionResult{AssetRank: a.Rank, URL: a.URL}
	defer func() {
		res.LatencyMs = time.Since(start).Milliseconds()
		if !res.OK {
			e.logger().Warn("photo failed", "rank", a.Rank, "kind", res.ErrorKind, "error", res.Error)
		}
	}()

	fail := func(kind types.ErrorKind, err error) types.RecognitionResult {
		if ctx.Err() != nil {
			kind = types.KindCancelled
		}
		res.ErrorKind = kind
		res.Error = err.Error()
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(types.KindCancelled, err)
	}

	data, err := e.download(ctx, a.URL)
	if err != nil {
		kind := httputil.Kind(err, types.KindDownload)
		if errors.Is(err, errInvalidImage) {
			kind = types.KindInvalidImage
		}
		return fail(kind, err)
	}
	if err := validateImage(data, e.MinImageBytes); err != nil {
		return fail(types.KindInvalidImage, err)
	}

	callCtx, cancel := e.callContext(ctx)
	text, err := e.Recognizer.Recognize(callCtx, data)
	cancel()
	if err != nil {
		return fail(httputil.Kind(err, types.KindRecognition), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fail(types.KindEmptyText, errors.New("no text in image"))
	}

	res.Text = text
	res.OK = true
	return res
}

func (e *Engine) download(ctx context.Context, url string) ([]byte, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	resp, err := httputil.DoWithRetry(callCtx, e.Client, req, 1)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "image host"); err != nil {
		return nil, err
	}

	limit := e.MaxImageBytes
	if limit <= 0 {
		limit = defaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: larger than %d bytes", errInvalidImage, limit)
	}
	return data, nil
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.Timeout)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// validateImage rejects payloads that are too small or not a decodable
// image format.
func validateImage(data []byte, minBytes int64) error {
	if int64(len(data)) < minBytes {
		return fmt.Errorf("%w: %d bytes is below the %d byte minimum", errInvalidImage, len(data), minBytes)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", errInvalidImage, err)
	}
	return nil
}
