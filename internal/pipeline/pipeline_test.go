// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-engine/internal/photos"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// fakeSource returns a fixed set or error.
type fakeSource struct {
	set   types.PhotoSet
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, name, location string) (types.PhotoSet, error) {
	f.calls.Add(1)
	return f.set, f.err
}

// textRecognizer returns the text mapped to each URL. A URL mapped to ""
// fails.
type textRecognizer struct {
	texts map[string]string
	seen  atomic.Int32
}

func (r *textRecognizer) Recognize(ctx context.Context, assets []types.PhotoAsset) ([]types.RecognitionResult, error) {
	r.seen.Add(int32(len(assets)))
	out := make([]types.RecognitionResult, len(assets))
	ok := 0
	for i, a := range assets {
		text := r.texts[a.URL]
		out[i] = types.RecognitionResult{AssetRank: a.Rank, URL: a.URL, Text: text, OK: text != ""}
		if text == "" {
			out[i].ErrorKind = types.KindDownload
		} else {
			ok++
		}
	}
	if ok == 0 {
		return out, &types.StageError{Stage: types.StageRecognition, Err: types.ErrNoTextRecognized}
	}
	return out, nil
}

// lineExtractor turns each "Name Price" line into a vegetarian starter.
type lineExtractor struct {
	calls  atomic.Int32
	chunks [][]types.TextChunk
	fail   map[int]bool
}

func (e *lineExtractor) Extract(ctx context.Context, chunks []types.TextChunk, restaurant string) ([]types.ExtractionFragment, error) {
	e.calls.Add(1)
	e.chunks = append(e.chunks, chunks)
	out := make([]types.ExtractionFragment, len(chunks))
	failed := 0
	for i, c := range chunks {
		if e.fail[c.Index] {
			out[i] = types.ExtractionFragment{ChunkIndex: c.Index, ErrorKind: types.KindMalformed}
			failed++
			continue
		}
		out[i] = types.ExtractionFragment{ChunkIndex: c.Index, OK: true, Menu: linesToMenu(c.Text)}
	}
	if failed == len(chunks) {
		return out, &types.StageError{Stage: types.StageExtraction, Err: types.ErrNoStructureExtracted}
	}
	return out, nil
}

func linesToMenu(text string) types.Menu {
	var items []types.LineItem
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == '|' || r == '\n' }) {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}
		var price float64
		fmt.Sscanf(fields[len(fields)-1], "%g", &price)
		items = append(items, types.LineItem{
			Name:   strings.Join(fields[:len(fields)-1], " "),
			Prices: types.Prices{"full": price},
		})
	}
	if len(items) == 0 {
		return nil
	}
	return types.Menu{{Name: "vegetarian", Subcategories: []types.Subcategory{{Name: "starters", Items: items}}}}
}

func assets(urls ...string) []types.PhotoAsset {
	out := make([]types.PhotoAsset, len(urls))
	for i, u := range urls {
		out[i] = types.PhotoAsset{URL: u, Rank: i}
	}
	return out
}

func newTestPipeline(src photos.Source, rec Recognizer, ext Extractor) *Pipeline {
	var cfg types.Config
	cfg.Chunking.Separator = "|"
	return New(src, rec, ext, cfg, nil)
}

var req = types.ExtractionRequest{RestaurantName: "Udupi Cafe", Location: "Bangalore"}

func TestRunScenario(t *testing.T) {
	src := &fakeSource{set: types.PhotoSet{
		Restaurant: types.RestaurantMeta{Name: "Udupi Cafe"},
		Assets:     assets("a", "b"),
	}}
	rec := &textRecognizer{texts: map[string]string{"a": "Idli 40", "b": "Dosa 60"}}
	ext := &lineExtractor{}

	doc, err := newTestPipeline(src, rec, ext).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, ext.chunks, 1)
	require.Len(t, ext.chunks[0], 1)
	assert.Equal(t, "Idli 40|Dosa 60", ext.chunks[0][0].Text)

	assert.Equal(t, 2, doc.Meta.ItemsCount)
	assert.Equal(t, 2, doc.Menu.ItemsCount())
	assert.Equal(t, []string{"a", "b"}, doc.Meta.Sources)
	assert.Equal(t, 2, doc.Meta.ImagesProcessed)
	assert.Equal(t, 14, doc.Meta.OCRChars)
	assert.Equal(t, 1, doc.Meta.Chunks)
	assert.NotEmpty(t, doc.Meta.RunID)
	assert.False(t, doc.Meta.ExtractedAt.IsZero())
	assert.Empty(t, doc.Warnings)
	assert.Equal(t, req, doc.Request)
	for _, stage := range []string{types.StagePhotos, types.StageRecognition, types.StageChunking, types.StageExtraction, types.StageMerge, types.StageTotal} {
		assert.Contains(t, doc.Meta.Timings, stage)
	}

	items := doc.Menu[0].Subcategories[0].Items
	assert.Equal(t, "Idli", items[0].Name)
	assert.Equal(t, 40.0, items[0].Prices["full"])
	assert.Equal(t, "Dosa", items[1].Name)
}

func TestRunTruncatesToMaxAssets(t *testing.T) {
	urls := make([]string, 12)
	texts := map[string]string{}
	for i := range urls {
		urls[i] = fmt.Sprintf("p%d", i)
		texts[urls[i]] = fmt.Sprintf("Item%d %d", i, 10+i)
	}
	src := &fakeSource{set: types.PhotoSet{Assets: assets(urls...)}}
	rec := &textRecognizer{texts: texts}

	doc, err := newTestPipeline(src, rec, &lineExtractor{}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(types.DefaultMaxAssets), rec.seen.Load())
	assert.Equal(t, types.DefaultMaxAssets, doc.Meta.ItemsCount)
	assert.Contains(t, doc.Warnings, "using 10 of 12 menu photos")
	assert.Equal(t, "Udupi Cafe", doc.Restaurant.Name)
}

func TestRunPartialRecognition(t *testing.T) {
	src := &fakeSource{set: types.PhotoSet{Assets: assets("a", "broken")}}
	rec := &textRecognizer{texts: map[string]string{"a": "Vada 30"}}

	doc, err := newTestPipeline(src, rec, &lineExtractor{}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Meta.ItemsCount)
	assert.Equal(t, 1, doc.Meta.ImagesFailed)
	assert.Equal(t, []string{"a"}, doc.Meta.Sources)
	assert.Contains(t, doc.Warnings, "1 of 2 photos could not be read")
}

func TestRunPartialExtraction(t *testing.T) {
	long := strings.Repeat("Thali 120\n", 20)
	src := &fakeSource{set: types.PhotoSet{Assets: assets("a")}}
	rec := &textRecognizer{texts: map[string]string{"a": long + "Lassi 50"}}
	ext := &lineExtractor{fail: map[int]bool{0: true}}

	p := newTestPipeline(src, rec, ext)
	p.Chunking.MaxChunkChars = len(long)
	doc, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Meta.ChunksFailed)
	assert.Equal(t, 2, doc.Meta.Chunks)
	assert.Equal(t, "Lassi", doc.Menu[0].Subcategories[0].Items[0].Name)
	assert.Contains(t, doc.Warnings, "1 of 2 text chunks could not be structured")
}

func TestRunFatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   *fakeSource
		rec   *textRecognizer
		ext   *lineExtractor
		want  error
		stage string
	}{
		{
			name:  "place not found",
			src:   &fakeSource{err: fmt.Errorf("%w: no place", types.ErrNotFound)},
			rec:   &textRecognizer{},
			ext:   &lineExtractor{},
			want:  types.ErrNotFound,
			stage: types.StagePhotos,
		},
		{
			name:  "upstream down",
			src:   &fakeSource{err: types.ErrRateLimited},
			rec:   &textRecognizer{},
			ext:   &lineExtractor{},
			want:  types.ErrUpstreamUnavailable,
			stage: types.StagePhotos,
		},
		{
			name:  "no photos",
			src:   &fakeSource{},
			rec:   &textRecognizer{},
			ext:   &lineExtractor{},
			want:  types.ErrNoMenuPhotos,
			stage: types.StagePhotos,
		},
		{
			name:  "nothing recognized",
			src:   &fakeSource{set: types.PhotoSet{Assets: assets("a", "b")}},
			rec:   &textRecognizer{},
			ext:   &lineExtractor{},
			want:  types.ErrNoTextRecognized,
			stage: types.StageRecognition,
		},
		{
			name:  "nothing structured",
			src:   &fakeSource{set: types.PhotoSet{Assets: assets("a")}},
			rec:   &textRecognizer{texts: map[string]string{"a": "Idli 40"}},
			ext:   &lineExtractor{fail: map[int]bool{0: true}},
			want:  types.ErrNoStructureExtracted,
			stage: types.StageExtraction,
		},
		{
			name:  "no items in any chunk",
			src:   &fakeSource{set: types.PhotoSet{Assets: assets("a")}},
			rec:   &textRecognizer{texts: map[string]string{"a": "welcome"}},
			ext:   &lineExtractor{},
			want:  types.ErrNoStructureExtracted,
			stage: types.StageExtraction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := newTestPipeline(tt.src, tt.rec, tt.ext).Run(context.Background(), req)
			assert.Nil(t, doc)
			require.ErrorIs(t, err, tt.want)
			var se *types.StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.stage, se.Stage)
		})
	}
}

func TestRunRecognitionFailureSkipsExtraction(t *testing.T) {
	src := &fakeSource{set: types.PhotoSet{Assets: assets("a")}}
	ext := &lineExtractor{}
	_, err := newTestPipeline(src, &textRecognizer{}, ext).Run(context.Background(), req)
	require.ErrorIs(t, err, types.ErrNoTextRecognized)
	assert.Zero(t, ext.calls.Load())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{set: types.PhotoSet{Assets: assets("a")}}
	rec := &textRecognizer{texts: map[string]string{"a": "Idli 40"}}
	_, err := newTestPipeline(src, rec, &lineExtractor{}).Run(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecognizeOnly(t *testing.T) {
	src := &fakeSource{set: types.PhotoSet{Assets: assets("a", "b", "c")}}
	rec := &textRecognizer{texts: map[string]string{"a": "Idli 40", "c": "Dosa 60"}}
	ext := &lineExtractor{}

	res, err := newTestPipeline(src, rec, ext).RecognizeOnly(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Idli 40|Dosa 60", res.Text)
	assert.Len(t, res.Results, 3)
	assert.Len(t, res.Chunks, 1)
	assert.Equal(t, 1, res.Meta.ImagesFailed)
	assert.Contains(t, res.Meta.Timings, types.StageChunking)
	assert.NotContains(t, res.Meta.Timings, types.StageExtraction)
	assert.Zero(t, ext.calls.Load())
}
