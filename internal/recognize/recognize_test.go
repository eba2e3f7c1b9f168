// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/menu-engine/internal/httputil"
	"github.com/pdiddy/menu-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// imageServer serves a valid PNG at /img/<name>, with a few special paths
// for failure cases.
func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	valid := pngBytes(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/missing"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/garbage"):
			w.Write([]byte("<html>not an image</html>"))
		default:
			w.Write(valid)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

// fakeRecognizer returns text by call number. All served images are
// identical, so tests key behavior on call order.
type fakeRecognizer struct {
	text  func(call int) (string, error)
	delay func(call int) time.Duration
	calls atomic.Int32
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(ctx context.Context, _ []byte) (string, error) {
	n := int(f.calls.Add(1))
	if f.delay != nil {
		select {
		case <-time.After(f.delay(n)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text(n)
}

func TestRecognizePreservesRankOrder(t *testing.T) {
	ts := imageServer(t)
	// Earlier ranks finish last.
	rec := &fakeRecognizer{
		text:  func(int) (string, error) { return "menu text", nil },
		delay: func(call int) time.Duration { return time.Duration(5-call) * 5 * time.Millisecond },
	}
	e := &Engine{Recognizer: rec, Client: ts.Client()}

	assets := []types.PhotoAsset{
		{URL: ts.URL + "/img/c", Rank: 2},
		{URL: ts.URL + "/img/a", Rank: 0},
		{URL: ts.URL + "/img/d", Rank: 3},
		{URL: ts.URL + "/img/b", Rank: 1},
	}
	results, err := e.Recognize(context.Background(), assets)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, i, r.AssetRank)
		assert.True(t, r.OK)
		assert.Equal(t, "menu text", r.Text)
	}
	assert.True(t, strings.HasSuffix(results[0].URL, "/img/a"))
}

func TestRecognizePartialFailures(t *testing.T) {
	ts := imageServer(t)
	rec := &fakeRecognizer{text: func(int) (string, error) { return "  Dosa 60 \n", nil }}
	e := &Engine{Recognizer: rec, Client: ts.Client()}

	assets := []types.PhotoAsset{
		{URL: ts.URL + "/img/ok", Rank: 0},
		{URL: ts.URL + "/missing", Rank: 1},
		{URL: ts.URL + "/garbage", Rank: 2},
	}
	results, err := e.Recognize(context.Background(), assets)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.Equal(t, "Dosa 60", results[0].Text)
	assert.False(t, results[1].OK)
	assert.Equal(t, types.KindDownload, results[1].ErrorKind)
	assert.False(t, results[2].OK)
	assert.Equal(t, types.KindInvalidImage, results[2].ErrorKind)
	assert.Equal(t, int32(1), rec.calls.Load(), "invalid images never reach the recognizer")
}

func TestRecognizeAllFail(t *testing.T) {
	ts := imageServer(t)
	rec := &fakeRecognizer{text: func(int) (string, error) { return "   ", nil }}
	e := &Engine{Recognizer: rec, Client: ts.Client()}

	results, err := e.Recognize(context.Background(), []types.PhotoAsset{
		{URL: ts.URL + "/img/a", Rank: 0},
		{URL: ts.URL + "/img/b", Rank: 1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNoTextRecognized))

	var se *types.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, types.StageRecognition, se.Stage)
	assert.Len(t, se.Reasons, 2)
	require.Len(t, results, 2)
	assert.Equal(t, types.KindEmptyText, results[0].ErrorKind)
}

func TestRecognizePerCallTimeout(t *testing.T) {
	ts := imageServer(t)
	rec := &fakeRecognizer{
		text: func(int) (string, error) { return "late", nil },
		delay: func(call int) time.Duration {
			if call == 1 {
				return time.Second
			}
			return 0
		},
	}
	e := &Engine{Recognizer: rec, Client: ts.Client(), Timeout: 50 * time.Millisecond, Concurrency: 1}

	results, err := e.Recognize(context.Background(), []types.PhotoAsset{
		{URL: ts.URL + "/img/a", Rank: 0},
		{URL: ts.URL + "/img/b", Rank: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, types.KindTimeout, results[0].ErrorKind)
	assert.True(t, results[1].OK)
}

func TestRecognizeConcurrencyLimit(t *testing.T) {
	ts := imageServer(t)
	var inFlight, peak atomic.Int32
	rec := &fakeRecognizer{text: func(int) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return "x", nil
	}}
	e := &Engine{Recognizer: rec, Client: ts.Client(), Concurrency: 2}

	var assets []types.PhotoAsset
	for i := 0; i < 6; i++ {
		assets = append(assets, types.PhotoAsset{URL: ts.URL + "/img/p", Rank: i})
	}
	results, err := e.Recognize(context.Background(), assets)
	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRecognizeCancelledContext(t *testing.T) {
	ts := imageServer(t)
	rec := &fakeRecognizer{text: func(int) (string, error) { return "x", nil }}
	e := &Engine{Recognizer: rec, Client: ts.Client()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := e.Recognize(ctx, []types.PhotoAsset{{URL: ts.URL + "/img/a", Rank: 0}})
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.KindCancelled, results[0].ErrorKind)
	assert.Equal(t, int32(0), rec.calls.Load())
}

func TestValidateImage(t *testing.T) {
	valid := pngBytes(t)
	assert.NoError(t, validateImage(valid, 0))
	assert.ErrorIs(t, validateImage(valid, int64(len(valid)+1)), errInvalidImage)
	assert.ErrorIs(t, validateImage([]byte("nope"), 0), errInvalidImage)
}

func TestDownloadTooLarge(t *testing.T) {
	ts := imageServer(t)
	e := &Engine{Client: ts.Client(), MaxImageBytes: 10}
	_, err := e.download(context.Background(), ts.URL+"/img/a")
	assert.ErrorIs(t, err, errInvalidImage)
}
