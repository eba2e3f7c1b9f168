// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package photos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
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

func serpServer(t *testing.T, maps, photos string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("engine") {
		case "google_maps":
			w.Write([]byte(maps))
		case "google_maps_photos":
			assert.Equal(t, menuCategoryID, r.URL.Query().Get("category_id"))
			assert.Equal(t, "0xabc", r.URL.Query().Get("data_id"))
			w.Write([]byte(photos))
		default:
			t.Errorf("unexpected engine %q", r.URL.Query().Get("engine"))
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSerpAPIFetchPlaceResults(t *testing.T) {
	ts := serpServer(t,
		`{"place_results": {"title": "Sagar Ratna", "address": "Defence Colony", "rating": 4.2, "reviews": 1500, "data_id": "0xabc"}}`,
		`{"photos": [{"image": "https://img/1.jpg"}, {"image": ""}, {"image": "https://img/2.jpg"}]}`)

	src := &SerpAPI{Client: ts.Client(), APIKey: "test-key", BaseURL: ts.URL}
	set, err := src.Fetch(context.Background(), "Sagar Ratna", "Delhi")
	require.NoError(t, err)

	assert.Equal(t, "Sagar Ratna", set.Restaurant.Name)
	assert.Equal(t, 4.2, set.Restaurant.Rating)
	assert.Equal(t, 1500, set.Restaurant.Reviews)
	assert.Equal(t, []types.PhotoAsset{
		{URL: "https://img/1.jpg", Rank: 0},
		{URL: "https://img/2.jpg", Rank: 1},
	}, set.Assets)
}

func TestSerpAPIFetchFallsBackToLocalResults(t *testing.T) {
	ts := serpServer(t,
		`{"local_results": [{"title": "First", "data_id": "0xabc"}, {"title": "Second", "data_id": "0xdef"}]}`,
		`{"photos": [{"image": "https://img/1.jpg"}]}`)

	src := &SerpAPI{Client: ts.Client(), APIKey: "test-key", BaseURL: ts.URL}
	set, err := src.Fetch(context.Background(), "Cafe", "")
	require.NoError(t, err)
	assert.Equal(t, "First", set.Restaurant.Name)
	assert.Len(t, set.Assets, 1)
}

func TestSerpAPIFetchNotFound(t *testing.T) {
	ts := serpServer(t, `{"error": "Google hasn't returned any results for this query."}`, `{}`)

	src := &SerpAPI{Client: ts.Client(), APIKey: "test-key", BaseURL: ts.URL}
	_, err := src.Fetch(context.Background(), "Nowhere", "Atlantis")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestSerpAPIFetchNoDataID(t *testing.T) {
	ts := serpServer(t, `{"place_results": {"title": "Stall"}}`, `{}`)

	src := &SerpAPI{Client: ts.Client(), APIKey: "test-key", BaseURL: ts.URL}
	set, err := src.Fetch(context.Background(), "Stall", "")
	require.NoError(t, err)
	assert.Empty(t, set.Assets)
}

func TestSerpAPIFetchUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited},
		{"server error", http.StatusInternalServerError, types.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			src := &SerpAPI{Client: ts.Client(), APIKey: "test-key", BaseURL: ts.URL}
			_, err := src.Fetch(context.Background(), "Any", "")
			assert.ErrorIs(t, err, tt.want)
			assert.GreaterOrEqual(t, calls.Load(), int32(1))
		})
	}
}

func TestSerpAPIUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	src := &SerpAPI{Client: http.DefaultClient, APIKey: "test-key", BaseURL: base}
	_, err := src.Fetch(context.Background(), "Any", "")
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}

func TestNewSerpAPIRateLimiter(t *testing.T) {
	src := NewSerpAPI(types.PhotosConfig{APIKey: "k", RatePerSecond: 2}, nil)
	require.NotNil(t, src.Limiter)
	assert.Nil(t, NewSerpAPI(types.PhotosConfig{}, nil).Limiter)
}

func TestStaticAndLimit(t *testing.T) {
	src := &Static{URLs: []string{"a", " ", "b", "c"}}
	set, err := src.Fetch(context.Background(), "Cafe", "")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", set.Restaurant.Name)
	require.Len(t, set.Assets, 3)
	assert.Equal(t, 2, set.Assets[2].Rank)

	assert.Len(t, Limit(set.Assets, 2), 2)
	assert.Len(t, Limit(set.Assets, 0), 3)
}
