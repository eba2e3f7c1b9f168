// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package photos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/menu-engine/internal/httputil"
	"github.com/pdiddy/menu-engine/pkg/types"
)

// serpAPIBase is the SerpAPI search endpoint. Declared as a var so tests
// can substitute an httptest server.
var serpAPIBase = "https://serpapi.com/search.json"

// menuCategoryID selects the "Menu" tab of a Google Maps photo gallery.
const menuCategoryID = "CgIYIQ"

// SerpAPI finds a place through SerpAPI's Google Maps engine and lists the
// photos in its menu category.
type SerpAPI struct {
	Client    *http.Client
	APIKey    string
	BaseURL   string
	UserAgent string

	// Limiter paces calls to SerpAPI. Nil means unpaced.
	Limiter *rate.Limiter
}

// NewSerpAPI builds a SerpAPI source from configuration.
func NewSerpAPI(cfg types.PhotosConfig, client *http.Client) *SerpAPI {
	s := &SerpAPI{
		Client:    client,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
	}
	if cfg.RatePerSecond > 0 {
		s.Limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return s
}

// Name returns the source identifier.
func (s *SerpAPI) Name() string { return "serpapi" }

type serpPlace struct {
	Title   string  `json:"title"`
	Address string  `json:"address"`
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
	Phone   string  `json:"phone"`
	DataID  string  `json:"data_id"`
}

type serpMapsResponse struct {
	Error        string      `json:"error"`
	PlaceResults *serpPlace  `json:"place_results"`
	LocalResults []serpPlace `json:"local_results"`
}

type serpPhotosResponse struct {
	Photos []struct {
		Image     string `json:"image"`
		Thumbnail string `json:"thumbnail"`
	} `json:"photos"`
}

// Fetch searches Google Maps for "name location", takes the exact place
// match or else the first local result, and returns its menu photos.
// A place without a data id yields an empty asset list.
func (s *SerpAPI) Fetch(ctx context.Context, name, location string) (types.PhotoSet, error) {
	query := strings.TrimSpace(name + " " + location)
	if query == "" {
		return types.PhotoSet{}, fmt.Errorf("%w: empty photo search query", types.ErrInvalidRequest)
	}

	var maps serpMapsResponse
	err := s.get(ctx, url.Values{
		"engine": {"google_maps"},
		"q":      {query},
		"type":   {"search"},
	}, &maps)
	if err != nil {
		return types.PhotoSet{}, err
	}

	place := maps.PlaceResults
	if place == nil && len(maps.LocalResults) > 0 {
		place = &maps.LocalResults[0]
	}
	if place == nil {
		if maps.Error != "" {
			return types.PhotoSet{}, fmt.Errorf("serpapi: %q: %s: %w", query, maps.Error, types.ErrNotFound)
		}
		return types.PhotoSet{}, fmt.Errorf("serpapi: %q: %w", query, types.ErrNotFound)
	}

	set := types.PhotoSet{Restaurant: types.RestaurantMeta{
		Name:    place.Title,
		Address: place.Address,
		Rating:  place.Rating,
		Reviews: place.Reviews,
		Phone:   place.Phone,
		DataID:  place.DataID,
	}}
	if set.Restaurant.Name == "" {
		set.Restaurant.Name = name
	}
	if place.DataID == "" {
		return set, nil
	}

	var photos serpPhotosResponse
	err = s.get(ctx, url.Values{
		"engine":      {"google_maps_photos"},
		"data_id":     {place.DataID},
		"category_id": {menuCategoryID},
	}, &photos)
	if err != nil {
		return set, err
	}
	for _, p := range photos.Photos {
		if p.Image == "" {
			continue
		}
		set.Assets = append(set.Assets, types.PhotoAsset{URL: p.Image, Rank: len(set.Assets)})
	}
	return set, nil
}

func (s *SerpAPI) get(ctx context.Context, params url.Values, out any) error {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("serpapi: waiting for rate limiter: %w", err)
		}
	}

	base := s.BaseURL
	if base == "" {
		base = serpAPIBase
	}
	params.Set("api_key", s.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return wrapTransport(ctx, "serpapi", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "serpapi"); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("serpapi: parsing response: %v: %w", err, types.ErrUpstreamUnavailable)
	}
	return nil
}
