// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the domain types shared across the menu extraction
// stages: requests and cache keys, photo assets, per-stage results, the
// ordered menu model, and stage configuration.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// ExtractionRequest identifies the restaurant whose menu is extracted.
// Use NewExtractionRequest to obtain a normalized value.
type ExtractionRequest struct {
	RestaurantName string `json:"restaurantName" yaml:"restaurant_name"`
	Location       string `json:"location" yaml:"location"`
}

// CacheKey addresses one menu in both cache tiers.
type CacheKey string

// NewExtractionRequest trims and collapses whitespace in both fields. The
// display casing is kept; case folding only happens when deriving the key.
func NewExtractionRequest(name, location string) (ExtractionRequest, error) {
	req := ExtractionRequest{
		RestaurantName: collapseSpace(name),
		Location:       collapseSpace(location),
	}
	if req.RestaurantName == "" {
		return ExtractionRequest{}, fmt.Errorf("%w: restaurant name is required", ErrInvalidRequest)
	}
	return req, nil
}

// Query returns the free-text search string sent to the photo source.
func (r ExtractionRequest) Query() string {
	return strings.TrimSpace(r.RestaurantName + " " + r.Location)
}

// Key derives the cache key: the first 32 hex characters of
// SHA-256(fold(name) NUL fold(location)). Two requests that differ only in
// case or whitespace share a key.
func (r ExtractionRequest) Key() CacheKey {
	fold := cases.Fold()
	h := sha256.New()
	h.Write([]byte(fold.String(collapseSpace(r.RestaurantName))))
	h.Write([]byte{0})
	h.Write([]byte(fold.String(collapseSpace(r.Location))))
	return CacheKey(hex.EncodeToString(h.Sum(nil))[:32])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
