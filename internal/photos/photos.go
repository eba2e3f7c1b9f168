// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package photos finds menu photographs for a restaurant.
package photos

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// Source looks up a restaurant and returns its menu photos ordered by rank.
// Implementations fail with types.ErrNotFound when no place matches and
// with types.ErrUpstreamUnavailable (or ErrRateLimited) when the service
// cannot answer.
type Source interface {
	Name() string
	Fetch(ctx context.Context, name, location string) (types.PhotoSet, error)
}

// Static serves a fixed list of image URLs. It backs the CLI's --image flag
// and tests.
type Static struct {
	Restaurant types.RestaurantMeta
	URLs       []string
}

// Name returns the source identifier.
func (s *Static) Name() string { return "static" }

// Fetch returns the configured URLs ranked in list order.
func (s *Static) Fetch(ctx context.Context, name, location string) (types.PhotoSet, error) {
	if err := ctx.Err(); err != nil {
		return types.PhotoSet{}, err
	}
	meta := s.Restaurant
	if meta.Name == "" {
		meta.Name = name
	}
	set := types.PhotoSet{Restaurant: meta}
	for _, u := range s.URLs {
		if u = strings.TrimSpace(u); u != "" {
			set.Assets = append(set.Assets, types.PhotoAsset{URL: u, Rank: len(set.Assets)})
		}
	}
	return set, nil
}

// Limit returns at most max assets in rank order. A non-positive max keeps
// the default cap.
func Limit(assets []types.PhotoAsset, max int) []types.PhotoAsset {
	if max <= 0 {
		max = types.DefaultMaxAssets
	}
	if len(assets) <= max {
		return assets
	}
	return assets[:max]
}

func wrapTransport(ctx context.Context, service string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", service, ctxErr)
	}
	return fmt.Errorf("%s: %v: %w", service, err, types.ErrUpstreamUnavailable)
}
