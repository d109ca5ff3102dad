// Package services provides business logic
package services

import (
	"context"
	"fmt"
	"time"

	"go-neows/internal/clients"
	"go-neows/internal/domain"
	"go-neows/internal/redact"
	"go-neows/internal/repo"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Cache lifetimes. Feeds near the query boundary gain objects over time;
// an individual object's attributes do not change intraday.
const (
	FeedTTL     = time.Hour
	AsteroidTTL = 24 * time.Hour
)

// NeoSource fetches raw NeoWs documents
type NeoSource interface {
	FetchFeed(ctx context.Context, startDate, endDate string) ([]byte, error)
	FetchNeo(ctx context.Context, id string) ([]byte, error)
}

// NasaGateway serves NeoWs data from the response cache, fetching on miss.
// Everything it returns has been scrubbed of api keys.
type NasaGateway struct {
	cache  *repo.ResponseCache
	source NeoSource
	group  singleflight.Group
	log    zerolog.Logger
}

// NewNasaGateway creates a gateway over source
func NewNasaGateway(cache *repo.ResponseCache, source NeoSource, log zerolog.Logger) *NasaGateway {
	return &NasaGateway{cache: cache, source: source, log: log}
}

// GetFeed returns the date-keyed feed for [startDate, endDate]
func (g *NasaGateway) GetFeed(ctx context.Context, startDate, endDate string) (*domain.Feed, error) {
	key := repo.GenerateKey(repo.KeyFeed, startDate, endDate)
	return load[domain.Feed](ctx, g, key, clients.EndpointFeed, FeedTTL, func(ctx context.Context) ([]byte, error) {
		return g.source.FetchFeed(ctx, startDate, endDate)
	})
}

// GetByID returns a single object
func (g *NasaGateway) GetByID(ctx context.Context, id string) (*domain.NearEarthObject, error) {
	key := repo.GenerateKey(repo.KeyAsteroid, id)
	return load[domain.NearEarthObject](ctx, g, key, clients.EndpointNeo, AsteroidTTL, func(ctx context.Context) ([]byte, error) {
		return g.source.FetchNeo(ctx, id)
	})
}

// ClearCache drops every cached upstream response
func (g *NasaGateway) ClearCache() {
	g.cache.FlushAll()
	g.log.Info().Msg("response cache cleared")
}

// load serves key from cache or fetches it. The raw upstream body is cached
// only once it decodes, so failures never reach the cache. Concurrent misses
// on one key share a single upstream call.
func load[T any](ctx context.Context, g *NasaGateway, key, endpoint string, ttl time.Duration, fetch func(context.Context) ([]byte, error)) (*T, error) {
	if v, ok := g.cache.Get(key); ok {
		if raw, ok := v.([]byte); ok {
			var out T
			if err := redact.Decode(raw, &out); err == nil {
				g.log.Debug().Str("key", key).Msg("cache hit")
				return &out, nil
			}
		}
		g.cache.Delete(key)
	}

	v, err, shared := g.group.Do(key, func() (any, error) {
		// waiters should not fail because the first caller went away
		raw, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		var out T
		if err := redact.Decode(raw, &out); err != nil {
			return nil, &domain.UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
		}
		g.cache.Set(key, raw, ttl)
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	g.log.Debug().Str("key", key).Bool("shared", shared).Msg("cache miss, fetched upstream")

	// callers sharing a flight each get their own top-level copy
	if shared {
		cp := *v.(*T)
		return &cp, nil
	}
	return v.(*T), nil
}
