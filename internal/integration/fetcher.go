package integration

import (
	"context"
	"fmt"
	"io"

	"github.com/littlelifetrip/ai-recommender/internal/config"
	"github.com/littlelifetrip/ai-recommender/internal/logger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewFetcher builds the context fetcher selected by settings: the HTTP client, wrapped
// with a memory or redis cache unless caching is disabled. The returned Closer
// releases the cache connection.
func NewFetcher(ctx context.Context, s *config.Settings, log *logger.Logger) (Fetcher, io.Closer, error) {
	client := NewClient(s.IntegrationURL, s.IntegrationTimeout)

	switch s.CacheBackend {
	case config.CacheNone:
		return client, nopCloser{}, nil
	case config.CacheRedis:
		cache, err := NewRedisCache(ctx, s.RedisAddr, s.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create context cache: %w", err)
		}
		return NewCachedFetcher(client, cache, log), cache, nil
	default:
		return NewCachedFetcher(client, NewMemoryCache(s.CacheSize, s.CacheTTL), log), nopCloser{}, nil
	}
}
