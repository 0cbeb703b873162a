package integration

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/littlelifetrip/ai-recommender/internal/logger"
	"github.com/littlelifetrip/ai-recommender/internal/types"
)

// CachedFetcher serves repeated lookups from a Cache. Only successful results are
// stored, and cache failures fall through to the wrapped Fetcher.
type CachedFetcher struct {
	next  Fetcher
	cache Cache
	log   *logger.Logger
}

// NewCachedFetcher wraps next with cache.
func NewCachedFetcher(next Fetcher, cache Cache, log *logger.Logger) *CachedFetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedFetcher{next: next, cache: cache, log: log.With("component", "context_cache")}
}

func (f *CachedFetcher) GetWeather(ctx context.Context, city string, startDate, endDate *string) (*types.Weather, error) {
	key := "weather:" + normalizeCity(city) + "|" + deref(startDate) + "|" + deref(endDate)
	return cached(ctx, f, key, func() (*types.Weather, error) {
		return f.next.GetWeather(ctx, city, startDate, endDate)
	})
}

func (f *CachedFetcher) SearchPOIs(ctx context.Context, city string, interests []string) ([]types.POI, error) {
	sorted := make([]string, len(interests))
	for i, interest := range interests {
		sorted[i] = strings.ToLower(strings.TrimSpace(interest))
	}
	sort.Strings(sorted)

	key := "pois:" + normalizeCity(city) + "|" + strings.Join(sorted, ",")
	return cached(ctx, f, key, func() ([]types.POI, error) {
		return f.next.SearchPOIs(ctx, city, interests)
	})
}

func (f *CachedFetcher) GetCityInfo(ctx context.Context, city string) (json.RawMessage, error) {
	return cached(ctx, f, "city:"+normalizeCity(city), func() (json.RawMessage, error) {
		return f.next.GetCityInfo(ctx, city)
	})
}

func cached[T any](ctx context.Context, f *CachedFetcher, key string, load func() (T, error)) (T, error) {
	if raw, ok, err := f.cache.Get(ctx, key); err != nil {
		f.log.Warn("context cache read failed", "key", key, "error", err.Error())
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			f.log.Debug("context cache hit", "key", key)
			return v, nil
		}
		f.log.Warn("context cache entry undecodable", "key", key)
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := f.cache.Set(ctx, key, raw); err != nil {
		f.log.Warn("context cache write failed", "key", key, "error", err.Error())
	}
	return v, nil
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
