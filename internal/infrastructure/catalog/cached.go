package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cartwise/backend/internal/domain"
)

const cacheKeyPrefix = "offers:"

// CachedSearcher wraps an OfferSearcher with a read-through cache. Only
// successful, non-empty results are cached. Cache failures are logged and the
// search falls through to the underlying searcher.
type CachedSearcher struct {
	next  domain.OfferSearcher
	cache domain.CacheRepository
	ttl   time.Duration
	log   zerolog.Logger
}

var _ domain.OfferSearcher = (*CachedSearcher)(nil)

// NewCachedSearcher creates a caching searcher
func NewCachedSearcher(next domain.OfferSearcher, cache domain.CacheRepository, ttl time.Duration, log zerolog.Logger) *CachedSearcher {
	return &CachedSearcher{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "offer_cache").Logger(),
	}
}

// CacheKey returns the cache key for a product name
func CacheKey(productName string) string {
	name := strings.ReplaceAll(productName, "İ", "i")
	return cacheKeyPrefix + strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// SearchOffers returns cached offers when present, otherwise searches and caches
func (s *CachedSearcher) SearchOffers(ctx context.Context, productName string) ([]domain.CatalogOffer, error) {
	key := CacheKey(productName)

	if offers, ok := s.lookup(ctx, key); ok {
		return offers, nil
	}

	offers, err := s.next.SearchOffers(ctx, productName)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 || s.ttl <= 0 {
		return offers, nil
	}

	payload, err := msgpack.Marshal(offers)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to encode offers for cache")
		return offers, nil
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache offers")
	}
	return offers, nil
}

func (s *CachedSearcher) lookup(ctx context.Context, key string) ([]domain.CatalogOffer, bool) {
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, false
	}

	var offers []domain.CatalogOffer
	if err := msgpack.Unmarshal(payload, &offers); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}

	s.log.Debug().Str("key", key).Int("offers", len(offers)).Msg("Cache hit")
	return offers, true
}
