package shops

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tirthgodhni98/giftcard-api/pkg/logger"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "giftcards:shop:"

// CachedResolver puts a Redis read-through cache in front of another
// resolver. Redis failures fall through to the backing resolver and
// not-found answers are never cached.
type CachedResolver struct {
	next          Resolver
	client        redis.Cmdable
	ttl           time.Duration
	defaultDomain string
}

// NewCachedResolver wraps next with a cache
func NewCachedResolver(next Resolver, client redis.Cmdable, ttl time.Duration, defaultDomain string) *CachedResolver {
	return &CachedResolver{
		next:          next,
		client:        client,
		ttl:           ttl,
		defaultDomain: NormalizeDomain(defaultDomain),
	}
}

func cacheKey(domain string) string {
	return cacheKeyPrefix + domain
}

// Resolve implements Resolver
func (r *CachedResolver) Resolve(ctx context.Context, domain string) (*ShopCredential, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		domain = r.defaultDomain
	}
	if domain == "" {
		return r.next.Resolve(ctx, domain)
	}

	log := logger.WithContext(ctx)
	key := cacheKey(domain)

	raw, err := r.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var shop ShopCredential
		if jsonErr := json.Unmarshal([]byte(raw), &shop); jsonErr == nil {
			return &shop, nil
		}
		log.Warn("discarding corrupt shop cache entry", zap.String("shop_domain", domain))
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("shop cache unavailable, resolving directly", zap.String("shop_domain", domain), zap.Error(err))
	}

	shop, err := r.next.Resolve(ctx, domain)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(shop)
	if err == nil {
		if setErr := r.client.Set(ctx, key, string(payload), r.ttl).Err(); setErr != nil {
			log.Warn("failed to cache shop credential", zap.String("shop_domain", domain), zap.Error(setErr))
		}
	}

	return shop, nil
}
