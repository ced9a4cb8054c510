package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"menu-api/domain"
)

type backend interface {
	FetchBusiness(ctx context.Context, businessID string) (domain.Business, error)
	FetchAvailableProducts(ctx context.Context, businessID string) ([]domain.Product, error)
}

// Cache wraps a catalog backend with Redis-backed read-through caching.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A nil client or zero TTL disables caching.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchBusiness(ctx context.Context, businessID string) (domain.Business, error) {
	var business domain.Business
	if c.load(ctx, businessCacheKey(businessID), &business) {
		return business, nil
	}

	business, err := c.base.FetchBusiness(ctx, businessID)
	if err != nil {
		return domain.Business{}, err
	}

	c.store(ctx, businessCacheKey(businessID), business)
	return business, nil
}

func (c *Cache) FetchAvailableProducts(ctx context.Context, businessID string) ([]domain.Product, error) {
	var products []domain.Product
	if c.load(ctx, productsCacheKey(businessID), &products) {
		return products, nil
	}

	products, err := c.base.FetchAvailableProducts(ctx, businessID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, productsCacheKey(businessID), products)
	return products, nil
}

// Evict drops the cached catalog of a business.
func (c *Cache) Evict(ctx context.Context, businessID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, businessCacheKey(businessID), productsCacheKey(businessID)).Result()
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func businessCacheKey(businessID string) string {
	return "business:" + businessID
}

func productsCacheKey(businessID string) string {
	return "products:" + businessID
}
