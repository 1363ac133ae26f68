package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedResolver memoises subordinate sets in Redis for a short TTL and
// collapses concurrent lookups for the same supervisor into one upstream call.
type CachedResolver struct {
	inner  Resolver
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedResolver constructs the caching decorator.
func NewCachedResolver(inner Resolver, client *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{inner: inner, client: client, ttl: ttl}
}

// SubordinatesOf returns the cached set when fresh, otherwise fetches and stores it.
func (c *CachedResolver) SubordinatesOf(ctx context.Context, supervisorID int64) ([]int64, error) {
	key := c.cacheKey(supervisorID)

	if c.client != nil {
		cached, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var ids []int64
			if err := json.Unmarshal(cached, &ids); err == nil {
				return ids, nil
			}
		}
	}

	result := c.group.DoChan(key, func() (interface{}, error) {
		ids, err := c.inner.SubordinatesOf(ctx, supervisorID)
		if err != nil {
			return nil, err
		}
		if c.client != nil {
			if data, err := json.Marshal(ids); err == nil {
				_ = c.client.Set(ctx, key, data, c.ttl).Err()
			}
		}
		return ids, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		ids, _ := res.Val.([]int64)
		return ids, nil
	}
}

// Invalidate drops the cached set for a supervisor.
func (c *CachedResolver) Invalidate(ctx context.Context, supervisorID int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.cacheKey(supervisorID)).Err()
}

func (c *CachedResolver) cacheKey(supervisorID int64) string {
	return fmt.Sprintf("directory:subordinates:%d", supervisorID)
}

var _ Resolver = (*CachedResolver)(nil)
