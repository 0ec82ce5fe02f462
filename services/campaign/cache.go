package campaign

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"donationhub/pkg/rediskey"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "donationhub_campaign_cache_hits_total",
		Help: "Ongoing-campaign listing served from redis.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "donationhub_campaign_cache_misses_total",
		Help: "Ongoing-campaign listing rebuilt from the store.",
	})
)

// Invalidator drops the cached ongoing listing after a write that may change
// campaign visibility. Implemented by Cache; consumed by the donation flow.
type Invalidator interface {
	InvalidateOngoing(ctx context.Context)
}

// Cache keeps the ongoing-campaign listing in redis. Concurrent misses for
// the same key collapse into a single store query via singleflight.
type Cache struct {
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Ongoing returns the cached listing, filling the cache through fill on miss.
func (c *Cache) Ongoing(ctx context.Context, fill func(ctx context.Context) ([]*Campaign, error)) ([]*Campaign, error) {
	key := rediskey.BuildOngoingListKey()

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var cached []*Campaign
			if err := json.Unmarshal(raw, &cached); err == nil {
				cacheHits.Inc()
				return cached, nil
			}
			// poisoned entry, fall through and rebuild
			_ = c.rdb.Del(ctx, key).Err()
		} else if err != redis.Nil {
			zap.L().Warn("campaign cache read failed", zap.Error(err))
		}
	}

	cacheMisses.Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		campaigns, err := fill(ctx)
		if err != nil {
			return nil, err
		}

		if c.rdb != nil {
			if raw, err := json.Marshal(campaigns); err == nil {
				if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
					zap.L().Warn("campaign cache write failed", zap.Error(err))
				}
			}
		}

		return campaigns, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]*Campaign), nil
}

func (c *Cache) InvalidateOngoing(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, rediskey.BuildOngoingListKey()).Err(); err != nil && err != redis.Nil {
		zap.L().Warn("campaign cache invalidation failed", zap.Error(err))
	}
}
