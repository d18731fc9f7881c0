// Package cache provides the redis-backed movement stats cache.
// Dashboards poll stats aggressively; the aggregation over the
// movement log is the most expensive read in the system.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"restock/internal/core/id"
	"restock/internal/domain/ledger"
)

const defaultStatsTTL = 5 * time.Minute

// StatsSource computes stats from the movement log.
type StatsSource interface {
	Stats(ctx context.Context, businessID id.ID, branchID *id.ID) ([]ledger.TypeCount, error)
}

// StatsCache is a read-through cache over a StatsSource. All branch
// variants of a business hang off one hash key so that invalidation
// after a ledger write drops them together.
type StatsCache struct {
	client *redis.Client
	source StatsSource
	ttl    time.Duration
}

// NewStatsCache creates a stats cache backed by an existing client.
func NewStatsCache(client *redis.Client, source StatsSource) *StatsCache {
	return &StatsCache{
		client: client,
		source: source,
		ttl:    defaultStatsTTL,
	}
}

func statsKey(businessID id.ID) string {
	return "stock:stats:" + businessID.String()
}

func statsField(branchID *id.ID) string {
	if branchID == nil {
		return "all"
	}
	return branchID.String()
}

// Stats returns cached stats, falling back to the source on a miss.
// Cache failures degrade to the source, never to an error.
func (c *StatsCache) Stats(ctx context.Context, businessID id.ID, branchID *id.ID) ([]ledger.TypeCount, error) {
	key := statsKey(businessID)
	field := statsField(branchID)

	val, err := c.client.HGet(ctx, key, field).Result()
	if err == nil {
		var counts []ledger.TypeCount
		if jerr := json.Unmarshal([]byte(val), &counts); jerr == nil {
			return counts, nil
		}
		// Corrupt entry, recompute below.
	} else if err != redis.Nil {
		return c.source.Stats(ctx, businessID, branchID)
	}

	counts, err := c.source.Stats(ctx, businessID, branchID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(counts)
	if err != nil {
		return counts, nil
	}
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, field, payload)
	pipe.Expire(ctx, key, c.ttl)
	_, _ = pipe.Exec(ctx)

	return counts, nil
}

// Invalidate drops every cached variant for a business. Implements
// ledger.StatsInvalidator.
func (c *StatsCache) Invalidate(ctx context.Context, businessID id.ID) error {
	if err := c.client.Del(ctx, statsKey(businessID)).Err(); err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}

func (c *StatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *StatsCache) Close() error {
	return c.client.Close()
}

// Ensure interface compliance.
var _ ledger.StatsInvalidator = (*StatsCache)(nil)
