package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/givestream/donation-platform/pkg/logger"
)

// PatternCache is a best-effort Redis cache for computed donor patterns.
// Cache failures are logged and treated as misses; a stale entry is bounded
// by the TTL and falls inside the staleness window the engine already
// accepts for concurrent scoring.
type PatternCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPatternCache creates a pattern cache with the given TTL
func NewPatternCache(client *redis.Client, ttl time.Duration) *PatternCache {
	return &PatternCache{client: client, ttl: ttl}
}

func patternKey(nonprofitID uuid.UUID) string {
	return "fraud:pattern:" + nonprofitID.String()
}

// Get returns the cached pattern for a nonprofit, or nil on a miss
func (c *PatternCache) Get(ctx context.Context, nonprofitID uuid.UUID) *DonorPattern {
	payload, err := c.client.Get(ctx, patternKey(nonprofitID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithContext(ctx).Warn("Pattern cache read failed",
				zap.String("nonprofit_id", nonprofitID.String()),
				zap.Error(err),
			)
		}
		patternCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil
	}

	var pattern DonorPattern
	if err := json.Unmarshal(payload, &pattern); err != nil {
		patternCacheHitsTotal.WithLabelValues("miss").Inc()
		return nil
	}

	patternCacheHitsTotal.WithLabelValues("hit").Inc()
	return &pattern
}

// Set stores a computed pattern, best effort
func (c *PatternCache) Set(ctx context.Context, nonprofitID uuid.UUID, pattern *DonorPattern) {
	payload, err := json.Marshal(pattern)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, patternKey(nonprofitID), payload, c.ttl).Err(); err != nil {
		logger.WithContext(ctx).Warn("Pattern cache write failed",
			zap.String("nonprofit_id", nonprofitID.String()),
			zap.Error(err),
		)
	}
}
