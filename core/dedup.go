/*
This file implements request deduplication keyed by correlation id. The
upstream caller retries on transport errors, so the same message can arrive
twice; a short-TTL Redis marker suppresses the second processing.

The cache fails open: any Redis error is logged and the request is allowed
through. Processing a message twice is better than blocking it.
*/
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// dedupKeyPrefix namespaces dedup markers in a shared Redis.
const dedupKeyPrefix = "dedup:oddsbot:"

// DedupCache marks correlation ids as seen for a fixed TTL window.
type DedupCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewDedupCache connects to Redis using a connection URL.
func NewDedupCache(url string, ttl time.Duration, logger *logrus.Logger) (*DedupCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &DedupCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// CheckAndMark reports whether the correlation id was already seen within
// the TTL window, marking it as seen atomically otherwise.
func (d *DedupCache) CheckAndMark(ctx context.Context, correlationID string) bool {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+correlationID, "1", d.ttl).Result()
	if err != nil {
		d.logger.WithError(err).Warn("Dedup check failed, allowing request")
		return false
	}
	// SetNX returns false when the key already existed.
	return !ok
}

// Close releases the Redis connection.
func (d *DedupCache) Close() error {
	return d.client.Close()
}
