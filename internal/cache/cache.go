// Package cache holds the redis-backed cache for public event payloads.
// Cached entries are TTL-bound and invalidated on every mutation that can
// change an event's positions, so readers see fresh placements promptly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"eventsignup/internal/model"
)

// EventCache caches public event details in redis. Cache trouble is never an
// error for callers: misses and redis failures both read through to the
// database.
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs the cache.
func New(client *redis.Client, ttl time.Duration) *EventCache {
	return &EventCache{client: client, ttl: ttl}
}

func key(eventID string) string { return "event:" + eventID }

// GetEvent returns the cached projection, if present.
func (c *EventCache) GetEvent(ctx context.Context, eventID string) (*model.PublicEventDetails, bool) {
	data, err := c.client.Get(ctx, key(eventID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).Warn("event cache read failed")
		}
		return nil, false
	}
	var details model.PublicEventDetails
	if err := json.Unmarshal(data, &details); err != nil {
		logrus.WithError(err).Warn("event cache entry corrupt, dropping")
		c.Invalidate(ctx, eventID)
		return nil, false
	}
	return &details, true
}

// SetEvent stores the projection with the configured TTL.
func (c *EventCache) SetEvent(ctx context.Context, details *model.PublicEventDetails) {
	data, err := json.Marshal(details)
	if err != nil {
		logrus.WithError(err).Warn("event cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key(details.ID), data, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("event cache write failed")
	}
}

// Invalidate drops the cached projection for an event.
func (c *EventCache) Invalidate(ctx context.Context, eventID string) {
	if err := c.client.Del(ctx, key(eventID)).Err(); err != nil {
		logrus.WithError(err).Warn("event cache invalidation failed")
	}
}
