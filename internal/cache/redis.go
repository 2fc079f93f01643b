package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventCache remembers provider event ids that were already accepted so
// provider redeliveries can be skipped early. It is strictly best effort:
// merge semantics downstream make duplicate processing safe, so a cache
// outage only costs extra work.
type EventCache struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func NewEventCache(cfg Config) (*EventCache, error) {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &EventCache{client: rdb, ttl: cfg.TTL}, nil
}

// MarkSeen records the event id and reports whether this delivery is the
// first one. The set-if-absent makes the check and the mark one round trip.
func (c *EventCache) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	first, err := c.client.SetNX(ctx, "webhook:event:"+eventID, 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("event dedup check failed: %w", err)
	}
	return first, nil
}

func (c *EventCache) Close() error {
	return c.client.Close()
}
