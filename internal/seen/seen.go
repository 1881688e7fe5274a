package seen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gpu-scraper:seen:"

// Cache remembers identity keys processed recently so repeated runs inside
// the TTL window skip preprocessing and OCR for cards already handled. It
// is an optimization only: the store's upsert remains the deduplication
// authority, so cache misses or outages never affect correctness.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "seen-cache"),
	}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Seen reports whether the identity key was marked within the TTL window.
// Redis errors degrade to "not seen" so the pipeline reprocesses rather
// than dropping the card.
func (c *Cache) Seen(ctx context.Context, identityKey string) bool {
	n, err := c.client.Exists(ctx, keyPrefix+identityKey).Result()
	if err != nil {
		c.logger.Warn("seen lookup failed", "key", identityKey, "error", err)
		return false
	}
	return n > 0
}

// Mark records the identity key for the TTL window.
func (c *Cache) Mark(ctx context.Context, identityKey string) {
	if err := c.client.Set(ctx, keyPrefix+identityKey, 1, c.ttl).Err(); err != nil {
		c.logger.Warn("seen mark failed", "key", identityKey, "error", err)
	}
}
