package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const seenSetKey = "robopost:replied_posts"

// SeenCache records handled timeline items in a Redis set.
type SeenCache struct {
	client *redis.Client
}

func NewSeenCache(client *redis.Client) *SeenCache {
	return &SeenCache{client: client}
}

func (c *SeenCache) Contains(ctx context.Context, id string) (bool, error) {
	ok, err := c.client.SIsMember(ctx, seenSetKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("checking seen set: %w", err)
	}
	return ok, nil
}

func (c *SeenCache) Add(ctx context.Context, id string) error {
	if err := c.client.SAdd(ctx, seenSetKey, id).Err(); err != nil {
		return fmt.Errorf("adding to seen set: %w", err)
	}
	return nil
}
