package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore marks callback keys in redis so every instance behind a load
// balancer shares the same fast-path memory.
type DedupStore struct {
	client *redis.Client
}

func NewDedupStore(client *redis.Client) *DedupStore {
	return &DedupStore{client: client}
}

// / Seen is first-writer-wins: SETNX returns false when the key already
// existed, which means some request got here before us.
func (d *DedupStore) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := d.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
