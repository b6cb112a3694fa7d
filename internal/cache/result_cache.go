package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"formfill/internal/model"
)

// ResultCache keeps terminal results in Redis so that clients polling for a
// finished fill do not hit Postgres on every request. Pending results are
// never cached; they change.
type ResultCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewResultCache(client *redisv9.Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) Get(ctx context.Context, id string) (*model.Result, bool, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get result failed: %w", err)
	}

	var res model.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached result failed: %w", err)
	}
	return &res, true, nil
}

// Set stores a result, silently ignoring non-terminal ones.
func (c *ResultCache) Set(ctx context.Context, res *model.Result) error {
	if res == nil || !res.Status.Terminal() {
		return nil
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(res.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set result failed: %w", err)
	}
	return nil
}

func (c *ResultCache) key(id string) string {
	return "formfill:result:" + id
}
