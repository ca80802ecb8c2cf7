package unread

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rpj:unread:" // rpj:unread:{project_id}:{user_id}

// Counter keeps a per-participant unread tally in Redis so list views can show
// badges without scanning message rows. The database stays the source of
// truth; a lost counter just means one extra CountUnread query on next read.
type Counter struct {
	client *redis.Client
}

func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

func key(projectID, userID string) string {
	return keyPrefix + projectID + ":" + userID
}

func (c *Counter) Incr(ctx context.Context, projectID, userID string) error {
	if err := c.client.Incr(ctx, key(projectID, userID)).Err(); err != nil {
		return fmt.Errorf("incr unread: %w", err)
	}
	return nil
}

func (c *Counter) Clear(ctx context.Context, projectID, userID string) error {
	if err := c.client.Del(ctx, key(projectID, userID)).Err(); err != nil {
		return fmt.Errorf("clear unread: %w", err)
	}
	return nil
}

// Get returns the counter value and whether the key exists. A missing key
// means the caller should fall back to counting rows.
func (c *Counter) Get(ctx context.Context, projectID, userID string) (int, bool, error) {
	n, err := c.client.Get(ctx, key(projectID, userID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get unread: %w", err)
	}
	return n, true, nil
}

// Set backfills the counter after a database count.
func (c *Counter) Set(ctx context.Context, projectID, userID string, n int) error {
	if err := c.client.Set(ctx, key(projectID, userID), n, 0).Err(); err != nil {
		return fmt.Errorf("set unread: %w", err)
	}
	return nil
}
