package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyTTL = 48 * time.Hour

// DailyCounter 按 UTC 自然日统计每个用户的生成次数
type DailyCounter struct {
	client *redis.Client
	prefix string
}

func NewDailyCounter(client *redis.Client) *DailyCounter {
	return &DailyCounter{client: client, prefix: "gen:daily"}
}

func (c *DailyCounter) key(email string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, email, now.UTC().Format("20060102"))
}

// Count 当天已用次数
func (c *DailyCounter) Count(ctx context.Context, email string, now time.Time) (int, error) {
	n, err := c.client.Get(ctx, c.key(email, now)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Incr 当天次数加一并返回新值
func (c *DailyCounter) Incr(ctx context.Context, email string, now time.Time) (int, error) {
	key := c.key(email, now)

	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, keyTTL)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}
