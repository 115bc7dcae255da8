package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeadlineLedger stores armed deadlines in a sorted set shared by all processes:
// ZADD exam:deadlines {deadline unix ms} {testID}
type DeadlineLedger struct {
	client *redis.Client
	key    string
}

func NewDeadlineLedger(client *redis.Client) *DeadlineLedger {
	return &DeadlineLedger{client: client, key: "exam:deadlines"}
}

func (l *DeadlineLedger) Put(ctx context.Context, testID string, deadline time.Time) error {
	err := l.client.ZAdd(ctx, l.key, redis.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: testID,
	}).Err()
	if err != nil {
		return fmt.Errorf("record deadline for %s: %w", testID, err)
	}
	return nil
}

func (l *DeadlineLedger) Remove(ctx context.Context, testID string) error {
	if err := l.client.ZRem(ctx, l.key, testID).Err(); err != nil {
		return fmt.Errorf("clear deadline for %s: %w", testID, err)
	}
	return nil
}

// Due returns overdue test ids, earliest deadline first.
func (l *DeadlineLedger) Due(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := l.client.ZRangeByScore(ctx, l.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due deadlines: %w", err)
	}
	return ids, nil
}
