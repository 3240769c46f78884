package cache

import (
	"context"
	"encoding/json"

	"go-parts-ledger/internal/model"

	"github.com/redis/go-redis/v9"
)

type RedisReportCache struct {
	client *redis.Client
}

func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisReportCache(client *redis.Client) *RedisReportCache {
	return &RedisReportCache{client: client}
}

func (c *RedisReportCache) Get(ctx context.Context, period model.Period) (*model.MonthlyReport, bool, error) {
	val, err := c.client.Get(ctx, reportKey(period)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report model.MonthlyReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

// Set stores finalized reports only; drafts are ignored.
func (c *RedisReportCache) Set(ctx context.Context, report *model.MonthlyReport) error {
	if report == nil || !report.IsFinalized {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, reportKey(report.Period()), payload, 0).Err()
}
