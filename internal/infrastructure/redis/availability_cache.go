package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/chart"
)

var ErrCacheMiss = errors.New("キャッシュが見つかりません")

// AvailabilityCache はチャートのステータス別サマリーのキャッシュを管理する
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetCounts はチャートのサマリーをキャッシュから取得する
func (c *AvailabilityCache) GetCounts(ctx context.Context, chartID string) (chart.StatusCounts, error) {
	val, err := c.client.Get(ctx, c.countsKey(chartID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return chart.StatusCounts{}, ErrCacheMiss
		}
		return chart.StatusCounts{}, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var counts chart.StatusCounts
	if err := json.Unmarshal(val, &counts); err != nil {
		return chart.StatusCounts{}, fmt.Errorf("キャッシュ復元に失敗: %w", err)
	}
	return counts, nil
}

// SetCounts はチャートのサマリーをキャッシュに保存する
func (c *AvailabilityCache) SetCounts(ctx context.Context, chartID string, counts chart.StatusCounts, ttl time.Duration) error {
	val, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("キャッシュ変換に失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.countsKey(chartID), val, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はチャートのキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, chartID string) error {
	if err := c.client.Del(ctx, c.countsKey(chartID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) countsKey(chartID string) string {
	return fmt.Sprintf("charts:availability:%s", chartID)
}
