package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const expiryIndexKey = "holds:expiry"

// HoldRef はインデックスに登録されたホールドの参照
type HoldRef struct {
	ChartID string
	SeatID  string
}

// ExpiryIndex はホールド中座席の期限を時刻順に保持するソート済みセット
// スイーパーが全座席を走査せずに期限切れ候補のチャートを特定するためのヒントで、
// 真実はDB側にある（インデックスの欠落・余剰は許容される）
type ExpiryIndex struct {
	client *redis.Client
}

// NewExpiryIndex は新しいExpiryIndexを作成する
func NewExpiryIndex(client *redis.Client) *ExpiryIndex {
	return &ExpiryIndex{client: client}
}

// Add はホールドの期限を登録する（延長時は同メンバーのスコアを上書き）
func (i *ExpiryIndex) Add(ctx context.Context, chartID, seatID string, expiresAt time.Time) error {
	member := indexMember(chartID, seatID)
	err := i.client.ZAdd(ctx, expiryIndexKey, redis.Z{
		Score:  float64(expiresAt.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("期限インデックス登録に失敗: %w", err)
	}
	return nil
}

// Remove はホールドの期限登録を削除する
func (i *ExpiryIndex) Remove(ctx context.Context, chartID, seatID string) error {
	if err := i.client.ZRem(ctx, expiryIndexKey, indexMember(chartID, seatID)).Err(); err != nil {
		return fmt.Errorf("期限インデックス削除に失敗: %w", err)
	}
	return nil
}

// Due は now 以前に期限を迎えたホールドの参照を返す
func (i *ExpiryIndex) Due(ctx context.Context, now time.Time) ([]HoldRef, error) {
	members, err := i.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("期限インデックス検索に失敗: %w", err)
	}

	refs := make([]HoldRef, 0, len(members))
	for _, m := range members {
		ref, ok := parseMember(m)
		if !ok {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// DueChartIDs は期限切れホールドを含むチャートIDを重複なしで返す
func (i *ExpiryIndex) DueChartIDs(ctx context.Context, now time.Time) ([]string, error) {
	refs, err := i.Due(ctx, now)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(refs))
	var ids []string
	for _, ref := range refs {
		if _, ok := seen[ref.ChartID]; ok {
			continue
		}
		seen[ref.ChartID] = struct{}{}
		ids = append(ids, ref.ChartID)
	}
	return ids, nil
}

func indexMember(chartID, seatID string) string {
	return chartID + ":" + seatID
}

func parseMember(member string) (HoldRef, bool) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return HoldRef{}, false
	}
	return HoldRef{ChartID: parts[0], SeatID: parts[1]}, true
}
