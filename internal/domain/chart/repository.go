package chart

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/transaction"
)

// StatusCounts はチャートのステータス別座席数サマリー
type StatusCounts struct {
	Available int
	Reserved  int
	Sold      int
	Blocked   int
}

// Repository はチャートリポジトリのインターフェース
type Repository interface {
	// Create はチャートのルートを作成する（座席は seat.Repository.CreateBulk で作成）
	Create(ctx context.Context, tx transaction.Tx, c *Chart) error

	// GetByID はIDからチャートを座席ツリー込みで取得する
	GetByID(ctx context.Context, id string) (*Chart, error)

	// ListIDs は全チャートのIDを返す（スイーパーのフォールバック走査用）
	ListIDs(ctx context.Context) ([]string, error)

	// ListIDsWithExpiredHolds は期限切れホールドを含むチャートのIDを返す
	ListIDsWithExpiredHolds(ctx context.Context, now time.Time) ([]string, error)

	// GetCounts はステータス別サマリーを返す
	GetCounts(ctx context.Context, id string) (StatusCounts, error)

	// ApplyTransition は座席の状態遷移 count 件分をサマリーへ反映し、
	// updated_at と version を進める（CAS、変更ゼロの場合は呼ばないこと）
	ApplyTransition(ctx context.Context, tx transaction.Tx, chartID string, from, to seat.Status, count int, now time.Time) error

	// RemoveTable はテーブルとその座席を削除する
	// ホールド中の座席を含むテーブルの削除は seat.Repository 側の事前検査で拒否する
	RemoveTable(ctx context.Context, tx transaction.Tx, chartID string, sectionIndex, tableIndex int, now time.Time) (int, error)

	// Delete はチャートと配下の座席を破棄する
	Delete(ctx context.Context, id string) error
}
