package seat

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
// 状態遷移系のメソッドは条件付きUPDATE（CAS）で read-check-write を
// 単一の原子操作として実行し、競合時はドメインエラーを返す
type Repository interface {
	// CreateBulk は複数の座席を一括作成する
	CreateBulk(ctx context.Context, tx transaction.Tx, seats []*Seat) error

	// GetByID はIDから座席を取得する
	GetByID(ctx context.Context, id string) (*Seat, error)

	// GetByChartID はチャートIDから座席一覧を取得する（位置順）
	GetByChartID(ctx context.Context, chartID string) ([]*Seat, error)

	// PlaceHold は available な座席のみをホールド状態に更新する
	PlaceHold(ctx context.Context, tx transaction.Tx, seatID, sessionID string, expiresAt time.Time) (*Seat, error)

	// ExtendHold は同一セッションが保持するホールドの期限のみを更新する
	ExtendHold(ctx context.Context, tx transaction.Tx, seatID, sessionID string, expiresAt time.Time) (*Seat, error)

	// Release はホールドを解放する（force で保持者照合をスキップ）
	Release(ctx context.Context, tx transaction.Tx, seatID, sessionID string, force bool) (*Seat, error)

	// Commit は期限内のホールドを販売済みに更新する
	Commit(ctx context.Context, tx transaction.Tx, seatID, sessionID string, now time.Time) (*Seat, error)

	// Block は available な座席のみを販売停止に更新する
	Block(ctx context.Context, tx transaction.Tx, seatID string) (*Seat, error)

	// Unblock は販売停止中の座席のみを販売可能に戻す
	Unblock(ctx context.Context, tx transaction.Tx, seatID string) (*Seat, error)

	// ReleaseExpired はチャート内の期限切れホールドを一括解放し、
	// 解放した座席を返す（該当なしの場合は空スライス）
	ReleaseExpired(ctx context.Context, tx transaction.Tx, chartID string, now time.Time) ([]*Seat, error)

	// CountReservedInTable はテーブル内のホールド中座席数を返す（構造編集の事前検査用）
	CountReservedInTable(ctx context.Context, chartID string, sectionIndex, tableIndex int) (int, error)
}
