package queue

import "time"

// キュー名の定義
const (
	QueueSeatReleased = "seat.hold.released"
	QueueSeatSold     = "seat.sold"
)

// ReleaseCause はホールド解放の契機を表す
type ReleaseCause string

const (
	ReleaseCauseSession ReleaseCause = "session"  // 保持セッションによる明示的な解放
	ReleaseCauseAdmin   ReleaseCause = "admin"    // 管理者による強制解放
	ReleaseCauseExpired ReleaseCause = "expired"  // スイーパーによる期限切れ回収
)

// SeatReleasedEvent は座席のホールドが解放されたときに発行される
// 下流のストアフロントが座席表示を更新するのに十分な情報を含む
type SeatReleasedEvent struct {
	ChartID    string    `json:"chart_id"`
	SeatID     string    `json:"seat_id"`
	SeatLabel  string    `json:"seat_label"`
	SessionID  string    `json:"session_id,omitempty"`
	Cause      string    `json:"cause"`
	ReleasedAt time.Time `json:"released_at"`
}

// SeatSoldEvent は座席のホールドが販売確定されたときに発行される
type SeatSoldEvent struct {
	ChartID   string    `json:"chart_id"`
	SeatID    string    `json:"seat_id"`
	SeatLabel string    `json:"seat_label"`
	SessionID string    `json:"session_id"`
	SoldAt    time.Time `json:"sold_at"`
}
