package seat

import "time"

// Status は座席の状態を表す
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusSold      Status = "sold"
	StatusBlocked   Status = "blocked" // 管理者による販売停止
)

// DefaultHoldTTL はホールドの有効期限（デフォルト15分）
const DefaultHoldTTL = 15 * time.Minute

// Seat は座席エンティティを表す
// SessionID と HoldExpiresAt は Status が reserved のときのみ両方設定される
type Seat struct {
	ID            string
	ChartID       string
	SectionIndex  int
	TableIndex    int
	SeatIndex     int
	Label         string
	Status        Status
	SessionID     *string
	HoldExpiresAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int // 楽観的ロック用
}

// NewSeat は新しい座席を作成する
func NewSeat(chartID string, sectionIndex, tableIndex, seatIndex int, label string) *Seat {
	now := time.Now()
	return &Seat{
		ChartID:      chartID,
		SectionIndex: sectionIndex,
		TableIndex:   tableIndex,
		SeatIndex:    seatIndex,
		Label:        label,
		Status:       StatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      0,
	}
}

// IsAvailable は座席がホールド可能かを返す
func (s *Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

// IsHeldBy は指定セッションが現在のホールド保持者かを返す
func (s *Seat) IsHeldBy(sessionID string) bool {
	return s.Status == StatusReserved && s.SessionID != nil && *s.SessionID == sessionID
}

// IsExpired はホールドが期限切れかを返す
func (s *Seat) IsExpired(now time.Time) bool {
	return s.Status == StatusReserved && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}

// PlaceHold は座席をホールド状態にする
// 同一セッションによる再ホールドも不可（ExtendHold を使う）
func (s *Seat) PlaceHold(sessionID string, ttl time.Duration, now time.Time) error {
	if s.Status != StatusAvailable {
		return ErrSeatUnavailable
	}
	expiresAt := now.Add(ttl)
	s.Status = StatusReserved
	s.SessionID = &sessionID
	s.HoldExpiresAt = &expiresAt
	s.UpdatedAt = now
	return nil
}

// ExtendHold はホールドの有効期限を延長する
func (s *Seat) ExtendHold(sessionID string, ttl time.Duration, now time.Time) error {
	if s.Status != StatusReserved {
		return ErrSeatNotReserved
	}
	if !s.IsHeldBy(sessionID) {
		return ErrNotHolder
	}
	expiresAt := now.Add(ttl)
	s.HoldExpiresAt = &expiresAt
	s.UpdatedAt = now
	return nil
}

// Release はホールドを解放して座席を販売可能に戻す
// force は管理者による強制解放（セッション照合をスキップ）
func (s *Seat) Release(sessionID string, force bool, now time.Time) error {
	if s.Status != StatusReserved {
		return ErrSeatNotReserved
	}
	if !force && !s.IsHeldBy(sessionID) {
		return ErrNotHolder
	}
	s.clearHold(now)
	return nil
}

// Reclaim は期限切れホールドを解放する（スイーパー用）
// 期限切れでない場合は何もせず false を返す
func (s *Seat) Reclaim(now time.Time) bool {
	if !s.IsExpired(now) {
		return false
	}
	s.clearHold(now)
	return true
}

// Block は座席を管理者の販売停止状態にする
// available な座席のみ停止できる（ホールド中は解放が先）
func (s *Seat) Block(now time.Time) error {
	if s.Status != StatusAvailable {
		return ErrSeatUnavailable
	}
	s.Status = StatusBlocked
	s.UpdatedAt = now
	return nil
}

// Unblock は販売停止を解除して座席を販売可能に戻す
func (s *Seat) Unblock(now time.Time) error {
	if s.Status != StatusBlocked {
		return ErrSeatNotBlocked
	}
	s.Status = StatusAvailable
	s.UpdatedAt = now
	return nil
}

// Commit はホールドを確定して座席を販売済みにする
// スイーパーの回収を待たず、期限切れは Commit 自身が検査する
func (s *Seat) Commit(sessionID string, now time.Time) error {
	if s.Status != StatusReserved {
		return ErrSeatNotReserved
	}
	if !s.IsHeldBy(sessionID) {
		return ErrNotHolder
	}
	if s.IsExpired(now) {
		return ErrHoldExpired
	}
	s.Status = StatusSold
	s.SessionID = nil
	s.HoldExpiresAt = nil
	s.UpdatedAt = now
	return nil
}

func (s *Seat) clearHold(now time.Time) {
	s.Status = StatusAvailable
	s.SessionID = nil
	s.HoldExpiresAt = nil
	s.UpdatedAt = now
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.ChartID == "" {
		return ErrChartIDRequired
	}
	if s.Label == "" {
		return ErrSeatLabelRequired
	}
	if s.SectionIndex < 0 || s.TableIndex < 0 || s.SeatIndex < 0 {
		return ErrInvalidSeatPosition
	}
	return nil
}
