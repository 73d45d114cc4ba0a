package chart

import (
	"time"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
)

// Chart はシーティングチャートの集約ルートを表す
// Chart → Section → Table → Seat の所有ツリーで、座席はチャート破棄時にのみ破棄される
type Chart struct {
	ID       string
	Name     string
	Sections []Section

	// ステータス別サマリー（座席ツリーの全走査ではなく差分で維持する）
	AvailableCount int
	ReservedCount  int
	SoldCount      int
	BlockedCount   int

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int // 楽観的ロック用
}

// Section はチャート内のセクションを表す
// テーブルを持たないセクション（自由席エリア等）も許容する
type Section struct {
	Index  int
	Name   string
	Tables []Table
}

// Table はセクション内のテーブルを表す
type Table struct {
	Index int
	Label string
	Seats []*seat.Seat
}

// NewChart は新しいチャートを作成する
func NewChart(name string) *Chart {
	now := time.Now()
	return &Chart{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   0,
	}
}

// Validate はチャートの検証を行う
func (c *Chart) Validate() error {
	if c.Name == "" {
		return ErrChartNameRequired
	}
	return nil
}

// Seats はツリー内の全座席を位置順で返す
func (c *Chart) Seats() []*seat.Seat {
	var seats []*seat.Seat
	for _, sec := range c.Sections {
		for _, tbl := range sec.Tables {
			seats = append(seats, tbl.Seats...)
		}
	}
	return seats
}

// FindSeat はIDから座席を探す
func (c *Chart) FindSeat(seatID string) (*seat.Seat, error) {
	for _, s := range c.Seats() {
		if s.ID == seatID {
			return s, nil
		}
	}
	return nil, seat.ErrSeatNotFound
}

// ExpiredSeats は now 時点で期限切れのホールドを持つ座席を返す
func (c *Chart) ExpiredSeats(now time.Time) []*seat.Seat {
	var expired []*seat.Seat
	for _, s := range c.Seats() {
		if s.IsExpired(now) {
			expired = append(expired, s)
		}
	}
	return expired
}

// HasReservedSeats はホールド中の座席が存在するかを返す
func (c *Chart) HasReservedSeats() bool {
	for _, s := range c.Seats() {
		if s.Status == seat.StatusReserved {
			return true
		}
	}
	return false
}

// TotalSeats はツリー内の座席総数を返す
func (c *Chart) TotalSeats() int {
	return len(c.Seats())
}
