package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
)

// buildChart は2セクション・2テーブル・4座席のチャートを構築する
func buildChart() *Chart {
	c := NewChart("メインホール")
	c.ID = "chart-123"
	c.Sections = []Section{
		{
			Index: 0,
			Name:  "1階",
			Tables: []Table{
				{Index: 0, Label: "T1", Seats: []*seat.Seat{
					newSeat("seat-1", 0, 0, 0, "T1-1"),
					newSeat("seat-2", 0, 0, 1, "T1-2"),
				}},
				{Index: 1, Label: "T2", Seats: []*seat.Seat{
					newSeat("seat-3", 0, 1, 0, "T2-1"),
				}},
			},
		},
		{
			Index: 1,
			Name:  "2階",
			Tables: []Table{
				{Index: 0, Label: "T3", Seats: []*seat.Seat{
					newSeat("seat-4", 1, 0, 0, "T3-1"),
				}},
			},
		},
	}
	return c
}

func newSeat(id string, sectionIndex, tableIndex, seatIndex int, label string) *seat.Seat {
	s := seat.NewSeat("chart-123", sectionIndex, tableIndex, seatIndex, label)
	s.ID = id
	return s
}

func TestNewChart(t *testing.T) {
	c := NewChart("メインホール")

	assert.Equal(t, "メインホール", c.Name)
	assert.Empty(t, c.Sections)
	assert.Equal(t, 0, c.AvailableCount)
	assert.Equal(t, 0, c.Version)
}

func TestChart_Validate(t *testing.T) {
	t.Run("有効なチャート", func(t *testing.T) {
		c := NewChart("メインホール")
		require.NoError(t, c.Validate())
	})

	t.Run("名前が空", func(t *testing.T) {
		c := NewChart("")
		err := c.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrChartNameRequired)
	})
}

func TestChart_Seats(t *testing.T) {
	c := buildChart()

	seats := c.Seats()

	require.Len(t, seats, 4)
	assert.Equal(t, "seat-1", seats[0].ID)
	assert.Equal(t, "seat-4", seats[3].ID)
	assert.Equal(t, 4, c.TotalSeats())
}

func TestChart_FindSeat(t *testing.T) {
	c := buildChart()

	t.Run("存在する座席を探せる", func(t *testing.T) {
		s, err := c.FindSeat("seat-3")
		require.NoError(t, err)
		assert.Equal(t, "T2-1", s.Label)
	})

	t.Run("存在しない座席はエラー", func(t *testing.T) {
		_, err := c.FindSeat("seat-999")
		require.Error(t, err)
		assert.ErrorIs(t, err, seat.ErrSeatNotFound)
	})
}

func TestChart_ExpiredSeats(t *testing.T) {
	now := time.Now()
	c := buildChart()

	// seat-1: 期限切れ、seat-2: 有効、seat-3: 販売済み、seat-4: 未ホールド
	seats := c.Seats()
	require.NoError(t, seats[0].PlaceHold("session-1", time.Minute, now.Add(-2*time.Minute)))
	require.NoError(t, seats[1].PlaceHold("session-2", seat.DefaultHoldTTL, now))
	require.NoError(t, seats[2].PlaceHold("session-3", seat.DefaultHoldTTL, now))
	require.NoError(t, seats[2].Commit("session-3", now))

	expired := c.ExpiredSeats(now)

	require.Len(t, expired, 1)
	assert.Equal(t, "seat-1", expired[0].ID)
}

func TestChart_HasReservedSeats(t *testing.T) {
	now := time.Now()

	t.Run("ホールドなし", func(t *testing.T) {
		c := buildChart()
		assert.False(t, c.HasReservedSeats())
	})

	t.Run("ホールドあり", func(t *testing.T) {
		c := buildChart()
		require.NoError(t, c.Seats()[0].PlaceHold("session-1", seat.DefaultHoldTTL, now))
		assert.True(t, c.HasReservedSeats())
	})

	t.Run("販売済みのみはホールドなし扱い", func(t *testing.T) {
		c := buildChart()
		s := c.Seats()[0]
		require.NoError(t, s.PlaceHold("session-1", seat.DefaultHoldTTL, now))
		require.NoError(t, s.Commit("session-1", now))
		assert.False(t, c.HasReservedSeats())
	})
}
