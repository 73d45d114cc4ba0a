package seat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeat(t *testing.T) {
	chartID := "chart-123"

	seat := NewSeat(chartID, 0, 1, 2, "A-3")

	assert.Equal(t, chartID, seat.ChartID)
	assert.Equal(t, 0, seat.SectionIndex)
	assert.Equal(t, 1, seat.TableIndex)
	assert.Equal(t, 2, seat.SeatIndex)
	assert.Equal(t, "A-3", seat.Label)
	assert.Equal(t, StatusAvailable, seat.Status)
	assert.Nil(t, seat.SessionID)
	assert.Nil(t, seat.HoldExpiresAt)
	assert.Equal(t, 0, seat.Version)
}

func TestSeat_IsAvailable(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"利用可能", StatusAvailable, true},
		{"ホールド中", StatusReserved, false},
		{"販売済み", StatusSold, false},
		{"販売停止", StatusBlocked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seat := &Seat{Status: tt.status}
			assert.Equal(t, tt.expected, seat.IsAvailable())
		})
	}
}

func TestSeat_PlaceHold(t *testing.T) {
	now := time.Now()

	t.Run("利用可能な座席をホールドできる", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")

		err := seat.PlaceHold("session-456", DefaultHoldTTL, now)

		require.NoError(t, err)
		assert.Equal(t, StatusReserved, seat.Status)
		require.NotNil(t, seat.SessionID)
		assert.Equal(t, "session-456", *seat.SessionID)
		require.NotNil(t, seat.HoldExpiresAt)
		assert.Equal(t, now.Add(DefaultHoldTTL), *seat.HoldExpiresAt)
	})

	t.Run("ホールド中の座席はホールドできない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.PlaceHold("session-789", DefaultHoldTTL, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatUnavailable)
	})

	t.Run("同一セッションでも再ホールドは不可", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.PlaceHold("session-456", DefaultHoldTTL, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatUnavailable)
	})

	t.Run("販売済みの座席はホールドできない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		seat.Status = StatusSold

		err := seat.PlaceHold("session-456", DefaultHoldTTL, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatUnavailable)
	})

	t.Run("販売停止の座席はホールドできない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		seat.Status = StatusBlocked

		err := seat.PlaceHold("session-456", DefaultHoldTTL, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatUnavailable)
	})
}

func TestSeat_ExtendHold(t *testing.T) {
	now := time.Now()

	t.Run("保持者は期限を延長できる", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		later := now.Add(5 * time.Minute)
		err := seat.ExtendHold("session-456", DefaultHoldTTL, later)

		require.NoError(t, err)
		require.NotNil(t, seat.HoldExpiresAt)
		assert.Equal(t, later.Add(DefaultHoldTTL), *seat.HoldExpiresAt)
	})

	t.Run("保持者以外は延長できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.ExtendHold("session-789", DefaultHoldTTL, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotHolder)
	})

	t.Run("ホールドされていない座席は延長できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")

		err := seat.ExtendHold("session-456", DefaultHoldTTL, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatNotReserved)
	})
}

func TestSeat_Release(t *testing.T) {
	now := time.Now()

	t.Run("保持者はホールドを解放できる", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Release("session-456", false, now)

		require.NoError(t, err)
		assert.Equal(t, StatusAvailable, seat.Status)
		assert.Nil(t, seat.SessionID)
		assert.Nil(t, seat.HoldExpiresAt)
	})

	t.Run("保持者以外は解放できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Release("session-789", false, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotHolder)
		assert.Equal(t, StatusReserved, seat.Status)
	})

	t.Run("管理者は保持者以外でも強制解放できる", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Release("admin", true, now)

		require.NoError(t, err)
		assert.Equal(t, StatusAvailable, seat.Status)
	})

	t.Run("ホールドされていない座席は解放できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")

		err := seat.Release("session-456", false, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatNotReserved)
	})

	t.Run("販売済みの座席は解放できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		seat.Status = StatusSold

		err := seat.Release("session-456", false, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatNotReserved)
	})
}

func TestSeat_Block(t *testing.T) {
	now := time.Now()

	t.Run("販売可能な座席を販売停止できる", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")

		err := seat.Block(now)

		require.NoError(t, err)
		assert.Equal(t, StatusBlocked, seat.Status)
		assert.Nil(t, seat.SessionID)
		assert.Nil(t, seat.HoldExpiresAt)
	})

	t.Run("ホールド中の座席は停止できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Block(now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatUnavailable)
		assert.Equal(t, StatusReserved, seat.Status)
	})

	t.Run("販売済みの座席は停止できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		seat.Status = StatusSold

		err := seat.Block(now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatUnavailable)
	})
}

func TestSeat_Unblock(t *testing.T) {
	now := time.Now()

	t.Run("販売停止を解除すると販売可能に戻る", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.Block(now))

		err := seat.Unblock(now)

		require.NoError(t, err)
		assert.Equal(t, StatusAvailable, seat.Status)
	})

	t.Run("停止されていない座席は解除できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")

		err := seat.Unblock(now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatNotBlocked)
		assert.Equal(t, StatusAvailable, seat.Status)
	})

	t.Run("停止中の座席はホールドできない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.Block(now))

		err := seat.PlaceHold("session-456", DefaultHoldTTL, now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatUnavailable)
		assert.Equal(t, StatusBlocked, seat.Status)
	})
}

func TestSeat_Commit(t *testing.T) {
	now := time.Now()

	t.Run("保持者はホールドを確定できる", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Commit("session-456", now.Add(time.Minute))

		require.NoError(t, err)
		assert.Equal(t, StatusSold, seat.Status)
		assert.Nil(t, seat.SessionID)
		assert.Nil(t, seat.HoldExpiresAt)
	})

	t.Run("保持者以外は確定できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Commit("session-789", now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotHolder)
	})

	t.Run("期限切れのホールドは確定できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Commit("session-456", now.Add(DefaultHoldTTL+time.Second))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrHoldExpired)
		assert.Equal(t, StatusReserved, seat.Status)
	})

	t.Run("期限ちょうどの時刻では確定できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		err := seat.Commit("session-456", now.Add(DefaultHoldTTL))

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrHoldExpired)
	})

	t.Run("ホールドされていない座席は確定できない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")

		err := seat.Commit("session-456", now)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSeatNotReserved)
	})
}

func TestSeat_IsExpired(t *testing.T) {
	base := time.Now()
	expiry := base.Add(DefaultHoldTTL)

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"期限前は有効", expiry.Add(-time.Second), false},
		{"期限ちょうどで回収可能", expiry, true},
		{"期限後は回収可能", expiry.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seat := NewSeat("chart-123", 0, 0, 0, "A-1")
			require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, base))
			assert.Equal(t, tt.expected, seat.IsExpired(tt.now))
		})
	}

	t.Run("ホールドされていない座席は期限切れにならない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		assert.False(t, seat.IsExpired(base.Add(time.Hour)))
	})
}

func TestSeat_Reclaim(t *testing.T) {
	now := time.Now()

	t.Run("期限切れのホールドを回収できる", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		reclaimed := seat.Reclaim(now.Add(DefaultHoldTTL + time.Second))

		assert.True(t, reclaimed)
		assert.Equal(t, StatusAvailable, seat.Status)
		assert.Nil(t, seat.SessionID)
		assert.Nil(t, seat.HoldExpiresAt)
	})

	t.Run("有効なホールドは回収されない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))

		reclaimed := seat.Reclaim(now.Add(time.Minute))

		assert.False(t, reclaimed)
		assert.Equal(t, StatusReserved, seat.Status)
		require.NotNil(t, seat.SessionID)
		assert.Equal(t, "session-456", *seat.SessionID)
	})

	t.Run("販売済みの座席は回収されない", func(t *testing.T) {
		seat := NewSeat("chart-123", 0, 0, 0, "A-1")
		require.NoError(t, seat.PlaceHold("session-456", DefaultHoldTTL, now))
		require.NoError(t, seat.Commit("session-456", now))

		reclaimed := seat.Reclaim(now.Add(time.Hour))

		assert.False(t, reclaimed)
		assert.Equal(t, StatusSold, seat.Status)
	})
}

func TestSeat_Validate(t *testing.T) {
	tests := []struct {
		name        string
		seat        *Seat
		expectedErr error
	}{
		{
			name:        "有効な座席",
			seat:        &Seat{ChartID: "chart-123", Label: "A-1"},
			expectedErr: nil,
		},
		{
			name:        "チャートIDが空",
			seat:        &Seat{ChartID: "", Label: "A-1"},
			expectedErr: ErrChartIDRequired,
		},
		{
			name:        "ラベルが空",
			seat:        &Seat{ChartID: "chart-123", Label: ""},
			expectedErr: ErrSeatLabelRequired,
		},
		{
			name:        "位置が負",
			seat:        &Seat{ChartID: "chart-123", Label: "A-1", SeatIndex: -1},
			expectedErr: ErrInvalidSeatPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seat.Validate()
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
