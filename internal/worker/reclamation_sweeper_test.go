package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-seat-hold-engine/internal/application"
)

// MockHoldSweeper はHoldSweeperのモック
type MockHoldSweeper struct {
	mock.Mock
}

func (m *MockHoldSweeper) SweepExpiredHolds(ctx context.Context) (application.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(application.SweepResult), args.Error(1)
}

func TestNewReclamationSweeper(t *testing.T) {
	mockService := new(MockHoldSweeper)
	interval := 5 * time.Minute

	sweeper := NewReclamationSweeper(mockService, interval)

	assert.NotNil(t, sweeper)
	assert.Equal(t, interval, sweeper.interval)
	assert.NotNil(t, sweeper.stopCh)
	assert.NotNil(t, sweeper.doneCh)
}

func TestReclamationSweeper_StopChannels(t *testing.T) {
	mockService := new(MockHoldSweeper)
	sweeper := NewReclamationSweeper(mockService, time.Second)

	assert.NotNil(t, sweeper.stopCh)
	assert.NotNil(t, sweeper.doneCh)

	// チャンネルが初期状態でcloseされていないことを確認
	select {
	case <-sweeper.stopCh:
		t.Fatal("stopCh should not be closed initially")
	default:
		// 期待通り
	}
}

func TestReclamationSweeper_Sweep(t *testing.T) {
	t.Run("正常にスイープが実行される", func(t *testing.T) {
		mockService := new(MockHoldSweeper)
		mockService.On("SweepExpiredHolds", mock.Anything).
			Return(application.SweepResult{SeatsReleased: 5, ChartsModified: 2}, nil)

		sweeper := NewReclamationSweeper(mockService, time.Minute)
		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})

	t.Run("回収対象がない場合も正常に動作する", func(t *testing.T) {
		mockService := new(MockHoldSweeper)
		mockService.On("SweepExpiredHolds", mock.Anything).
			Return(application.SweepResult{}, nil)

		sweeper := NewReclamationSweeper(mockService, time.Minute)
		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})

	t.Run("エラーが発生しても継続する", func(t *testing.T) {
		mockService := new(MockHoldSweeper)
		mockService.On("SweepExpiredHolds", mock.Anything).
			Return(application.SweepResult{}, assert.AnError)

		sweeper := NewReclamationSweeper(mockService, time.Minute)

		// パニックしないことを確認
		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})
}

func TestReclamationSweeper_StartStop(t *testing.T) {
	t.Run("開始と停止が正常に動作する", func(t *testing.T) {
		mockService := new(MockHoldSweeper)
		mockService.On("SweepExpiredHolds", mock.Anything).
			Return(application.SweepResult{}, nil).Maybe()

		sweeper := NewReclamationSweeper(mockService, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go sweeper.Start(ctx)

		// 最低1回のtickを待つ
		time.Sleep(120 * time.Millisecond)

		sweeper.Stop()

		// Stop後はdoneChがcloseされている
		select {
		case <-sweeper.doneCh:
			// 正常に終了
		case <-time.After(time.Second):
			t.Error("sweeper did not stop in time")
		}
	})

	t.Run("コンテキストキャンセルで停止する", func(t *testing.T) {
		mockService := new(MockHoldSweeper)
		mockService.On("SweepExpiredHolds", mock.Anything).
			Return(application.SweepResult{}, nil).Maybe()

		sweeper := NewReclamationSweeper(mockService, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			sweeper.Start(ctx)
			close(done)
		}()

		time.Sleep(80 * time.Millisecond)
		cancel()

		select {
		case <-done:
			// 正常に終了
		case <-time.After(time.Second):
			t.Error("sweeper did not stop after context cancel")
		}
	})
}
