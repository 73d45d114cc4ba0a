package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-hold-engine/internal/application"
	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/logger"
)

// HoldSweeper は期限切れホールドを回収するインターフェース
type HoldSweeper interface {
	SweepExpiredHolds(ctx context.Context) (application.SweepResult, error)
}

// ReclamationSweeper は固定間隔で期限切れホールドを回収するワーカー
// 期限はホールド自身が持つデータであり、ワーカーが止まっていた間の
// 期限切れも次の実行でまとめて回収される
type ReclamationSweeper struct {
	sweepService HoldSweeper
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewReclamationSweeper は新しいスイーパーを作成
func NewReclamationSweeper(ss HoldSweeper, interval time.Duration) *ReclamationSweeper {
	return &ReclamationSweeper{
		sweepService: ss,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (w *ReclamationSweeper) Start(ctx context.Context) {
	logger.Info("回収スイーパー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("回収スイーパー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("回収スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (w *ReclamationSweeper) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// sweep は1回分の回収を実行
func (w *ReclamationSweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れホールドのスイープ開始")

	result, err := w.sweepService.SweepExpiredHolds(ctx)
	if err != nil {
		log.Error("期限切れホールドのスイープ失敗", zap.Error(err))
		return
	}

	if result.SeatsReleased > 0 || result.ChartsFailed > 0 {
		log.Info("スイープ完了",
			zap.Int("seats_released", result.SeatsReleased),
			zap.Int("charts_modified", result.ChartsModified),
			zap.Int("charts_failed", result.ChartsFailed),
		)
	} else {
		log.Debug("回収対象なし")
	}
}
