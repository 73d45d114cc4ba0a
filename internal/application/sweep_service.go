package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/chart"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-seat-hold-engine/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-hold-engine/internal/queue"
)

// SweepResult は回収スイープ1回分の診断カウント
type SweepResult struct {
	SeatsReleased  int
	ChartsModified int
	ChartsFailed   int
}

// SweepService は期限切れホールドを販売可能在庫へ回収する
// チャートごとの read-modify-write は独立しており、1チャートの失敗は
// 残りのチャートのスイープを妨げない
type SweepService struct {
	txManager   transaction.Manager
	chartRepo   chart.Repository
	seatRepo    seat.Repository
	expiryIndex *redisinfra.ExpiryIndex
	cache       *redisinfra.AvailabilityCache
	publisher   EventPublisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewSweepService(
	tm transaction.Manager,
	cr chart.Repository,
	sr seat.Repository,
	idx *redisinfra.ExpiryIndex,
	cache *redisinfra.AvailabilityCache,
	pub EventPublisher,
	m *metrics.Metrics,
) *SweepService {
	return &SweepService{
		txManager:   tm,
		chartRepo:   cr,
		seatRepo:    sr,
		expiryIndex: idx,
		cache:       cache,
		publisher:   pub,
		metrics:     m,
		now:         time.Now,
	}
}

// SweepExpiredHolds は全チャートの期限切れホールドを回収する
// 期限インデックスを候補の絞り込みに使い、DB側の検索と合成する
// （インデックスはヒントにすぎず、欠落・余剰があってもDBのCASが守る）
func (s *SweepService) SweepExpiredHolds(ctx context.Context) (SweepResult, error) {
	now := s.now()
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		}
	}()

	chartIDs, err := s.candidateChartIDs(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, chartID := range chartIDs {
		released, sweepErr := s.sweepChart(ctx, chartID, now)
		if sweepErr != nil {
			// 1チャートの失敗でスイープ全体を止めない
			logger.Error("チャートのスイープに失敗",
				zap.String("chart_id", chartID),
				zap.Error(sweepErr),
			)
			result.ChartsFailed++
			if s.metrics != nil {
				s.metrics.SweepChartFailuresTotal.Inc()
			}
			continue
		}
		if released > 0 {
			result.SeatsReleased += released
			result.ChartsModified++
		}
	}

	if s.metrics != nil {
		s.metrics.SweepReleasedSeatsTotal.Add(float64(result.SeatsReleased))
		s.metrics.SweepChartsModifiedTotal.Add(float64(result.ChartsModified))
		s.metrics.ActiveHolds.Sub(float64(result.SeatsReleased))
	}
	if result.SeatsReleased > 0 {
		logger.Info("期限切れホールドを回収",
			zap.Int("seats_released", result.SeatsReleased),
			zap.Int("charts_modified", result.ChartsModified),
			zap.Int("charts_failed", result.ChartsFailed),
		)
	} else {
		logger.Debug("期限切れホールドなし")
	}
	return result, nil
}

// candidateChartIDs は期限切れホールドを含む可能性のあるチャートIDを集める
// 期限インデックスとDB検索の和集合を取る（どちらか一方の失敗は許容）
func (s *SweepService) candidateChartIDs(ctx context.Context, now time.Time) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	var indexIDs []string
	if s.expiryIndex != nil {
		dueIDs, err := s.expiryIndex.DueChartIDs(ctx, now)
		if err != nil {
			logger.Warn("期限インデックス検索エラー、DB検索のみで続行", zap.Error(err))
		} else {
			indexIDs = dueIDs
		}
	}

	dbIDs, dbErr := s.chartRepo.ListIDsWithExpiredHolds(ctx, now)
	if dbErr != nil {
		if len(indexIDs) == 0 {
			return nil, fmt.Errorf("期限切れホールドの検索に失敗: %w", dbErr)
		}
		logger.Warn("DB検索エラー、期限インデックスの候補のみで続行", zap.Error(dbErr))
	}

	for _, id := range append(indexIDs, dbIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// sweepChart は1チャート分の期限切れホールドを解放する
// 解放対象がない場合はチャートを書き換えない（updated_at も進めない）
func (s *SweepService) sweepChart(ctx context.Context, chartID string, now time.Time) (int, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	released, err := s.seatRepo.ReleaseExpired(ctx, tx, chartID, now)
	if err != nil {
		return 0, err
	}
	if len(released) == 0 {
		// 変更なし: 書き込みを行わずロールバックで閉じる
		return 0, nil
	}

	if err := s.chartRepo.ApplyTransition(ctx, tx, chartID, seat.StatusReserved, seat.StatusAvailable, len(released), now); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.afterChartSwept(ctx, chartID, released, now)
	return len(released), nil
}

// afterChartSwept はコミット後の付随処理（インデックス掃除、キャッシュ、イベント）
func (s *SweepService) afterChartSwept(ctx context.Context, chartID string, released []*seat.Seat, now time.Time) {
	for _, se := range released {
		if s.expiryIndex != nil {
			if err := s.expiryIndex.Remove(ctx, chartID, se.ID); err != nil {
				logger.Warn("期限インデックス削除エラー", zap.String("seat_id", se.ID), zap.Error(err))
			}
		}
		if s.publisher != nil {
			sessionID := ""
			if se.SessionID != nil {
				sessionID = *se.SessionID
			}
			if err := s.publisher.PublishSeatReleased(ctx, queue.SeatReleasedEvent{
				ChartID: chartID, SeatID: se.ID, SeatLabel: se.Label,
				SessionID: sessionID, Cause: string(queue.ReleaseCauseExpired), ReleasedAt: now,
			}); err != nil {
				logger.Warn("解放イベント発行エラー", zap.Error(err))
			}
		}
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, chartID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.String("chart_id", chartID), zap.Error(err))
		}
	}
}
