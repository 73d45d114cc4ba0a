package application

import (
	"context"
	"errors"
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

const (
	seatLockTTL        = 10 * time.Second
	seatLockMaxRetries = 3
	seatLockRetryDelay = 100 * time.Millisecond
)

// EventPublisher は座席イベントの発行インターフェース
type EventPublisher interface {
	PublishSeatReleased(ctx context.Context, event queue.SeatReleasedEvent) error
	PublishSeatSold(ctx context.Context, event queue.SeatSoldEvent) error
}

// HoldService は座席ホールドの状態機械と単独保持者不変条件を守る
// 排他はDBの条件付きUPDATE（CAS）が最終的に保証し、分散ロックは
// 同一座席への操作をその手前で直列化して競合リトライを減らす
type HoldService struct {
	txManager   transaction.Manager
	seatRepo    seat.Repository
	chartRepo   chart.Repository
	lockManager *redisinfra.LockManager
	expiryIndex *redisinfra.ExpiryIndex
	cache       *redisinfra.AvailabilityCache
	publisher   EventPublisher
	metrics     *metrics.Metrics
	holdTTL     time.Duration
	now         func() time.Time
}

func NewHoldService(
	tm transaction.Manager,
	sr seat.Repository,
	cr chart.Repository,
	lm *redisinfra.LockManager,
	idx *redisinfra.ExpiryIndex,
	cache *redisinfra.AvailabilityCache,
	pub EventPublisher,
	m *metrics.Metrics,
	holdTTL time.Duration,
) *HoldService {
	if holdTTL <= 0 {
		holdTTL = seat.DefaultHoldTTL
	}
	return &HoldService{
		txManager:   tm,
		seatRepo:    sr,
		chartRepo:   cr,
		lockManager: lm,
		expiryIndex: idx,
		cache:       cache,
		publisher:   pub,
		metrics:     m,
		holdTTL:     holdTTL,
		now:         time.Now,
	}
}

type PlaceHoldInput struct {
	ChartID   string
	SeatID    string
	SessionID string
	TTL       time.Duration // 0以下の場合はデフォルトTTL
}

// PlaceHold は available な座席にホールドを配置する
func (s *HoldService) PlaceHold(ctx context.Context, input PlaceHoldInput) (*seat.Seat, error) {
	se, err := s.placeHold(ctx, input)
	s.recordOperation("place", err)
	return se, err
}

func (s *HoldService) placeHold(ctx context.Context, input PlaceHoldInput) (*seat.Seat, error) {
	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.holdTTL
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	se, err := s.seatRepo.PlaceHold(ctx, tx, input.SeatID, input.SessionID, expiresAt)
	if err != nil {
		return nil, err
	}
	if se.ChartID != input.ChartID {
		return nil, seat.ErrSeatNotFound
	}
	if err := s.chartRepo.ApplyTransition(ctx, tx, se.ChartID, seat.StatusAvailable, seat.StatusReserved, 1, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.afterHoldChanged(ctx, se)
	if s.metrics != nil {
		s.metrics.ActiveHolds.Inc()
	}
	return se, nil
}

type ExtendHoldInput struct {
	ChartID   string
	SeatID    string
	SessionID string
	TTL       time.Duration
}

// ExtendHold は同一セッションが保持するホールドの期限を延長する
func (s *HoldService) ExtendHold(ctx context.Context, input ExtendHoldInput) (*seat.Seat, error) {
	se, err := s.extendHold(ctx, input)
	s.recordOperation("extend", err)
	return se, err
}

func (s *HoldService) extendHold(ctx context.Context, input ExtendHoldInput) (*seat.Seat, error) {
	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.holdTTL
	}
	expiresAt := s.now().Add(ttl)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	se, err := s.seatRepo.ExtendHold(ctx, tx, input.SeatID, input.SessionID, expiresAt)
	if err != nil {
		return nil, err
	}
	if se.ChartID != input.ChartID {
		return nil, seat.ErrSeatNotFound
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.afterHoldChanged(ctx, se)
	return se, nil
}

type ReleaseHoldInput struct {
	ChartID   string
	SeatID    string
	SessionID string
	Force     bool // 管理者による強制解放
}

// ReleaseHold はホールドを解放して座席を販売可能に戻す
func (s *HoldService) ReleaseHold(ctx context.Context, input ReleaseHoldInput) (*seat.Seat, error) {
	se, err := s.releaseHold(ctx, input)
	s.recordOperation("release", err)
	return se, err
}

func (s *HoldService) releaseHold(ctx context.Context, input ReleaseHoldInput) (*seat.Seat, error) {
	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	se, err := s.seatRepo.Release(ctx, tx, input.SeatID, input.SessionID, input.Force)
	if err != nil {
		return nil, err
	}
	if se.ChartID != input.ChartID {
		return nil, seat.ErrSeatNotFound
	}
	if err := s.chartRepo.ApplyTransition(ctx, tx, se.ChartID, seat.StatusReserved, seat.StatusAvailable, 1, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	cause := queue.ReleaseCauseSession
	if input.Force {
		cause = queue.ReleaseCauseAdmin
		logger.Warn("管理者によるホールド強制解放",
			zap.String("chart_id", se.ChartID),
			zap.String("seat_id", se.ID),
			zap.String("seat_label", se.Label),
		)
	}

	s.afterHoldCleared(ctx, se)
	if s.metrics != nil {
		s.metrics.ActiveHolds.Dec()
	}
	s.publishReleased(ctx, se, input.SessionID, cause, now)
	return se, nil
}

type CommitHoldInput struct {
	ChartID   string
	SeatID    string
	SessionID string
}

// CommitHold はホールドを販売確定する
// 期限切れの検査はスイーパーに頼らず確定操作自身が行う
func (s *HoldService) CommitHold(ctx context.Context, input CommitHoldInput) (*seat.Seat, error) {
	se, err := s.commitHold(ctx, input)
	s.recordOperation("commit", err)
	return se, err
}

func (s *HoldService) commitHold(ctx context.Context, input CommitHoldInput) (*seat.Seat, error) {
	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	se, err := s.seatRepo.Commit(ctx, tx, input.SeatID, input.SessionID, now)
	if err != nil {
		return nil, err
	}
	if se.ChartID != input.ChartID {
		return nil, seat.ErrSeatNotFound
	}
	if err := s.chartRepo.ApplyTransition(ctx, tx, se.ChartID, seat.StatusReserved, seat.StatusSold, 1, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.afterHoldCleared(ctx, se)
	if s.metrics != nil {
		s.metrics.ActiveHolds.Dec()
	}
	if s.publisher != nil {
		if pubErr := s.publisher.PublishSeatSold(ctx, queue.SeatSoldEvent{
			ChartID: se.ChartID, SeatID: se.ID, SeatLabel: se.Label,
			SessionID: input.SessionID, SoldAt: now,
		}); pubErr != nil {
			logger.Warn("販売確定イベント発行エラー", zap.Error(pubErr))
		}
	}
	return se, nil
}

type BlockSeatInput struct {
	ChartID string
	SeatID  string
}

// BlockSeat は座席を管理者の販売停止状態にする
// available な座席のみ停止できる（ホールド・販売済みは対象外）
func (s *HoldService) BlockSeat(ctx context.Context, input BlockSeatInput) (*seat.Seat, error) {
	se, err := s.blockSeat(ctx, input)
	s.recordOperation("block", err)
	return se, err
}

func (s *HoldService) blockSeat(ctx context.Context, input BlockSeatInput) (*seat.Seat, error) {
	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	se, err := s.seatRepo.Block(ctx, tx, input.SeatID)
	if err != nil {
		return nil, err
	}
	if se.ChartID != input.ChartID {
		return nil, seat.ErrSeatNotFound
	}
	if err := s.chartRepo.ApplyTransition(ctx, tx, se.ChartID, seat.StatusAvailable, seat.StatusBlocked, 1, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Warn("管理者による座席の販売停止",
		zap.String("chart_id", se.ChartID),
		zap.String("seat_id", se.ID),
		zap.String("seat_label", se.Label),
	)
	s.invalidateCache(ctx, se.ChartID)
	return se, nil
}

// UnblockSeat は販売停止を解除して座席を販売可能に戻す
func (s *HoldService) UnblockSeat(ctx context.Context, input BlockSeatInput) (*seat.Seat, error) {
	se, err := s.unblockSeat(ctx, input)
	s.recordOperation("unblock", err)
	return se, err
}

func (s *HoldService) unblockSeat(ctx context.Context, input BlockSeatInput) (*seat.Seat, error) {
	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	se, err := s.seatRepo.Unblock(ctx, tx, input.SeatID)
	if err != nil {
		return nil, err
	}
	if se.ChartID != input.ChartID {
		return nil, seat.ErrSeatNotFound
	}
	if err := s.chartRepo.ApplyTransition(ctx, tx, se.ChartID, seat.StatusBlocked, seat.StatusAvailable, 1, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("座席の販売停止を解除",
		zap.String("chart_id", se.ChartID),
		zap.String("seat_id", se.ID),
		zap.String("seat_label", se.Label),
	)
	s.invalidateCache(ctx, se.ChartID)
	return se, nil
}

// GetSeat はIDから座席を取得する
func (s *HoldService) GetSeat(ctx context.Context, seatID string) (*seat.Seat, error) {
	return s.seatRepo.GetByID(ctx, seatID)
}

// lockSeat は座席単位の分散ロックを取得し、解放関数を返す
func (s *HoldService) lockSeat(ctx context.Context, seatID string) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}
	start := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, "seat:"+seatID, seatLockTTL, seatLockMaxRetries, seatLockRetryDelay)
	s.recordLock("acquire", start, err)
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return nil, seat.ErrConcurrentModification
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	return func() {
		releaseStart := time.Now()
		releaseErr := lock.Release(ctx)
		s.recordLock("release", releaseStart, releaseErr)
		if releaseErr != nil {
			logger.Warn("ロック解放エラー", zap.String("seat_id", seatID), zap.Error(releaseErr))
		}
	}, nil
}

// afterHoldChanged はホールド配置・延長後の付随処理（期限インデックス、キャッシュ）
func (s *HoldService) afterHoldChanged(ctx context.Context, se *seat.Seat) {
	if s.expiryIndex != nil && se.HoldExpiresAt != nil {
		if err := s.expiryIndex.Add(ctx, se.ChartID, se.ID, *se.HoldExpiresAt); err != nil {
			logger.Warn("期限インデックス更新エラー", zap.String("seat_id", se.ID), zap.Error(err))
		}
	}
	s.invalidateCache(ctx, se.ChartID)
}

// afterHoldCleared はホールド解放・確定後の付随処理
func (s *HoldService) afterHoldCleared(ctx context.Context, se *seat.Seat) {
	if s.expiryIndex != nil {
		if err := s.expiryIndex.Remove(ctx, se.ChartID, se.ID); err != nil {
			logger.Warn("期限インデックス削除エラー", zap.String("seat_id", se.ID), zap.Error(err))
		}
	}
	s.invalidateCache(ctx, se.ChartID)
}

func (s *HoldService) invalidateCache(ctx context.Context, chartID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, chartID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("chart_id", chartID), zap.Error(err))
	}
}

func (s *HoldService) publishReleased(ctx context.Context, se *seat.Seat, sessionID string, cause queue.ReleaseCause, releasedAt time.Time) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishSeatReleased(ctx, queue.SeatReleasedEvent{
		ChartID: se.ChartID, SeatID: se.ID, SeatLabel: se.Label,
		SessionID: sessionID, Cause: string(cause), ReleasedAt: releasedAt,
	})
	if err != nil {
		logger.Warn("解放イベント発行エラー", zap.Error(err))
	}
}

func (s *HoldService) recordOperation(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.HoldOperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

func (s *HoldService) recordLock(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	s.metrics.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// resultLabel はエラーをメトリクスの result ラベルへ分類する
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, seat.ErrSeatUnavailable), errors.Is(err, seat.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, seat.ErrNotHolder):
		return "not_holder"
	case errors.Is(err, seat.ErrSeatNotReserved):
		return "not_reserved"
	case errors.Is(err, seat.ErrSeatNotBlocked):
		return "not_blocked"
	case errors.Is(err, seat.ErrHoldExpired):
		return "expired"
	case errors.Is(err, seat.ErrSeatNotFound):
		return "not_found"
	default:
		return "error"
	}
}
