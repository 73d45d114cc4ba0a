package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/chart"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-seat-hold-engine/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/logger"
)

const availabilityCacheTTL = 30 * time.Second

// ChartService はシーティングチャートの作成・参照・構造編集を担う
type ChartService struct {
	txManager transaction.Manager
	chartRepo chart.Repository
	seatRepo  seat.Repository
	cache     *redisinfra.AvailabilityCache
}

func NewChartService(tm transaction.Manager, cr chart.Repository, sr seat.Repository, cache *redisinfra.AvailabilityCache) *ChartService {
	return &ChartService{txManager: tm, chartRepo: cr, seatRepo: sr, cache: cache}
}

type CreateChartInput struct {
	Name     string
	Sections []SectionInput
}

type SectionInput struct {
	Name   string
	Tables []TableInput
}

type TableInput struct {
	Label      string
	SeatLabels []string
}

// CreateChart はレイアウト定義からチャートと配下の座席を作成する
// 全座席は available で初期化される
func (s *ChartService) CreateChart(ctx context.Context, input CreateChartInput) (*chart.Chart, error) {
	if len(input.Sections) == 0 {
		return nil, chart.ErrSectionsRequired
	}

	c := chart.NewChart(input.Name)
	c.ID = uuid.NewString()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var seats []*seat.Seat
	for secIdx, secInput := range input.Sections {
		sec := chart.Section{Index: secIdx, Name: secInput.Name}
		for tblIdx, tblInput := range secInput.Tables {
			if len(tblInput.SeatLabels) == 0 {
				return nil, chart.ErrSeatLabelsRequired
			}
			tbl := chart.Table{Index: tblIdx, Label: tblInput.Label}
			for seatIdx, label := range tblInput.SeatLabels {
				se := seat.NewSeat(c.ID, secIdx, tblIdx, seatIdx, label)
				se.ID = uuid.NewString()
				if err := se.Validate(); err != nil {
					return nil, err
				}
				tbl.Seats = append(tbl.Seats, se)
				seats = append(seats, se)
			}
			sec.Tables = append(sec.Tables, tbl)
		}
		c.Sections = append(c.Sections, sec)
	}
	c.AvailableCount = len(seats)

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.chartRepo.Create(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := s.seatRepo.CreateBulk(ctx, tx, seats); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("チャート作成",
		zap.String("chart_id", c.ID),
		zap.String("name", c.Name),
		zap.Int("seats", len(seats)),
	)
	return c, nil
}

// GetChart はチャートを座席ツリー込みで取得する
func (s *ChartService) GetChart(ctx context.Context, id string) (*chart.Chart, error) {
	return s.chartRepo.GetByID(ctx, id)
}

// GetAvailability はステータス別サマリーを返す（キャッシュ優先）
func (s *ChartService) GetAvailability(ctx context.Context, chartID string) (chart.StatusCounts, error) {
	if s.cache != nil {
		counts, err := s.cache.GetCounts(ctx, chartID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("chart_id", chartID))
			return counts, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	counts, err := s.chartRepo.GetCounts(ctx, chartID)
	if err != nil {
		return chart.StatusCounts{}, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetCounts(ctx, chartID, counts, availabilityCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return counts, nil
}

type RemoveTableInput struct {
	ChartID      string
	SectionIndex int
	TableIndex   int
}

// RemoveTable はテーブルとその座席を削除する構造編集
// ホールド中の座席が含まれる場合は拒否する（インフライトのホールドとの競合防止）
func (s *ChartService) RemoveTable(ctx context.Context, input RemoveTableInput) (int, error) {
	// トランザクションを開く前の事前検査（リポジトリ側でも行ロック付きで再検査される）
	reserved, err := s.seatRepo.CountReservedInTable(ctx, input.ChartID, input.SectionIndex, input.TableIndex)
	if err != nil {
		return 0, err
	}
	if reserved > 0 {
		return 0, chart.ErrSeatsStillReserved
	}

	now := time.Now()
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	removed, err := s.chartRepo.RemoveTable(ctx, tx, input.ChartID, input.SectionIndex, input.TableIndex, now)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("コミットに失敗: %w", err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Invalidate(ctx, input.ChartID); cacheErr != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(cacheErr))
		}
	}
	logger.Info("テーブル削除",
		zap.String("chart_id", input.ChartID),
		zap.Int("section_index", input.SectionIndex),
		zap.Int("table_index", input.TableIndex),
		zap.Int("seats_removed", removed),
	)
	return removed, nil
}

// DeleteChart はチャートと配下の座席を破棄する
func (s *ChartService) DeleteChart(ctx context.Context, id string) error {
	if err := s.chartRepo.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
	return nil
}
