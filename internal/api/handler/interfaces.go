package handler

import (
	"context"

	"github.com/sanosuguru/go-seat-hold-engine/internal/application"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/chart"
	"github.com/sanosuguru/go-seat-hold-engine/internal/domain/seat"
)

// ChartServiceInterface はチャートサービスのインターフェース
type ChartServiceInterface interface {
	CreateChart(ctx context.Context, input application.CreateChartInput) (*chart.Chart, error)
	GetChart(ctx context.Context, id string) (*chart.Chart, error)
	GetAvailability(ctx context.Context, chartID string) (chart.StatusCounts, error)
	RemoveTable(ctx context.Context, input application.RemoveTableInput) (int, error)
	DeleteChart(ctx context.Context, id string) error
}

// HoldServiceInterface はホールドサービスのインターフェース
type HoldServiceInterface interface {
	PlaceHold(ctx context.Context, input application.PlaceHoldInput) (*seat.Seat, error)
	ExtendHold(ctx context.Context, input application.ExtendHoldInput) (*seat.Seat, error)
	ReleaseHold(ctx context.Context, input application.ReleaseHoldInput) (*seat.Seat, error)
	CommitHold(ctx context.Context, input application.CommitHoldInput) (*seat.Seat, error)
	BlockSeat(ctx context.Context, input application.BlockSeatInput) (*seat.Seat, error)
	UnblockSeat(ctx context.Context, input application.BlockSeatInput) (*seat.Seat, error)
	GetSeat(ctx context.Context, seatID string) (*seat.Seat, error)
}

// SweepServiceInterface はスイープサービスのインターフェース
type SweepServiceInterface interface {
	SweepExpiredHolds(ctx context.Context) (application.SweepResult, error)
}
