package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// ホールド操作の総数（operation: place/extend/release/commit, result: success/conflict/not_holder/expired/error）
	HoldOperationsTotal *prometheus.CounterVec

	// スイープ処理時間
	SweepDuration prometheus.Histogram

	// スイープで解放した座席の総数
	SweepReleasedSeatsTotal prometheus.Counter

	// スイープで書き換えたチャートの総数
	SweepChartsModifiedTotal prometheus.Counter

	// スイープ中のチャート単位の失敗総数
	SweepChartFailuresTotal prometheus.Counter

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec

	// アクティブなホールド数
	ActiveHolds prometheus.Gauge
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HoldOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_hold_operations_total",
				Help: "Total number of seat hold operations",
			},
			[]string{"operation", "result"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hold_sweep_duration_seconds",
				Help:    "Time spent sweeping expired seat holds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SweepReleasedSeatsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hold_sweep_released_seats_total",
				Help: "Total number of seats released by the reclamation sweeper",
			},
		),
		SweepChartsModifiedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hold_sweep_charts_modified_total",
				Help: "Total number of seating charts rewritten by the sweeper",
			},
		),
		SweepChartFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hold_sweep_chart_failures_total",
				Help: "Total number of per-chart failures during sweeps",
			},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		ActiveHolds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_seat_holds",
				Help: "Current number of active seat holds",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HoldOperationsTotal,
		m.SweepDuration,
		m.SweepReleasedSeatsTotal,
		m.SweepChartsModifiedTotal,
		m.SweepChartFailuresTotal,
		m.DistributedLockDuration,
		m.ActiveHolds,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
