package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-hold-engine/internal/api"
	"github.com/sanosuguru/go-seat-hold-engine/internal/api/handler"
	apimiddleware "github.com/sanosuguru/go-seat-hold-engine/internal/api/middleware"
	"github.com/sanosuguru/go-seat-hold-engine/internal/application"
	"github.com/sanosuguru/go-seat-hold-engine/internal/config"
	"github.com/sanosuguru/go-seat-hold-engine/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-seat-hold-engine/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-hold-engine/internal/queue"
	"github.com/sanosuguru/go-seat-hold-engine/internal/worker"
)

func main() {
	// .env があれば読み込む（本番では環境変数を直接設定）
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Set(logger.NewLogger(os.Getenv("APP_ENV")))
	defer logger.Sync()

	m := metrics.Init()

	// PostgreSQL 接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続エラー", zap.Error(err))
	}
	defer db.Close()

	if migrationsPath := os.Getenv("MIGRATIONS_PATH"); migrationsPath != "" {
		if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
			logger.Fatal("マイグレーションエラー", zap.Error(err))
		}
	}

	// Redis 接続
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisinfra.Ping(ctx, redisClient); err != nil {
			logger.Fatal("Redis接続エラー", zap.Error(err))
		}
		cancel()
	}

	lockManager := redisinfra.NewLockManager(redisClient)
	expiryIndex := redisinfra.NewExpiryIndex(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)

	// イベント発行（AMQP_URL 未設定時は無効）
	var publisher application.EventPublisher
	if cfg.AMQP.URL != "" {
		p, err := queue.NewPublisher(cfg.AMQP.URL)
		if err != nil {
			logger.Fatal("ブローカー接続エラー", zap.Error(err))
		}
		defer p.Close()
		publisher = p
	}

	// リポジトリとサービス
	txManager := postgres.NewTxManager(db)
	chartRepo := postgres.NewChartRepository(db)
	seatRepo := postgres.NewSeatRepository(db)

	chartService := application.NewChartService(txManager, chartRepo, seatRepo, availabilityCache)
	holdService := application.NewHoldService(txManager, seatRepo, chartRepo, lockManager, expiryIndex, availabilityCache, publisher, m, cfg.Hold.TTL)
	sweepService := application.NewSweepService(txManager, chartRepo, seatRepo, expiryIndex, availabilityCache, publisher, m)

	// 回収スイーパー
	sweeper := worker.NewReclamationSweeper(sweepService, cfg.Hold.SweepInterval)
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()
	go sweeper.Start(sweeperCtx)

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	apimiddleware.SetupMiddleware(e)
	e.Use(apimiddleware.PrometheusMiddleware(m))

	chartHandler := handler.NewChartHandler(chartService)
	holdHandler := handler.NewHoldHandler(holdService)
	sweepHandler := handler.NewSweepHandler(sweepService)
	healthHandler := handler.NewHealthHandler()

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	v1.POST("/charts", chartHandler.Create)
	v1.GET("/charts/:id", chartHandler.GetByID)
	v1.DELETE("/charts/:id", chartHandler.Delete)
	v1.GET("/charts/:id/availability", chartHandler.GetAvailability)
	v1.DELETE("/charts/:chartID/tables", chartHandler.RemoveTable)

	v1.GET("/charts/:chartID/seats/:seatID", holdHandler.GetSeat)
	v1.POST("/charts/:chartID/seats/:seatID/hold", holdHandler.Place)
	v1.POST("/charts/:chartID/seats/:seatID/extend", holdHandler.Extend)
	v1.POST("/charts/:chartID/seats/:seatID/release", holdHandler.Release)
	v1.POST("/charts/:chartID/seats/:seatID/commit", holdHandler.Commit)
	v1.POST("/charts/:chartID/seats/:seatID/block", holdHandler.Block)
	v1.POST("/charts/:chartID/seats/:seatID/unblock", holdHandler.Unblock)

	v1.POST("/admin/sweep", sweepHandler.Trigger)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), apimiddleware.MetricsBasicAuth(apimiddleware.LoadMetricsConfig()))

	// サーバー起動
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// スイーパーを先に止めてからHTTPを閉じる
	sweeperCancel()
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
