package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aggregation"
	"github.com/smukkama/aqi-forecaster/internal/alerting"
	"github.com/smukkama/aqi-forecaster/internal/api"
	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/insights"
	"github.com/smukkama/aqi-forecaster/internal/logger"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
	"github.com/smukkama/aqi-forecaster/internal/notification"
	"github.com/smukkama/aqi-forecaster/internal/tips"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("Starting AQI API server...")

	if cfg.Auth.JWTSecret == "" {
		zl.Fatal("JWT_SECRET is required")
	}

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString(), zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		zl.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zl.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	zl.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	m := metrics.New(metrics.Registry)

	pipeline := forecast.NewPipeline(db, cfg.Forecast, zl.Named("forecast"), m)
	aggregator, err := aggregation.NewAggregator(pipeline, cfg.Forecast.RepresentativePollutant, zl.Named("aggregation"), m)
	if err != nil {
		zl.Fatal("Invalid aggregation config", zap.Error(err))
	}

	notifier, closeNotifier, err := notification.FromConfig(cfg, zl.Named("notification"))
	if err != nil {
		zl.Fatal("Failed to create notifier", zap.Error(err))
	}
	defer closeNotifier()

	activeAlerts := alerting.NewActiveAlerts(redisClient, cfg.Alerting.ActiveTTL)
	evaluator := alerting.NewEvaluator(db, pipeline, notifier, activeAlerts, cfg.Alerting, zl.Named("alerting"), m).
		WithAggregator(aggregator)

	var generator tips.Generator = tips.Static{}
	if cfg.Tips.GeminiAPIKey != "" {
		gemini, err := tips.NewGeminiGenerator(ctx, cfg.Tips.GeminiAPIKey, cfg.Tips.GeminiModel, zl.Named("tips"))
		if err != nil {
			zl.Fatal("Failed to create tip generator", zap.Error(err))
		}
		defer gemini.Close()
		generator = gemini
	} else {
		zl.Warn("GEMINI_API_KEY not set, serving static health tips")
	}

	srv := api.NewServer(cfg.HTTP, cfg.Auth, api.Dependencies{
		Forecaster:    pipeline,
		Aggregator:    aggregator,
		Profiles:      db,
		Subscriptions: db,
		Models:        db,
		Datasets:      db,
		Insights:      insights.NewService(db, os.DirFS(cfg.Training.DatasetDir), zl.Named("insights")),
		Alerts:        evaluator,
		ActiveAlerts:  activeAlerts,
		Tips:          tips.NewGuarded(generator, cfg.Tips.Timeout, zl.Named("tips"), m),
	}, zl.Named("api"), m)

	if err := srv.Start(); err != nil {
		zl.Fatal("Failed to start HTTP server", zap.Error(err))
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zl.Info("Shutting down gracefully...")
	if err := srv.Stop(10 * time.Second); err != nil {
		zl.Error("HTTP server shutdown failed", zap.Error(err))
	}
}
