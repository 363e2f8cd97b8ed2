package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aggregation"
	"github.com/smukkama/aqi-forecaster/internal/alerting"
	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/logger"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
	"github.com/smukkama/aqi-forecaster/internal/notification"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

// One evaluation pass over every subscription, meant to be run by an
// external scheduler.
func main() {
	dryRun := flag.Bool("dry-run", false, "evaluate without sending notifications or updating dashboard alerts")
	flag.Parse()

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

	zl.Info("Starting alert evaluation...", zap.Bool("dry_run", *dryRun))

	db, err := database.Connect(cfg.Database.ConnectionString(), zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	notifier, closeNotifier, err := notification.FromConfig(cfg, zl.Named("notification"))
	if err != nil {
		zl.Fatal("Failed to create notifier", zap.Error(err))
	}
	defer closeNotifier()

	m := metrics.New(metrics.Registry)
	pipeline := forecast.NewPipeline(db, cfg.Forecast, zl.Named("forecast"), m)
	aggregator, err := aggregation.NewAggregator(pipeline, cfg.Forecast.RepresentativePollutant, zl.Named("aggregation"), m)
	if err != nil {
		zl.Fatal("Invalid aggregation config", zap.Error(err))
	}

	evaluator := alerting.NewEvaluator(db, pipeline, notifier,
		newRecorder(*dryRun, redisClient, cfg.Alerting.ActiveTTL),
		cfg.Alerting, zl.Named("alerting"), m).
		WithAggregator(aggregator)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	alerts, err := evaluator.EvaluateAll(ctx, !*dryRun)
	if err != nil {
		zl.Fatal("Alert evaluation failed", zap.Error(err))
	}

	zl.Info("Alert evaluation complete", zap.Int("triggered", len(alerts)))
}

// newRecorder returns nil on dry runs so no dashboard state is written
func newRecorder(dryRun bool, client *redis.Client, ttl time.Duration) alerting.Recorder {
	if dryRun {
		return nil
	}
	return alerting.NewActiveAlerts(client, ttl)
}
