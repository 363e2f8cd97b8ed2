package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/logger"
	"github.com/smukkama/aqi-forecaster/internal/notification"
	"github.com/smukkama/aqi-forecaster/internal/protocol"
	"github.com/smukkama/aqi-forecaster/internal/queue"
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

	zl.Info("Starting Notification Service...")

	// Create email notifier
	notifier := notification.NewEmailNotifier(&cfg.SMTP, zl.Named("email"))

	// Test SMTP connection (optional, will skip if not configured)
	if err := notifier.TestConnection(); err != nil {
		zl.Warn("SMTP unavailable, notifications will be logged only", zap.Error(err))
	}

	// Create consumer for alert notifications
	consumer := queue.NewConsumer(cfg.Kafka, zl.Named("consumer"))
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl.Info("Notification Service is running",
		zap.String("topic", cfg.Kafka.TopicAlerts),
		zap.String("group", cfg.Kafka.GroupID))

	err = consumer.Run(ctx, func(ctx context.Context, n *protocol.AlertNotification) error {
		return notifier.Notify(ctx, n.Email, n.Subject, n.Body)
	})
	if err != nil {
		zl.Error("Consumer stopped", zap.Error(err))
	}

	zl.Info("Shutting down gracefully...")
}
