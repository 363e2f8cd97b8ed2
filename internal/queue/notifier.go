package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/protocol"
)

// Publisher sends a keyed message to a topic
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaNotifier queues alert e-mails for the notification service
type KafkaNotifier struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewKafkaNotifier creates a new Kafka-backed notifier
func NewKafkaNotifier(p Publisher, logger *zap.Logger) *KafkaNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{publisher: p, logger: logger}
}

// Notify publishes the message keyed by recipient
func (n *KafkaNotifier) Notify(ctx context.Context, email, subject, body string) error {
	data, err := protocol.EncodeAlertNotification(protocol.NewAlertNotification(email, subject, body))
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	if err := n.publisher.Publish(ctx, email, data); err != nil {
		return err
	}

	n.logger.Debug("Queued alert notification", zap.String("email", email), zap.String("subject", subject))
	return nil
}
