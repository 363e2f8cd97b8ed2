package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/queue"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

// Notifier delivers one message to an e-mail address
type Notifier interface {
	Notify(ctx context.Context, email, subject, body string) error
}

// FromConfig builds the notifier named by ALERT_NOTIFIER. The close function
// releases the Kafka producer when one was created.
func FromConfig(cfg *config.Config, logger *zap.Logger) (Notifier, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Alerting.Notifier {
	case "kafka":
		producer := queue.NewProducer(cfg.Kafka)
		logger.Info("Alerts are queued to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.TopicAlerts))
		return queue.NewKafkaNotifier(producer, logger), producer.Close, nil
	case "smtp":
		notifier := NewEmailNotifier(&cfg.SMTP, logger)
		if err := notifier.TestConnection(); err != nil {
			logger.Warn("SMTP check failed, alerts will be logged only", zap.Error(err))
		}
		return notifier, noop, nil
	case "log":
		return NewLogNotifier(logger), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown notifier: %s", cfg.Alerting.Notifier)
}
