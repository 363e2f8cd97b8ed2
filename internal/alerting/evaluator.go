package alerting

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

// SubscriptionLister lists every stored subscription with its owner's e-mail
type SubscriptionLister interface {
	ListSubscriptions(ctx context.Context) ([]database.Subscription, error)
}

// Forecaster runs the forecast pipeline for one subscription
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) ([]forecast.Point, error)
}

// Aggregator forecasts a synthetic pollutant from its constituents
type Aggregator interface {
	Aggregate(ctx context.Context, req forecast.Request) ([]forecast.Point, error)
}

// Notifier delivers one alert message to an e-mail address
type Notifier interface {
	Notify(ctx context.Context, email, subject, body string) error
}

// Recorder keeps triggered alerts for dashboards
type Recorder interface {
	Record(ctx context.Context, alert TriggeredAlert) error
}

// Evaluator checks subscriptions against their forecasts
type Evaluator struct {
	subscriptions SubscriptionLister
	forecaster    Forecaster
	aggregator    Aggregator
	notifier      Notifier
	recorder      Recorder
	cfg           config.AlertingConfig
	logger        *zap.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewEvaluator creates a new subscription evaluator. notifier and recorder may be nil.
func NewEvaluator(subs SubscriptionLister, f Forecaster, notifier Notifier, recorder Recorder, cfg config.AlertingConfig, logger *zap.Logger, m *metrics.Metrics) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		subscriptions: subs,
		forecaster:    f,
		notifier:      notifier,
		recorder:      recorder,
		cfg:           cfg,
		logger:        logger,
		metrics:       m,
		now:           time.Now,
	}
}

// WithAggregator routes subscriptions on synthetic pollutants (POLLUTION)
// through a. Without one they go to the forecaster like any other key.
func (e *Evaluator) WithAggregator(a Aggregator) *Evaluator {
	e.aggregator = a
	return e
}

// EvaluateAll forecasts every subscription and returns the alerts it
// triggered. At most one alert is produced per subscription. Failures of
// individual subscriptions are logged and skipped; only a failure to list
// subscriptions is returned.
func (e *Evaluator) EvaluateAll(ctx context.Context, sendNotifications bool) ([]TriggeredAlert, error) {
	subs, err := e.subscriptions.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	e.logger.Info("Evaluating subscriptions",
		zap.Int("count", len(subs)),
		zap.Bool("send_notifications", sendNotifications))

	alerts := []TriggeredAlert{}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return alerts, err
		}

		alert, ok := e.evaluate(ctx, sub)
		if !ok {
			continue
		}
		alerts = append(alerts, alert)

		if e.recorder != nil {
			if err := e.recorder.Record(ctx, alert); err != nil {
				e.logger.Warn("Failed to record active alert",
					zap.String("subscription_id", sub.ID),
					zap.Error(err))
			}
		}

		if sendNotifications {
			e.dispatch(ctx, alert)
		}
	}

	e.logger.Info("Subscription evaluation finished",
		zap.Int("subscriptions", len(subs)),
		zap.Int("alerts", len(alerts)))

	return alerts, nil
}

func (e *Evaluator) evaluate(ctx context.Context, sub database.Subscription) (TriggeredAlert, bool) {
	e.metrics.SubscriptionChecked()

	log := e.logger.With(
		zap.String("subscription_id", sub.ID),
		zap.String("region", sub.Region),
		zap.String("pollutant", sub.Pollutant))

	threshold, err := aqi.ParseCategory(sub.Threshold)
	if err != nil {
		log.Warn("Skipping subscription with invalid threshold", zap.Error(err))
		e.metrics.SubscriptionSkipped("invalid_threshold")
		return TriggeredAlert{}, false
	}

	req := forecast.Request{
		Region:    sub.Region,
		Pollutant: sub.Pollutant,
		Frequency: e.cfg.Frequency,
		Horizon:   forecast.Steps(e.cfg.Periods),
	}

	var points []forecast.Point
	if e.aggregator != nil && aqi.Normalize(sub.Pollutant).IsSynthetic() {
		points, err = e.aggregator.Aggregate(ctx, req)
	} else {
		points, err = e.forecaster.Forecast(ctx, req)
	}
	if err != nil {
		switch {
		case forecast.IsNotFound(err):
			log.Info("Skipping subscription without a trained model")
			e.metrics.SubscriptionSkipped("model_not_found")
		case forecast.IsBadRequest(err):
			log.Warn("Skipping invalid subscription", zap.Error(err))
			e.metrics.SubscriptionSkipped("invalid")
		default:
			log.Error("Skipping subscription after forecast failure", zap.Error(err))
			e.metrics.SubscriptionSkipped("forecast_failed")
		}
		return TriggeredAlert{}, false
	}

	point, ok := FirstBreach(points, threshold)
	if !ok {
		return TriggeredAlert{}, false
	}

	value := math.Round(point.Value*100) / 100
	alert := TriggeredAlert{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Email:          sub.Email,
		Region:         sub.Region,
		Pollutant:      sub.Pollutant,
		Date:           point.Timestamp,
		Value:          value,
		Category:       point.Category,
		Threshold:      threshold,
		Message:        alertMessage(sub.Region, sub.Pollutant, point.Timestamp, value, point.Category, threshold),
		TriggeredAt:    e.now().UTC(),
	}

	log.Info("Alert triggered",
		zap.Time("date", alert.Date),
		zap.Float64("value", alert.Value),
		zap.String("category", alert.Category.String()),
		zap.String("threshold", threshold.String()))
	e.metrics.AlertTriggered(sub.Pollutant, alert.Category.String())

	return alert, true
}

func (e *Evaluator) dispatch(ctx context.Context, alert TriggeredAlert) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, alert.Email, alert.Subject(), alert.Message); err != nil {
		e.logger.Error("Failed to send alert notification",
			zap.String("subscription_id", alert.SubscriptionID),
			zap.String("email", alert.Email),
			zap.Error(err))
		e.metrics.Notification("failed")
		return
	}
	e.metrics.Notification("sent")
}
