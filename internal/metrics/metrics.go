// Package metrics provides Prometheus metrics for the forecast and alerting services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aqi"

// Registry is the process-wide registry exposed on /metrics
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	ForecastsTotal       *prometheus.CounterVec
	ForecastDuration     *prometheus.HistogramVec
	ConstituentFailures  *prometheus.CounterVec
	SubscriptionsChecked prometheus.Counter
	SubscriptionsSkipped *prometheus.CounterVec
	AlertsTriggered      *prometheus.CounterVec
	NotificationsTotal   *prometheus.CounterVec
	TipFallbacksTotal    *prometheus.CounterVec
	ModelsTrainedTotal   *prometheus.CounterVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ForecastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "forecast",
				Name:      "requests_total",
				Help:      "Total number of forecast pipeline runs",
			},
			[]string{"pollutant", "status"}, // status: success, not_found, failed
		),
		ForecastDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "forecast",
				Name:      "duration_seconds",
				Help:      "Duration of forecast pipeline runs including model load",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pollutant"},
		),
		ConstituentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "aggregate",
				Name:      "constituent_failures_total",
				Help:      "Constituent pollutant forecasts skipped during aggregation",
			},
			[]string{"pollutant"},
		),
		SubscriptionsChecked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerting",
				Name:      "subscriptions_checked_total",
				Help:      "Subscriptions evaluated",
			},
		),
		SubscriptionsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerting",
				Name:      "subscriptions_skipped_total",
				Help:      "Subscriptions skipped during evaluation",
			},
			[]string{"reason"},
		),
		AlertsTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerting",
				Name:      "alerts_triggered_total",
				Help:      "Alerts triggered by subscription evaluation",
			},
			[]string{"pollutant", "category"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerting",
				Name:      "notifications_total",
				Help:      "Alert notifications dispatched",
			},
			[]string{"status"},
		),
		TipFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tips",
				Name:      "fallbacks_total",
				Help:      "Health tips replaced by the static fallback",
			},
			[]string{"reason"}, // reason: timeout, error
		),
		ModelsTrainedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "training",
				Name:      "models_total",
				Help:      "Models trained and registered",
			},
			[]string{"pollutant", "frequency"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(
		m.ForecastsTotal,
		m.ForecastDuration,
		m.ConstituentFailures,
		m.SubscriptionsChecked,
		m.SubscriptionsSkipped,
		m.AlertsTriggered,
		m.NotificationsTotal,
		m.TipFallbacksTotal,
		m.ModelsTrainedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveForecast records one pipeline run
func (m *Metrics) ObserveForecast(pollutant, status string, started time.Time) {
	if m == nil {
		return
	}
	m.ForecastsTotal.WithLabelValues(pollutant, status).Inc()
	m.ForecastDuration.WithLabelValues(pollutant).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ConstituentFailed(pollutant string) {
	if m == nil {
		return
	}
	m.ConstituentFailures.WithLabelValues(pollutant).Inc()
}

func (m *Metrics) SubscriptionChecked() {
	if m == nil {
		return
	}
	m.SubscriptionsChecked.Inc()
}

func (m *Metrics) SubscriptionSkipped(reason string) {
	if m == nil {
		return
	}
	m.SubscriptionsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) AlertTriggered(pollutant, category string) {
	if m == nil {
		return
	}
	m.AlertsTriggered.WithLabelValues(pollutant, category).Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) TipFallback(reason string) {
	if m == nil {
		return
	}
	m.TipFallbacksTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ModelTrained(pollutant, frequency string) {
	if m == nil {
		return
	}
	m.ModelsTrainedTotal.WithLabelValues(pollutant, frequency).Inc()
}

// ObserveHTTP records one HTTP request
func (m *Metrics) ObserveHTTP(route, code string, started time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}
