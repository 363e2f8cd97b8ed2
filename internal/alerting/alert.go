// Package alerting evaluates stored subscriptions against short-range
// forecasts and tracks the alerts they trigger.
package alerting

import (
	"fmt"
	"time"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
)

// TriggeredAlert is the first forecast point of a subscription that reached
// its threshold category
type TriggeredAlert struct {
	ID             string       `json:"id"`
	SubscriptionID string       `json:"subscription_id"`
	UserID         string       `json:"user_id"`
	Email          string       `json:"email"`
	Region         string       `json:"region"`
	Pollutant      string       `json:"pollutant"`
	Date           time.Time    `json:"date"`
	Value          float64      `json:"value"`
	Category       aqi.Category `json:"category"`
	Threshold      aqi.Category `json:"threshold"`
	Message        string       `json:"message"`
	TriggeredAt    time.Time    `json:"triggered_at"`
}

// Subject is the notification subject line
func (a TriggeredAlert) Subject() string {
	return fmt.Sprintf("[AQI Alert] %s forecast for %s", a.Pollutant, a.Region)
}

func alertMessage(region, pollutant string, date time.Time, value float64, category, threshold aqi.Category) string {
	return fmt.Sprintf(
		"Region: %s\nPollutant: %s\nForecasted Date: %s\nPredicted Value: %.2f → %s\nThreshold set: %s",
		region, pollutant, date.Format("2006-01-02"), value, category, threshold)
}

// FirstBreach returns the earliest point whose category reaches threshold
func FirstBreach(points []forecast.Point, threshold aqi.Category) (forecast.Point, bool) {
	for _, p := range points {
		if aqi.IsThresholdExceeded(p.Category, threshold) {
			return p, true
		}
	}
	return forecast.Point{}, false
}
