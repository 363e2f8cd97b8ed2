package aggregation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
)

// Forecaster runs a single-pollutant forecast
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) ([]forecast.Point, error)
}

// Aggregator combines per-pollutant forecasts into one pollution timeline
type Aggregator struct {
	forecaster     Forecaster
	representative aqi.Pollutant
	constituents   []aqi.Pollutant
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// NewAggregator creates a new aggregator. The averaged value is classified
// with the representative pollutant's thresholds.
func NewAggregator(f Forecaster, representative string, logger *zap.Logger, m *metrics.Metrics) (*Aggregator, error) {
	rep, err := aqi.ParsePollutant(representative)
	if err != nil {
		return nil, fmt.Errorf("invalid representative pollutant: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		forecaster:     f,
		representative: rep,
		constituents:   aqi.Constituents,
		logger:         logger,
		metrics:        m,
	}, nil
}

// Aggregate forecasts every constituent pollutant for the request and merges
// the survivors. Failing pollutants are skipped.
func (a *Aggregator) Aggregate(ctx context.Context, req forecast.Request) ([]forecast.Point, error) {
	var (
		series [][]forecast.Point
		errs   *multierror.Error
	)

	for _, p := range a.constituents {
		sub := req
		sub.Pollutant = p.String()

		points, err := a.forecaster.Forecast(ctx, sub)
		if err != nil {
			a.logger.Warn("Skipping pollutant in aggregate",
				zap.String("region", req.Region),
				zap.String("pollutant", p.String()),
				zap.Error(err))
			a.metrics.ConstituentFailed(p.String())
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		series = append(series, points)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %v", forecast.ErrNoForecastAvailable, errs.ErrorOrNil())
	}

	return Merge(series, a.representative), nil
}

type bucket struct {
	valueSum  float64
	count     int
	riskSum   float64
	riskCount int
}

// Merge averages points sharing a timestamp. Each timestamp present in at
// least one series appears once in the result, in chronological order.
func Merge(series [][]forecast.Point, representative aqi.Pollutant) []forecast.Point {
	buckets := make(map[time.Time]*bucket)
	var order []time.Time

	for _, points := range series {
		for _, pt := range points {
			key := pt.Timestamp.UTC()
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
				order = append(order, key)
			}
			b.valueSum += pt.Value
			b.count++
			if pt.RiskScore != nil {
				b.riskSum += float64(*pt.RiskScore)
				b.riskCount++
			}
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	merged := make([]forecast.Point, 0, len(order))
	for _, ts := range order {
		b := buckets[ts]
		value := b.valueSum / float64(b.count)
		category := aqi.ClassifyPollutant(representative, value)

		pt := forecast.Point{
			Timestamp: ts,
			Value:     value,
			Category:  category,
			Label:     aqi.FrontendLabel(category),
		}
		if b.riskCount > 0 {
			score := int(math.RoundToEven(b.riskSum / float64(b.riskCount)))
			pt.RiskScore = &score
		}
		merged = append(merged, pt)
	}
	return merged
}
