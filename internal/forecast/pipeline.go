// Package forecast loads trained models and turns their raw predictions into
// classified, optionally risk-scored forecast series.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
	"github.com/smukkama/aqi-forecaster/internal/model"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

// TrainedModel is a stored artifact resolved for a (region, pollutant, unit) key
type TrainedModel struct {
	ID         string
	Region     string
	Pollutant  aqi.Pollutant
	Unit       model.Unit
	TrainedAt  time.Time
	Forecaster model.Forecaster
}

// ModelStore resolves trained models. An empty unit matches the newest
// model of any frequency. Missing keys return ErrModelNotFound.
type ModelStore interface {
	LoadModel(ctx context.Context, region string, pollutant aqi.Pollutant, unit model.Unit) (*TrainedModel, error)
}

// Horizon is either a fixed number of periods or a date window
type Horizon struct {
	Periods int
	Start   time.Time
	End     time.Time
}

// Steps requests n periods after the training cutoff
func Steps(n int) Horizon {
	return Horizon{Periods: n}
}

// Window requests every step falling inside [start, end]
func Window(start, end time.Time) Horizon {
	return Horizon{Start: start, End: end}
}

// IsWindow reports whether the horizon is date bounded
func (h Horizon) IsWindow() bool {
	return !h.End.IsZero()
}

// Request describes one forecast
type Request struct {
	Region    string
	Pollutant string
	// Frequency is optional; empty uses the stored model's native unit
	Frequency string
	// Step projects at this unit without narrowing the model lookup
	Step model.Unit
	Horizon   Horizon
	// Weight enables risk scoring when non-nil
	Weight *float64
}

// Pipeline runs forecasts against stored models
type Pipeline struct {
	store   ModelStore
	cfg     config.ForecastConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPipeline creates a new forecast pipeline
func NewPipeline(store ModelStore, cfg config.ForecastConfig, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Forecast loads the model for the request key and projects it
func (p *Pipeline) Forecast(ctx context.Context, req Request) ([]Point, error) {
	started := time.Now()

	pollutant, err := aqi.ParsePollutant(req.Pollutant)
	if err != nil {
		return nil, err
	}

	var unit model.Unit
	if req.Frequency != "" {
		unit, err = model.ParseFrequency(req.Frequency)
		if err != nil {
			return nil, err
		}
	}

	tm, err := p.store.LoadModel(ctx, req.Region, pollutant, unit)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			p.metrics.ObserveForecast(pollutant.String(), "not_found", started)
			return nil, err
		}
		p.logger.Error("Failed to load model",
			zap.String("region", req.Region),
			zap.String("pollutant", pollutant.String()),
			zap.Error(err))
		p.metrics.ObserveForecast(pollutant.String(), "failed", started)
		return nil, fmt.Errorf("%w: %v", ErrForecastFailed, err)
	}
	switch {
	case req.Step != "":
		unit = req.Step
	case unit == "":
		unit = tm.Unit
	}

	points, err := p.Project(ctx, tm.Forecaster, pollutant, unit, req.Horizon, req.Weight)
	if err != nil {
		if errors.Is(err, ErrForecastFailed) {
			p.metrics.ObserveForecast(pollutant.String(), "failed", started)
		}
		return nil, err
	}

	p.metrics.ObserveForecast(pollutant.String(), "success", started)
	return points, nil
}

// Project predicts the future steps covered by h and annotates each one.
// Only timestamps strictly after the training cutoff are ever predicted.
func (p *Pipeline) Project(ctx context.Context, m model.Forecaster, pollutant aqi.Pollutant, unit model.Unit, h Horizon, weight *float64) ([]Point, error) {
	cutoff := m.TrainingCutoff()

	count, err := p.stepCount(cutoff, unit, h)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return []Point{}, nil
	}

	timestamps := selectTimestamps(m.ExtendHorizon(count, unit), cutoff, h)
	if len(timestamps) == 0 {
		return []Point{}, nil
	}

	preds, err := safePredict(ctx, m, timestamps)
	if err == nil && len(preds) != len(timestamps) {
		err = fmt.Errorf("model returned %d predictions for %d timestamps", len(preds), len(timestamps))
	}
	if err != nil {
		p.logger.Error("Forecast failed",
			zap.String("pollutant", pollutant.String()),
			zap.String("frequency", string(unit)),
			zap.Error(err),
			zap.Stack("stack"))
		return nil, fmt.Errorf("%w: %v", ErrForecastFailed, err)
	}

	points := make([]Point, len(preds))
	for i, pred := range preds {
		pt := annotate(pollutant, timestamps[i], pred.Value, weight)
		lower, upper := pred.Lower, pred.Upper
		pt.Lower = &lower
		pt.Upper = &upper
		points[i] = pt
	}
	return points, nil
}

func (p *Pipeline) stepCount(cutoff time.Time, unit model.Unit, h Horizon) (int, error) {
	if !h.IsWindow() {
		n := h.Periods
		if n == 0 {
			n = p.cfg.DefaultPeriods
		}
		if n < 0 || (p.cfg.MaxPeriods > 0 && n > p.cfg.MaxPeriods) {
			return 0, fmt.Errorf("%w: periods must be between 1 and %d", ErrInvalidHorizon, p.cfg.MaxPeriods)
		}
		return n, nil
	}

	if !h.Start.IsZero() && h.End.Before(h.Start) {
		return 0, fmt.Errorf("%w: end date precedes start date", ErrInvalidHorizon)
	}

	days := int(math.Floor(h.End.Sub(cutoff).Hours() / 24))
	if unit == model.Daily || unit == "" {
		return days + p.cfg.SafetyBuffer, nil
	}
	steps := int(math.Ceil(float64(days) * 24 * float64(time.Hour) / float64(unit.Approx())))
	return steps + p.cfg.SafetyBuffer, nil
}

// selectTimestamps keeps strictly increasing future timestamps inside the window
func selectTimestamps(candidates []time.Time, cutoff time.Time, h Horizon) []time.Time {
	out := make([]time.Time, 0, len(candidates))
	last := cutoff
	for _, ts := range candidates {
		if !ts.After(last) {
			continue
		}
		if h.IsWindow() {
			if !h.Start.IsZero() && ts.Before(h.Start) {
				continue
			}
			if ts.After(h.End) {
				continue
			}
		}
		out = append(out, ts)
		last = ts
	}
	return out
}

func safePredict(ctx context.Context, m model.Forecaster, timestamps []time.Time) (preds []model.Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	return m.Predict(ctx, timestamps)
}
