// Package model defines the forecasting capability the pipeline depends on and
// the additive seasonal-trend backend used to train and store models.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Forecaster is a trained, read-only time-series model
type Forecaster interface {
	// TrainingCutoff is the last timestamp present in the training data
	TrainingCutoff() time.Time
	// ExtendHorizon returns count timestamps strictly after the cutoff, one unit apart
	ExtendHorizon(count int, unit Unit) []time.Time
	// Predict returns one prediction per timestamp, in order
	Predict(ctx context.Context, timestamps []time.Time) ([]Prediction, error)
}

// Prediction is a point estimate with its uncertainty interval
type Prediction struct {
	Value float64
	Lower float64
	Upper float64
}

// Observation is one sample of a training series
type Observation struct {
	Time  time.Time
	Value float64
}

// ErrInsufficientData is returned when a series is too short to fit
var ErrInsufficientData = errors.New("insufficient data")

// Evaluate scores a model against held-out observations
func Evaluate(ctx context.Context, m Forecaster, holdout []Observation) (mae, rmse float64, err error) {
	if len(holdout) == 0 {
		return 0, 0, ErrInsufficientData
	}

	timestamps := make([]time.Time, len(holdout))
	for i, o := range holdout {
		timestamps[i] = o.Time
	}

	preds, err := m.Predict(ctx, timestamps)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to predict holdout: %w", err)
	}

	var absSum, sqSum float64
	for i, o := range holdout {
		diff := preds[i].Value - o.Value
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}
	n := float64(len(holdout))
	return absSum / n, math.Sqrt(sqSum / n), nil
}
