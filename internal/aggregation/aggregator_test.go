package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
)

type fakeForecaster struct {
	series   map[string][]forecast.Point
	failures map[string]error
	requests []forecast.Request
}

func (f *fakeForecaster) Forecast(_ context.Context, req forecast.Request) ([]forecast.Point, error) {
	f.requests = append(f.requests, req)
	if err, ok := f.failures[req.Pollutant]; ok {
		return nil, err
	}
	if pts, ok := f.series[req.Pollutant]; ok {
		return pts, nil
	}
	return nil, forecast.ErrModelNotFound
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func pt(d int, value float64, score *int) forecast.Point {
	return forecast.Point{Timestamp: day(d), Value: value, RiskScore: score}
}

func intp(v int) *int { return &v }

func TestMerge_AveragesOnlySurvivorsPerTimestamp(t *testing.T) {
	series := [][]forecast.Point{
		{pt(1, 10, intp(1)), pt(2, 30, intp(2))},
		{pt(1, 30, intp(2)), pt(3, 130, intp(4))},
	}

	merged := Merge(series, aqi.NO2)
	require.Len(t, merged, 3)

	assert.Equal(t, day(1), merged[0].Timestamp)
	assert.InDelta(t, 20.0, merged[0].Value, 1e-9)
	assert.Equal(t, aqi.CategoryGood, merged[0].Category)
	assert.Equal(t, 2, *merged[0].RiskScore) // 1.5 rounds half to even

	assert.Equal(t, day(2), merged[1].Timestamp)
	assert.InDelta(t, 30.0, merged[1].Value, 1e-9)
	assert.Equal(t, aqi.CategoryModerate, merged[1].Category)
	assert.Equal(t, "moderate", merged[1].Label)

	assert.Equal(t, day(3), merged[2].Timestamp)
	assert.Equal(t, aqi.CategoryVeryUnhealthy, merged[2].Category)
	assert.Equal(t, 4, *merged[2].RiskScore)
}

func TestMerge_NoRiskScores(t *testing.T) {
	merged := Merge([][]forecast.Point{{pt(1, 10, nil)}}, aqi.NO2)
	require.Len(t, merged, 1)
	assert.Nil(t, merged[0].RiskScore)
}

func TestAggregate_SkipsFailingPollutant(t *testing.T) {
	f := &fakeForecaster{
		series: map[string][]forecast.Point{
			"NO2": {pt(1, 10, nil), pt(2, 50, nil)},
			"O3":  {pt(1, 30, nil), pt(2, 70, nil)},
		},
		failures: map[string]error{
			"SO2": forecast.ErrForecastFailed,
		},
	}
	a, err := NewAggregator(f, "NO2", zap.NewNop(), nil)
	require.NoError(t, err)
	a.constituents = []aqi.Pollutant{aqi.NO2, aqi.O3, aqi.SO2}

	merged, err := a.Aggregate(context.Background(), forecast.Request{Region: "Delhi", Pollutant: "POLLUTION", Horizon: forecast.Steps(2)})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.InDelta(t, 20.0, merged[0].Value, 1e-9)
	assert.InDelta(t, 60.0, merged[1].Value, 1e-9)
	assert.Equal(t, aqi.CategoryUnhealthySensitive, merged[1].Category)

	require.Len(t, f.requests, 3)
	for _, r := range f.requests {
		assert.Equal(t, "Delhi", r.Region)
		assert.Equal(t, 2, r.Horizon.Periods)
	}
}

func TestAggregate_AllFail(t *testing.T) {
	f := &fakeForecaster{failures: map[string]error{"NO2": errors.New("boom")}}
	a, err := NewAggregator(f, "NO2", zap.NewNop(), nil)
	require.NoError(t, err)

	_, err = a.Aggregate(context.Background(), forecast.Request{Region: "Nowhere"})
	require.Error(t, err)
	assert.ErrorIs(t, err, forecast.ErrNoForecastAvailable)
	assert.True(t, forecast.IsNotFound(err))
	assert.Contains(t, err.Error(), "NO2: boom")
	assert.Len(t, f.requests, len(aqi.Constituents))
}

func TestNewAggregator_InvalidRepresentative(t *testing.T) {
	_, err := NewAggregator(&fakeForecaster{}, "PM10", nil, nil)
	assert.ErrorIs(t, err, aqi.ErrInvalidPollutant)
}
