package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/model"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

// stubModel predicts values[i] for the i-th requested timestamp
type stubModel struct {
	cutoff time.Time
	values []float64
	err    error
	panics bool
	calls  [][]time.Time
}

func (s *stubModel) TrainingCutoff() time.Time { return s.cutoff }

func (s *stubModel) ExtendHorizon(count int, unit model.Unit) []time.Time {
	out := make([]time.Time, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, unit.Step(s.cutoff, i))
	}
	return out
}

func (s *stubModel) Predict(_ context.Context, timestamps []time.Time) ([]model.Prediction, error) {
	s.calls = append(s.calls, timestamps)
	if s.panics {
		panic("corrupt artifact")
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.Prediction, len(timestamps))
	for i := range timestamps {
		v := s.values[i%len(s.values)]
		out[i] = model.Prediction{Value: v, Lower: v - 1, Upper: v + 1}
	}
	return out, nil
}

type stubStore struct {
	models map[string]*TrainedModel
	err    error
}

func (s *stubStore) LoadModel(_ context.Context, region string, pollutant aqi.Pollutant, unit model.Unit) (*TrainedModel, error) {
	if s.err != nil {
		return nil, s.err
	}
	tm, ok := s.models[region+"/"+pollutant.String()]
	if !ok || (unit != "" && tm.Unit != unit) {
		return nil, ErrModelNotFound
	}
	return tm, nil
}

var cutoff = time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

func testConfig() config.ForecastConfig {
	return config.ForecastConfig{SafetyBuffer: 30, DefaultPeriods: 7, MaxPeriods: 3650, RepresentativePollutant: "NO2"}
}

func newTestPipeline(store ModelStore) *Pipeline {
	return NewPipeline(store, testConfig(), zap.NewNop(), nil)
}

func TestProject_StepsClassifiesEveryPoint(t *testing.T) {
	m := &stubModel{cutoff: cutoff, values: []float64{10, 30, 60}}
	p := newTestPipeline(nil)

	points, err := p.Project(context.Background(), m, aqi.NO2, model.Daily, Steps(3), nil)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, aqi.CategoryGood, points[0].Category)
	assert.Equal(t, aqi.CategoryModerate, points[1].Category)
	assert.Equal(t, aqi.CategoryUnhealthySensitive, points[2].Category)
	assert.Equal(t, "unhealthy-sensitive", points[2].Label)
	for i, pt := range points {
		assert.True(t, pt.Timestamp.After(cutoff))
		if i > 0 {
			assert.True(t, pt.Timestamp.After(points[i-1].Timestamp))
		}
		assert.Nil(t, pt.RiskScore)
		require.NotNil(t, pt.Lower)
		assert.Equal(t, pt.Value-1, *pt.Lower)
	}
}

func TestProject_DefaultAndInvalidPeriods(t *testing.T) {
	m := &stubModel{cutoff: cutoff, values: []float64{10}}
	p := newTestPipeline(nil)

	points, err := p.Project(context.Background(), m, aqi.NO2, model.Daily, Steps(0), nil)
	require.NoError(t, err)
	assert.Len(t, points, 7)

	_, err = p.Project(context.Background(), m, aqi.NO2, model.Daily, Steps(5000), nil)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = p.Project(context.Background(), m, aqi.NO2, model.Daily, Steps(-1), nil)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}

func TestProject_RiskTimelineWindow(t *testing.T) {
	m := &stubModel{cutoff: cutoff, values: []float64{60}}
	p := newTestPipeline(nil)
	weight := aqi.Weight(&aqi.HealthProfile{HasAsthma: true})

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC)
	points, err := p.Project(context.Background(), m, aqi.NO2, model.Daily, Window(start, end), &weight)
	require.NoError(t, err)
	require.Len(t, points, 7)

	assert.Equal(t, start, points[0].Timestamp)
	assert.Equal(t, end, points[6].Timestamp)
	for _, pt := range points {
		assert.Equal(t, aqi.CategoryUnhealthySensitive, pt.Category)
		require.NotNil(t, pt.RiskScore)
		assert.Equal(t, 3, *pt.RiskScore) // index 2 * 1.5
	}

	// only timestamps inside the window reach the model
	require.Len(t, m.calls, 1)
	assert.Len(t, m.calls[0], 7)
}

func TestProject_WindowEntirelyBeforeCutoff(t *testing.T) {
	m := &stubModel{cutoff: cutoff, values: []float64{10}}
	p := newTestPipeline(nil)

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	points, err := p.Project(context.Background(), m, aqi.NO2, model.Daily, Window(start, end), nil)
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Empty(t, m.calls)
}

func TestProject_WindowStraddlingCutoff(t *testing.T) {
	m := &stubModel{cutoff: cutoff, values: []float64{10}}
	p := newTestPipeline(nil)

	start := time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	points, err := p.Project(context.Background(), m, aqi.NO2, model.Daily, Window(start, end), nil)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), points[0].Timestamp)
}

func TestProject_InvertedWindow(t *testing.T) {
	p := newTestPipeline(nil)
	m := &stubModel{cutoff: cutoff, values: []float64{10}}

	_, err := p.Project(context.Background(), m, aqi.NO2, model.Daily,
		Window(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), nil)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}

func TestProject_MonthlyWindowCoversEnd(t *testing.T) {
	m := &stubModel{cutoff: cutoff, values: []float64{10}}
	p := newTestPipeline(nil)

	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	points, err := p.Project(context.Background(), m, aqi.NO2, model.Monthly, Window(time.Time{}, end), nil)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.False(t, points[len(points)-1].Timestamp.After(end))
	assert.True(t, points[len(points)-1].Timestamp.After(end.AddDate(0, -2, 0)))
}

func TestProject_ModelFailureDegrades(t *testing.T) {
	p := newTestPipeline(nil)

	_, err := p.Project(context.Background(), &stubModel{cutoff: cutoff, err: errors.New("boom")}, aqi.NO2, model.Daily, Steps(3), nil)
	assert.ErrorIs(t, err, ErrForecastFailed)

	_, err = p.Project(context.Background(), &stubModel{cutoff: cutoff, panics: true}, aqi.NO2, model.Daily, Steps(3), nil)
	assert.ErrorIs(t, err, ErrForecastFailed)
}

func TestForecast_ResolvesModel(t *testing.T) {
	store := &stubStore{models: map[string]*TrainedModel{
		"Delhi/O3": {Region: "Delhi", Pollutant: aqi.O3, Unit: model.Yearly, Forecaster: &stubModel{cutoff: cutoff, values: []float64{200}}},
	}}
	p := newTestPipeline(store)

	points, err := p.Forecast(context.Background(), Request{Region: "Delhi", Pollutant: "o3_conc", Horizon: Steps(2)})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, aqi.CategoryUnhealthy, points[0].Category)
	assert.Equal(t, cutoff.AddDate(1, 0, 0), points[0].Timestamp)

	_, err = p.Forecast(context.Background(), Request{Region: "Delhi", Pollutant: "O3", Frequency: "D", Horizon: Steps(2)})
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.True(t, IsNotFound(err))
}

func TestForecast_StepOverridesProjectionUnit(t *testing.T) {
	store := &stubStore{models: map[string]*TrainedModel{
		"Delhi/NO2": {Region: "Delhi", Pollutant: aqi.NO2, Unit: model.Daily, Forecaster: &stubModel{cutoff: cutoff, values: []float64{30}}},
	}}
	p := newTestPipeline(store)

	points, err := p.Forecast(context.Background(), Request{Region: "Delhi", Pollutant: "NO2", Step: model.Monthly, Horizon: Steps(12)})
	require.NoError(t, err)
	require.Len(t, points, 12)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), points[0].Timestamp)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), points[11].Timestamp)
}

func TestForecast_InvalidInput(t *testing.T) {
	p := newTestPipeline(&stubStore{})

	_, err := p.Forecast(context.Background(), Request{Region: "Delhi", Pollutant: "PM25"})
	assert.ErrorIs(t, err, ErrInvalidPollutant)
	assert.True(t, IsBadRequest(err))

	_, err = p.Forecast(context.Background(), Request{Region: "Delhi", Pollutant: "NO2", Frequency: "hourly"})
	assert.ErrorIs(t, err, ErrInvalidFrequency)
	assert.True(t, IsBadRequest(err))
}

func TestForecast_StoreFailure(t *testing.T) {
	p := newTestPipeline(&stubStore{err: errors.New("connection refused")})

	_, err := p.Forecast(context.Background(), Request{Region: "Delhi", Pollutant: "NO2"})
	assert.ErrorIs(t, err, ErrForecastFailed)
	assert.False(t, IsNotFound(err))
}

func TestPoint_Record(t *testing.T) {
	lower, upper, score := 1.234, 5.678, 4
	pt := Point{
		Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Value:     42.4567,
		Lower:     &lower,
		Upper:     &upper,
		Category:  aqi.CategoryGood,
		Label:     "good",
		RiskScore: &score,
	}

	data, err := json.Marshal(pt.Record())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"timestamp": "2024-02-01T00:00:00",
		"predicted_value": 42.46,
		"lower_bound": 1.23,
		"upper_bound": 5.68,
		"category": "Good",
		"frontend_label": "good",
		"risk_score": 4
	}`, string(data))

	data, err = json.Marshal(Point{Timestamp: pt.Timestamp, Value: 1, Category: aqi.CategoryGood, Label: "good"}.Record())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "risk_score")
	assert.NotContains(t, string(data), "lower_bound")
}
