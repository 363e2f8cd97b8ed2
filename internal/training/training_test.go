package training

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/model"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

func TestReadDataset(t *testing.T) {
	csv := `time,no2_conc,o3_conc,station
2024-01-01 00:00:00,10,40,a
2024-01-01 12:00:00,20,,a
not-a-date,99,99,a
2024-01-02,30,60,b
`
	frame, err := ReadDataset(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 3, frame.Len())
	assert.Len(t, frame.Columns, 2)
	assert.Contains(t, frame.Columns, aqi.NO2)
	assert.Contains(t, frame.Columns, aqi.O3)

	no2, err := frame.Series(aqi.NO2)
	require.NoError(t, err)
	require.Len(t, no2, 3)
	assert.Equal(t, 20.0, no2[1].Value)

	o3, err := frame.Series(aqi.O3)
	require.NoError(t, err)
	assert.Len(t, o3, 2)

	_, err = frame.Series(aqi.SO2)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadDataset_MissingTime(t *testing.T) {
	_, err := ReadDataset(strings.NewReader("date,no2_conc\n2024-01-01,10\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadDataset(strings.NewReader("time,no2_conc\nbad,10\n"))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestFrame_PollutionRowMean(t *testing.T) {
	csv := `time,no2_conc,o3_conc,so2_conc
2024-01-01,10,30,
2024-01-02,,,
`
	frame, err := ReadDataset(strings.NewReader(csv))
	require.NoError(t, err)

	series, err := frame.Series(aqi.Pollution)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 20.0, series[0].Value)

	empty, err := ReadDataset(strings.NewReader("time,station\n2024-01-01,a\n"))
	require.NoError(t, err)
	_, err = empty.Series(aqi.Pollution)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestFrame_Append(t *testing.T) {
	a, err := ReadDataset(strings.NewReader("time,no2_conc\n2024-01-01,10\n"))
	require.NoError(t, err)
	b, err := ReadDataset(strings.NewReader("time,o3_conc\n2024-01-02,50\n"))
	require.NoError(t, err)

	a.Append(b)
	assert.Equal(t, 2, a.Len())
	assert.Len(t, a.Columns[aqi.NO2], 2)
	assert.Len(t, a.Columns[aqi.O3], 2)

	no2, err := a.Series(aqi.NO2)
	require.NoError(t, err)
	assert.Len(t, no2, 1)
}

func TestResample(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC) }
	series := []model.Observation{
		{Time: day(1, 0), Value: 10},
		{Time: day(1, 12), Value: 20},
		{Time: day(3, 6), Value: 40},
		{Time: day(31, 6), Value: 60},
	}

	daily := Resample(series, model.Daily)
	require.Len(t, daily, 3)
	assert.Equal(t, day(1, 0), daily[0].Time)
	assert.Equal(t, 15.0, daily[0].Value)
	assert.Equal(t, day(3, 0), daily[1].Time)

	monthly := Resample(series, model.Monthly)
	require.Len(t, monthly, 1)
	assert.Equal(t, 32.5, monthly[0].Value)

	assert.Empty(t, Resample(nil, model.Daily))
}

type fakeRegistry struct {
	exists  bool
	saved   []*database.ModelRecord
	deleted int
	err     error
}

func (f *fakeRegistry) ModelExists(context.Context, string, string, string) (bool, error) {
	return f.exists, f.err
}

func (f *fakeRegistry) SaveModel(_ context.Context, rec *database.ModelRecord) error {
	rec.ID = fmt.Sprintf("model-%d", len(f.saved)+1)
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeRegistry) DeleteModels(context.Context, string, string, string) (int64, error) {
	f.deleted++
	return 1, nil
}

type fakeDatasets []database.Dataset

func (f fakeDatasets) ListDatasets(context.Context, string) ([]database.Dataset, error) {
	return f, nil
}

func dailyCSV(start time.Time, days int) string {
	var b strings.Builder
	b.WriteString("time,no2_conc,o3_conc\n")
	for d := 0; d < days; d++ {
		ts := start.AddDate(0, 0, d)
		fmt.Fprintf(&b, "%s,%d,%d\n", ts.Format("2006-01-02 15:04:05"), 20+d%7, 50)
	}
	return b.String()
}

func newTestTrainer(reg *fakeRegistry, files fstest.MapFS, datasets fakeDatasets) *Trainer {
	pipeline := forecast.NewPipeline(nil, config.ForecastConfig{
		SafetyBuffer:   30,
		DefaultPeriods: 7,
		MaxPeriods:     365,
	}, zap.NewNop(), nil)
	return NewTrainer(reg, datasets, files, pipeline, 0.2, zap.NewNop(), nil)
}

func TestTrain(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	files := fstest.MapFS{
		"athens_2023.csv": {Data: []byte(dailyCSV(start, 30))},
		"athens_2024.csv": {Data: []byte(dailyCSV(start.AddDate(0, 0, 30), 20))},
		"broken.csv":      {Data: []byte("no,header,here\n")},
	}
	datasets := fakeDatasets{
		{ID: "d1", Region: "Athens", Year: 2023, Filename: "athens_2023.csv"},
		{ID: "d2", Region: "Athens", Year: 2024, Filename: "athens_2024.csv"},
		{ID: "d3", Region: "Athens", Year: 2024, Filename: "broken.csv"},
		{ID: "d4", Region: "Athens", Year: 2024, Filename: "missing.csv"},
	}
	reg := &fakeRegistry{}

	res, err := newTestTrainer(reg, files, datasets).Train(context.Background(), TrainRequest{
		Region:    "Athens",
		Pollutant: "no2_conc",
		Frequency: "daily",
		Periods:   5,
	})
	require.NoError(t, err)
	require.Len(t, reg.saved, 1)

	rec := res.Model
	assert.Equal(t, "model-1", rec.ID)
	assert.Equal(t, "NO2", rec.Pollutant)
	assert.Equal(t, "daily", rec.Frequency)
	assert.Equal(t, 5, rec.ForecastPeriods)
	assert.Equal(t, start.AddDate(0, 0, 49), rec.TrainedUntil)
	require.NotNil(t, rec.MAE)
	require.NotNil(t, rec.RMSE)
	assert.GreaterOrEqual(t, *rec.RMSE, *rec.MAE)
	assert.Equal(t, 40, res.TrainSamples)
	assert.Equal(t, 10, res.TestSamples)

	restored, err := model.Decode(rec.Blob)
	require.NoError(t, err)
	assert.Equal(t, rec.TrainedUntil, restored.TrainingCutoff())

	require.Len(t, res.Preview, 5)
	for _, p := range res.Preview {
		assert.True(t, p.Timestamp.After(rec.TrainedUntil))
		assert.NotEqual(t, aqi.CategoryUnknown, p.Category)
	}
}

func TestTrain_ExistingModel(t *testing.T) {
	files := fstest.MapFS{"a.csv": {Data: []byte(dailyCSV(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 20))}}
	datasets := fakeDatasets{{ID: "d1", Filename: "a.csv"}}
	req := TrainRequest{Region: "Athens", Pollutant: "O3", Frequency: "daily", Periods: 3}

	reg := &fakeRegistry{exists: true}
	_, err := newTestTrainer(reg, files, datasets).Train(context.Background(), req)
	assert.ErrorIs(t, err, ErrModelExists)
	assert.Empty(t, reg.saved)

	req.Overwrite = true
	_, err = newTestTrainer(reg, files, datasets).Train(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.deleted)
	assert.Len(t, reg.saved, 1)
}

func TestTrain_InvalidInput(t *testing.T) {
	tr := newTestTrainer(&fakeRegistry{}, fstest.MapFS{}, nil)
	ctx := context.Background()

	_, err := tr.Train(ctx, TrainRequest{Region: "Athens", Pollutant: "PM25", Frequency: "daily"})
	assert.ErrorIs(t, err, aqi.ErrInvalidPollutant)

	_, err = tr.Train(ctx, TrainRequest{Region: "Athens", Pollutant: "NO2", Frequency: "hourly"})
	assert.ErrorIs(t, err, model.ErrInvalidFrequency)

	_, err = tr.Train(ctx, TrainRequest{Region: "Athens", Pollutant: "NO2", Frequency: "daily"})
	assert.ErrorIs(t, err, ErrNoDatasets)

	reg := &fakeRegistry{err: errors.New("connection refused")}
	_, err = newTestTrainer(reg, fstest.MapFS{}, nil).Train(ctx, TrainRequest{Region: "Athens", Pollutant: "NO2", Frequency: "daily"})
	assert.Error(t, err)
}

func TestTrain_NoReadableDataset(t *testing.T) {
	files := fstest.MapFS{"broken.csv": {Data: []byte("station\na\n")}}
	datasets := fakeDatasets{{ID: "d1", Filename: "broken.csv"}}

	_, err := newTestTrainer(&fakeRegistry{}, files, datasets).Train(context.Background(),
		TrainRequest{Region: "Athens", Pollutant: "NO2", Frequency: "daily"})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}
