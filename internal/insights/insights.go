// Package insights builds chart series from the uploaded measurement
// datasets: yearly trends, seasonal profiles, daily trends and regional
// rankings.
package insights

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/model"
	"github.com/smukkama/aqi-forecaster/internal/training"
)

// Unit is the concentration unit of every chart value
const Unit = "μg/m³"

const defaultTopN = 5

var (
	ErrNoDatasets = errors.New("no datasets available")
	ErrNoData     = errors.New("no pollutant data available")
)

// DatasetStore lists registered dataset files
type DatasetStore interface {
	ListDatasets(ctx context.Context, region string) ([]database.Dataset, error)
	ListDatasetsByYear(ctx context.Context, year int) ([]database.Dataset, error)
}

// Chart is a labelled series ready for plotting
type Chart struct {
	Labels         []string  `json:"labels"`
	Values         []float64 `json:"values"`
	AdjustedValues []float64 `json:"adjusted_values,omitempty"`
	Deltas         []float64 `json:"deltas,omitempty"`
	Unit           string    `json:"unit"`
	Meta           Meta      `json:"meta"`
}

// Meta describes what a chart shows
type Meta struct {
	Type      string `json:"type"`
	Region    string `json:"region,omitempty"`
	Pollutant string `json:"pollutant"`
	Year      int    `json:"year,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	TopN      int    `json:"top_n,omitempty"`
}

// Personalize scales every value by the health-profile weight
func (c *Chart) Personalize(weight float64) {
	c.AdjustedValues = make([]float64, len(c.Values))
	for i, v := range c.Values {
		c.AdjustedValues[i] = round2(v * weight)
	}
	c.Meta.Type = "personalized_trend"
}

// Service reads dataset files and summarizes them
type Service struct {
	datasets DatasetStore
	files    fs.FS
	logger   *zap.Logger
}

func NewService(datasets DatasetStore, files fs.FS, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{datasets: datasets, files: files, logger: logger}
}

// YearlyTrend averages each dataset year of the region. When a year was
// uploaded more than once the newest file wins. Deltas are year over year.
func (s *Service) YearlyTrend(ctx context.Context, region, pollutant string) (*Chart, error) {
	p, err := aqi.ParsePollutant(pollutant)
	if err != nil {
		return nil, err
	}

	datasets, err := s.datasets.ListDatasets(ctx, region)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDatasets, region)
	}

	latest := make(map[int]database.Dataset)
	for _, ds := range datasets {
		if cur, ok := latest[ds.Year]; !ok || !ds.CreatedAt.Before(cur.CreatedAt) {
			latest[ds.Year] = ds
		}
	}
	years := make([]int, 0, len(latest))
	for y := range latest {
		years = append(years, y)
	}
	sort.Ints(years)

	chart := &Chart{
		Labels: []string{},
		Values: []float64{},
		Deltas: []float64{},
		Unit:   Unit,
		Meta:   Meta{Type: "trend", Region: region, Pollutant: p.String()},
	}
	for _, y := range years {
		series, ok := s.series(latest[y], p)
		if !ok {
			continue
		}
		avg, ok := mean(series, func(t time.Time) bool { return t.Year() == y })
		if !ok {
			continue
		}

		v := round2(avg)
		delta := 0.0
		if n := len(chart.Values); n > 0 {
			delta = round2(v - chart.Values[n-1])
		}
		chart.Labels = append(chart.Labels, fmt.Sprint(y))
		chart.Values = append(chart.Values, v)
		chart.Deltas = append(chart.Deltas, delta)
	}

	if len(chart.Values) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, region, p)
	}
	return chart, nil
}

// SeasonalVariation averages the region's dataset for year by calendar month
func (s *Service) SeasonalVariation(ctx context.Context, region, pollutant string, year int) (*Chart, error) {
	p, err := aqi.ParsePollutant(pollutant)
	if err != nil {
		return nil, err
	}

	ds, err := s.datasetFor(ctx, region, year)
	if err != nil {
		return nil, err
	}
	series, ok := s.series(ds, p)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s %d", ErrNoData, region, p, year)
	}

	var sums, counts [12]float64
	for _, o := range series {
		m := o.Time.Month() - 1
		sums[m] += o.Value
		counts[m]++
	}

	chart := &Chart{
		Labels: []string{},
		Values: []float64{},
		Unit:   Unit,
		Meta:   Meta{Type: "seasonality", Region: region, Pollutant: p.String(), Year: year},
	}
	for m := range sums {
		if counts[m] == 0 {
			continue
		}
		chart.Labels = append(chart.Labels, time.Month(m+1).String())
		chart.Values = append(chart.Values, round2(sums[m]/counts[m]))
	}

	if len(chart.Values) == 0 {
		return nil, fmt.Errorf("%w: %s %s %d", ErrNoData, region, p, year)
	}
	return chart, nil
}

// DailyTrend returns daily means from the region's most recent dataset,
// limited to [start, end]. Zero bounds are open.
func (s *Service) DailyTrend(ctx context.Context, region, pollutant string, start, end time.Time) (*Chart, error) {
	p, err := aqi.ParsePollutant(pollutant)
	if err != nil {
		return nil, err
	}

	ds, err := s.datasetFor(ctx, region, 0)
	if err != nil {
		return nil, err
	}
	series, ok := s.series(ds, p)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, region, p)
	}

	chart := &Chart{
		Labels: []string{},
		Values: []float64{},
		Unit:   Unit,
		Meta:   Meta{Type: "daily_trend", Region: region, Pollutant: p.String()},
	}
	if !start.IsZero() {
		chart.Meta.StartDate = start.Format(time.DateOnly)
	}
	if !end.IsZero() {
		chart.Meta.EndDate = end.Format(time.DateOnly)
	}

	for _, o := range training.Resample(series, model.Daily) {
		if (!start.IsZero() && o.Time.Before(start)) || (!end.IsZero() && o.Time.After(end)) {
			continue
		}
		chart.Labels = append(chart.Labels, o.Time.Format(time.DateOnly))
		chart.Values = append(chart.Values, round2(o.Value))
	}
	return chart, nil
}

// TopRegions ranks regions by their mean concentration in year, highest
// first. limit <= 0 keeps the top five.
func (s *Service) TopRegions(ctx context.Context, year int, pollutant string, limit int) (*Chart, error) {
	p, err := aqi.ParsePollutant(pollutant)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopN
	}

	datasets, err := s.datasets.ListDatasetsByYear(ctx, year)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]database.Dataset)
	for _, ds := range datasets {
		if cur, ok := latest[ds.Region]; !ok || !ds.CreatedAt.Before(cur.CreatedAt) {
			latest[ds.Region] = ds
		}
	}

	type score struct {
		region string
		value  float64
	}
	var scores []score
	for region, ds := range latest {
		series, ok := s.series(ds, p)
		if !ok {
			continue
		}
		if avg, ok := mean(series, nil); ok {
			scores = append(scores, score{region: region, value: round2(avg)})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].value == scores[j].value {
			return scores[i].region < scores[j].region
		}
		return scores[i].value > scores[j].value
	})
	if len(scores) > limit {
		scores = scores[:limit]
	}

	chart := &Chart{
		Labels: make([]string, len(scores)),
		Values: make([]float64, len(scores)),
		Unit:   Unit,
		Meta:   Meta{Type: "ranking", Pollutant: p.String(), Year: year, TopN: limit},
	}
	for i, sc := range scores {
		chart.Labels[i] = sc.region
		chart.Values[i] = sc.value
	}
	return chart, nil
}

// datasetFor picks the newest upload of year, or of the latest year when
// year is 0.
func (s *Service) datasetFor(ctx context.Context, region string, year int) (database.Dataset, error) {
	datasets, err := s.datasets.ListDatasets(ctx, region)
	if err != nil {
		return database.Dataset{}, err
	}

	var (
		picked database.Dataset
		found  bool
	)
	for _, ds := range datasets {
		if year != 0 && ds.Year != year {
			continue
		}
		if !found || ds.Year > picked.Year ||
			(ds.Year == picked.Year && !ds.CreatedAt.Before(picked.CreatedAt)) {
			picked, found = ds, true
		}
	}
	if !found {
		if year != 0 {
			return database.Dataset{}, fmt.Errorf("%w: %s %d", ErrNoDatasets, region, year)
		}
		return database.Dataset{}, fmt.Errorf("%w: %s", ErrNoDatasets, region)
	}
	return picked, nil
}

// series reads one dataset file. Unreadable files and missing columns are
// logged and reported as not ok.
func (s *Service) series(ds database.Dataset, p aqi.Pollutant) ([]model.Observation, bool) {
	frame, err := training.OpenDataset(s.files, ds.Filename)
	if err == nil {
		var series []model.Observation
		if series, err = frame.Series(p); err == nil {
			return series, len(series) > 0
		}
	}
	s.logger.Warn("Skipping dataset",
		zap.String("id", ds.ID),
		zap.String("filename", ds.Filename),
		zap.String("pollutant", p.String()),
		zap.Error(err))
	return nil, false
}

func mean(series []model.Observation, keep func(time.Time) bool) (float64, bool) {
	var sum float64
	var n int
	for _, o := range series {
		if keep != nil && !keep(o.Time) {
			continue
		}
		sum += o.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
