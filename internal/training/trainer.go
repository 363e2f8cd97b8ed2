package training

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
	"github.com/smukkama/aqi-forecaster/internal/model"
)

const defaultPeriods = 7

var (
	ErrModelExists = errors.New("model already exists")
	ErrNoDatasets  = errors.New("no dataset found for region")
)

// Registry persists trained models
type Registry interface {
	ModelExists(ctx context.Context, region, pollutant, frequency string) (bool, error)
	SaveModel(ctx context.Context, rec *database.ModelRecord) error
	DeleteModels(ctx context.Context, region, pollutant, frequency string) (int64, error)
}

// DatasetLister lists the dataset files registered for a region
type DatasetLister interface {
	ListDatasets(ctx context.Context, region string) ([]database.Dataset, error)
}

// Projector renders the preview forecast of a freshly trained model
type Projector interface {
	Project(ctx context.Context, m model.Forecaster, pollutant aqi.Pollutant, unit model.Unit, h forecast.Horizon, weight *float64) ([]forecast.Point, error)
}

// TrainRequest describes one training run
type TrainRequest struct {
	Region    string
	Pollutant string
	Frequency string
	// Periods is the preview length and is recorded with the model
	Periods   int
	Overwrite bool
}

// Result is a registered model with its evaluation and preview
type Result struct {
	Model        *database.ModelRecord
	TrainSamples int
	TestSamples  int
	Preview      []forecast.Point
}

// Trainer fits models on a region's datasets and registers them
type Trainer struct {
	registry  Registry
	datasets  DatasetLister
	files     fs.FS
	projector Projector
	holdout   float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewTrainer creates a new trainer. Dataset filenames are opened from files.
// projector may be nil, in which case no preview is produced.
func NewTrainer(registry Registry, datasets DatasetLister, files fs.FS, projector Projector, holdout float64, logger *zap.Logger, m *metrics.Metrics) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		registry:  registry,
		datasets:  datasets,
		files:     files,
		projector: projector,
		holdout:   holdout,
		logger:    logger,
		metrics:   m,
	}
}

// Train fits, evaluates and registers a model for the request key
func (t *Trainer) Train(ctx context.Context, req TrainRequest) (*Result, error) {
	pollutant, err := aqi.ParsePollutant(req.Pollutant)
	if err != nil {
		return nil, err
	}
	unit, err := model.ParseFrequency(req.Frequency)
	if err != nil {
		return nil, err
	}
	if req.Periods < 0 {
		return nil, fmt.Errorf("%w: periods %d", forecast.ErrInvalidHorizon, req.Periods)
	}
	if req.Periods == 0 {
		req.Periods = defaultPeriods
	}

	exists, err := t.registry.ModelExists(ctx, req.Region, pollutant.String(), string(unit))
	if err != nil {
		return nil, err
	}
	if exists && !req.Overwrite {
		return nil, fmt.Errorf("%w: %s %s (%s)", ErrModelExists, req.Region, pollutant, unit)
	}

	frame, err := t.loadFrame(ctx, req.Region)
	if err != nil {
		return nil, err
	}

	raw, err := frame.Series(pollutant)
	if err != nil {
		return nil, err
	}
	series := Resample(raw, unit)

	train, test := split(series, t.holdout)
	t.logger.Info("Training model",
		zap.String("region", req.Region),
		zap.String("pollutant", pollutant.String()),
		zap.String("frequency", string(unit)),
		zap.Int("rows", len(series)),
		zap.Int("train", len(train)),
		zap.Int("test", len(test)))

	rec := &database.ModelRecord{
		Region:          req.Region,
		Pollutant:       pollutant.String(),
		Frequency:       string(unit),
		ForecastPeriods: req.Periods,
	}

	if len(test) > 0 {
		scored, err := model.Fit(train, unit)
		if err != nil {
			return nil, fmt.Errorf("failed to fit model: %w", err)
		}
		mae, rmse, err := model.Evaluate(ctx, scored, test)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate model: %w", err)
		}
		rec.MAE, rec.RMSE = round3(mae), round3(rmse)
	} else {
		t.logger.Warn("Skipped metric evaluation: empty test set", zap.String("region", req.Region))
	}

	// the registered artifact is refitted on the full series so forecasts
	// start after the most recent observation
	final, err := model.Fit(series, unit)
	if err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}
	rec.TrainedUntil = final.TrainingCutoff()
	if rec.Blob, err = final.Encode(); err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}

	if exists {
		removed, err := t.registry.DeleteModels(ctx, req.Region, pollutant.String(), string(unit))
		if err != nil {
			return nil, err
		}
		t.logger.Info("Replacing existing models", zap.Int64("removed", removed))
	}
	if err := t.registry.SaveModel(ctx, rec); err != nil {
		return nil, err
	}
	t.metrics.ModelTrained(pollutant.String(), string(unit))

	t.logger.Info("Model registered",
		zap.String("id", rec.ID),
		zap.Time("trained_until", rec.TrainedUntil))

	result := &Result{Model: rec, TrainSamples: len(train), TestSamples: len(test)}
	if t.projector != nil {
		preview, err := t.projector.Project(ctx, final, pollutant, unit, forecast.Steps(req.Periods), nil)
		if err != nil {
			t.logger.Warn("Preview forecast failed", zap.String("id", rec.ID), zap.Error(err))
		}
		result.Preview = preview
	}
	return result, nil
}

// loadFrame concatenates every readable dataset of the region, oldest year
// first. Unreadable files are logged and skipped.
func (t *Trainer) loadFrame(ctx context.Context, region string) (*Frame, error) {
	datasets, err := t.datasets.ListDatasets(ctx, region)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDatasets, region)
	}

	var frame *Frame
	for _, ds := range datasets {
		f, err := OpenDataset(t.files, ds.Filename)
		if err != nil {
			t.logger.Warn("Skipping dataset",
				zap.String("id", ds.ID),
				zap.String("filename", ds.Filename),
				zap.Error(err))
			continue
		}
		if frame == nil {
			frame = f
		} else {
			frame.Append(f)
		}
	}

	if frame == nil {
		return nil, fmt.Errorf("%w: no readable dataset for %s", ErrEmptyDataset, region)
	}
	return frame, nil
}

// OpenDataset reads one stored dataset file
func OpenDataset(files fs.FS, name string) (*Frame, error) {
	file, err := files.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadDataset(file)
}

// split keeps chronological order: the trailing holdout share is the test set
func split(series []model.Observation, holdout float64) (train, test []model.Observation) {
	idx := int(float64(len(series)) * (1 - holdout))
	return series[:idx], series[idx:]
}

func round3(v float64) *float64 {
	r := math.Round(v*1000) / 1000
	return &r
}

