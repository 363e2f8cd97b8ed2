package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/model"
)

const modelColumns = `id, region, pollutant, frequency, forecast_periods, mae, rmse, status, trained_until, created_at`

// SaveModel registers a trained model. ID and CreatedAt are filled in.
func (db *DB) SaveModel(ctx context.Context, rec *ModelRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = ModelStatusReady
	}

	query := `
		INSERT INTO models (
			id, region, pollutant, frequency, forecast_periods,
			mae, rmse, status, trained_until, model_blob
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := db.QueryRowxContext(ctx, query,
		rec.ID, rec.Region, rec.Pollutant, rec.Frequency, rec.ForecastPeriods,
		rec.MAE, rec.RMSE, rec.Status, rec.TrainedUntil, rec.Blob,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}
	return nil
}

// LoadModel returns the newest model for the key. An empty unit matches any
// frequency.
func (db *DB) LoadModel(ctx context.Context, region string, pollutant aqi.Pollutant, unit model.Unit) (*forecast.TrainedModel, error) {
	query := `
		SELECT ` + modelColumns + `, model_blob
		FROM models
		WHERE region = $1 AND pollutant = $2 AND ($3 = '' OR frequency = $3)
		ORDER BY created_at DESC
		LIMIT 1
	`

	var rec ModelRecord
	err := db.GetContext(ctx, &rec, query, region, pollutant.String(), string(unit))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: region=%s pollutant=%s frequency=%s",
			forecast.ErrModelNotFound, region, pollutant, unit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}

	tm, err := trainedModel(&rec)
	if err != nil {
		return nil, err
	}

	db.logger.Debug("Loaded model",
		zap.String("id", rec.ID),
		zap.String("region", region),
		zap.String("pollutant", pollutant.String()),
		zap.String("frequency", string(tm.Unit)))

	return tm, nil
}

// GetModel loads one model by id
func (db *DB) GetModel(ctx context.Context, id string) (*forecast.TrainedModel, error) {
	query := `
		SELECT ` + modelColumns + `, model_blob
		FROM models
		WHERE id = $1
	`

	var rec ModelRecord
	err := db.GetContext(ctx, &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%s", forecast.ErrModelNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}
	return trainedModel(&rec)
}

func trainedModel(rec *ModelRecord) (*forecast.TrainedModel, error) {
	m, err := model.Decode(rec.Blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", rec.ID, err)
	}

	native, err := model.ParseFrequency(rec.Frequency)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", rec.ID, err)
	}

	pollutant, err := aqi.ParsePollutant(rec.Pollutant)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", rec.ID, err)
	}

	return &forecast.TrainedModel{
		ID:         rec.ID,
		Region:     rec.Region,
		Pollutant:  pollutant,
		Unit:       native,
		TrainedAt:  rec.CreatedAt,
		Forecaster: m,
	}, nil
}

// ListModels returns registered models without their artifacts, newest first.
// An empty region lists every model.
func (db *DB) ListModels(ctx context.Context, region string) ([]ModelRecord, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM models
		WHERE ($1 = '' OR region = $1)
		ORDER BY created_at DESC
	`

	var records []ModelRecord
	if err := db.SelectContext(ctx, &records, query, region); err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return records, nil
}

// ModelExists reports whether any model is registered for the key
func (db *DB) ModelExists(ctx context.Context, region, pollutant, frequency string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM models
			WHERE region = $1 AND pollutant = $2 AND frequency = $3
		)
	`

	var exists bool
	if err := db.GetContext(ctx, &exists, query, region, pollutant, frequency); err != nil {
		return false, fmt.Errorf("failed to check model: %w", err)
	}
	return exists, nil
}

// DeleteModel removes a model by id
func (db *DB) DeleteModel(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteModels removes every model for the key and returns how many were removed
func (db *DB) DeleteModels(ctx context.Context, region, pollutant, frequency string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM models WHERE region = $1 AND pollutant = $2 AND frequency = $3`,
		region, pollutant, frequency)
	if err != nil {
		return 0, fmt.Errorf("failed to delete models: %w", err)
	}
	return result.RowsAffected()
}
