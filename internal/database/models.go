package database

import (
	"time"
)

// ModelRecord is a trained model registered in the models table
type ModelRecord struct {
	ID              string    `db:"id" json:"id"`
	Region          string    `db:"region" json:"region"`
	Pollutant       string    `db:"pollutant" json:"pollutant"`
	Frequency       string    `db:"frequency" json:"frequency"`
	ForecastPeriods int       `db:"forecast_periods" json:"forecast_periods"`
	MAE             *float64  `db:"mae" json:"mae,omitempty"`
	RMSE            *float64  `db:"rmse" json:"rmse,omitempty"`
	Status          string    `db:"status" json:"status"`
	TrainedUntil    time.Time `db:"trained_until" json:"trained_until"`
	Blob            []byte    `db:"model_blob" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

const (
	ModelStatusReady = "ready"
)

// Subscription is a user's alert rule for a region and pollutant
type Subscription struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email,omitempty"`
	Region    string    `db:"region" json:"region"`
	Pollutant string    `db:"pollutant" json:"pollutant"`
	Threshold string    `db:"threshold" json:"threshold"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Dataset is an uploaded yearly measurement file for a region
type Dataset struct {
	ID        string    `db:"id" json:"id"`
	Region    string    `db:"region" json:"region"`
	Year      int       `db:"year" json:"year"`
	Filename  string    `db:"filename" json:"filename"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
