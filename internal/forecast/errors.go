package forecast

import (
	"errors"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/model"
)

var (
	// ErrModelNotFound means no trained artifact exists for the requested key
	ErrModelNotFound = errors.New("trained model not found")
	// ErrForecastFailed wraps any failure while loading or running a model
	ErrForecastFailed = errors.New("forecast failed")
	// ErrNoForecastAvailable means every constituent of an aggregate failed
	ErrNoForecastAvailable = errors.New("no forecast available")
	// ErrInvalidHorizon covers bad period counts and inverted date windows
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	ErrInvalidFrequency = model.ErrInvalidFrequency
	ErrInvalidPollutant = aqi.ErrInvalidPollutant
)

// IsNotFound reports whether err should be surfaced to callers as "no data"
func IsNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound) || errors.Is(err, ErrNoForecastAvailable)
}

// IsBadRequest reports whether err was caused by caller input
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidPollutant) ||
		errors.Is(err, ErrInvalidHorizon)
}
