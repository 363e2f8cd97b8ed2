package aqi

import (
	"errors"
	"fmt"
	"strings"
)

// Pollutant is the canonical uppercase key of a tracked pollutant
type Pollutant string

const (
	NO2       Pollutant = "NO2"
	O3        Pollutant = "O3"
	SO2       Pollutant = "SO2"
	CO        Pollutant = "CO"
	NO        Pollutant = "NO"
	Pollution Pollutant = "POLLUTION" // synthetic mean of the others
)

// ErrInvalidPollutant is returned when a pollutant identifier is not tracked
var ErrInvalidPollutant = errors.New("invalid pollutant")

// Constituents are the pollutants averaged into the synthetic POLLUTION index,
// in the order they are forecast.
var Constituents = []Pollutant{NO2, O3, SO2, CO, NO}

// Normalize trims, uppercases and strips the dataset column suffix ("_conc").
// It does not validate the result.
func Normalize(s string) Pollutant {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, "_CONC")
	return Pollutant(key)
}

// ParsePollutant normalizes s and rejects anything without a threshold table
func ParsePollutant(s string) (Pollutant, error) {
	p := Normalize(s)
	if _, ok := thresholds[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPollutant, s)
	}
	return p, nil
}

// Column returns the dataset column name for the pollutant ("no2_conc").
// POLLUTION has no column of its own and returns "pollution".
func (p Pollutant) Column() string {
	if p == Pollution {
		return "pollution"
	}
	return strings.ToLower(string(p)) + "_conc"
}

// IsSynthetic reports whether p is the averaged pseudo-pollutant
func (p Pollutant) IsSynthetic() bool {
	return p == Pollution
}

func (p Pollutant) String() string {
	return string(p)
}
