package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Unit is the time step of a forecast
type Unit string

const (
	Daily   Unit = "daily"
	Weekly  Unit = "weekly"
	Monthly Unit = "monthly"
	Yearly  Unit = "yearly"
)

// ErrInvalidFrequency is returned for frequency tokens that map to no unit
var ErrInvalidFrequency = errors.New("invalid frequency")

var frequencyTokens = map[string]Unit{
	"daily":   Daily,
	"d":       Daily,
	"weekly":  Weekly,
	"w":       Weekly,
	"monthly": Monthly,
	"m":       Monthly,
	"yearly":  Yearly,
	"y":       Yearly,
}

// ParseFrequency resolves a caller token (daily/weekly/monthly/yearly or
// D/W/M/Y, any case) to a Unit.
func ParseFrequency(token string) (Unit, error) {
	if u, ok := frequencyTokens[strings.ToLower(strings.TrimSpace(token))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, token)
}

// Code is the single-letter form (D, W, M, Y)
func (u Unit) Code() string {
	switch u {
	case Daily:
		return "D"
	case Weekly:
		return "W"
	case Monthly:
		return "M"
	case Yearly:
		return "Y"
	}
	return ""
}

// Step moves t forward by n units. Months and years follow the calendar and
// clamp the day to the end of the target month, so Jan 31 steps to Feb 28.
func (u Unit) Step(t time.Time, n int) time.Time {
	switch u {
	case Weekly:
		return t.AddDate(0, 0, 7*n)
	case Monthly:
		return addMonths(t, n)
	case Yearly:
		return addMonths(t, 12*n)
	default:
		return t.AddDate(0, 0, n)
	}
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// Truncate returns the start of the bucket containing t
func (u Unit) Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	switch u {
	case Weekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7 // weeks start on Monday
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
}

// Approx is the nominal length of one unit
func (u Unit) Approx() time.Duration {
	day := 24 * time.Hour
	switch u {
	case Weekly:
		return 7 * day
	case Monthly:
		return time.Duration(30.436875 * float64(day))
	case Yearly:
		return time.Duration(365.2425 * float64(day))
	default:
		return day
	}
}
