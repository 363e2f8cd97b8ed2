package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	daysPerYear = 365.25
	// z-score of the 95% interval
	intervalZ = 1.96
)

// SeasonalModel is an additive model: linear trend plus yearly and weekly
// Fourier terms, fitted by least squares.
type SeasonalModel struct {
	Unit         Unit      `json:"unit"`
	Origin       time.Time `json:"origin"`
	Cutoff       time.Time `json:"cutoff"`
	YearlyOrder  int       `json:"yearly_order"`
	WeeklyOrder  int       `json:"weekly_order"`
	Coefficients []float64 `json:"coefficients"`
	ResidualStd  float64   `json:"residual_std"`
}

var _ Forecaster = (*SeasonalModel)(nil)

// Fit trains a model on a series sampled at the given unit.
// Seasonal orders shrink when the series is too short to support them.
func Fit(series []Observation, unit Unit) (*SeasonalModel, error) {
	if len(series) < 3 {
		return nil, fmt.Errorf("%w: %d observations", ErrInsufficientData, len(series))
	}

	sorted := make([]Observation, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	span := sorted[len(sorted)-1].Time.Sub(sorted[0].Time)
	yearly, weekly := seasonalOrders(unit, span)
	for {
		m := &SeasonalModel{
			Unit:        unit,
			Origin:      sorted[0].Time,
			Cutoff:      sorted[len(sorted)-1].Time,
			YearlyOrder: yearly,
			WeeklyOrder: weekly,
		}
		// keep at least one residual degree of freedom
		if m.featureCount() < len(sorted) {
			err := m.solve(sorted)
			if err == nil {
				return m, nil
			}
			if yearly == 0 && weekly == 0 {
				return nil, err
			}
		}
		if weekly > 0 {
			weekly--
		} else {
			yearly--
		}
	}
}

// Seasonal terms are only fitted when the series covers at least one full
// cycle and the sampling unit can resolve it.
func seasonalOrders(unit Unit, span time.Duration) (yearly, weekly int) {
	fullYear := span >= 365*24*time.Hour
	switch unit {
	case Daily:
		if fullYear {
			yearly = 3
		}
		if span >= 14*24*time.Hour {
			weekly = 2
		}
	case Weekly, Monthly:
		if fullYear {
			yearly = 3
		}
	}
	return yearly, weekly
}

func (m *SeasonalModel) featureCount() int {
	return 2 + 2*m.YearlyOrder + 2*m.WeeklyOrder
}

func (m *SeasonalModel) features(t time.Time, row []float64) {
	days := t.Sub(m.Origin).Hours() / 24
	row[0] = 1
	row[1] = days / daysPerYear
	i := 2
	for k := 1; k <= m.YearlyOrder; k++ {
		angle := 2 * math.Pi * float64(k) * days / daysPerYear
		row[i], row[i+1] = math.Cos(angle), math.Sin(angle)
		i += 2
	}
	for k := 1; k <= m.WeeklyOrder; k++ {
		angle := 2 * math.Pi * float64(k) * days / 7
		row[i], row[i+1] = math.Cos(angle), math.Sin(angle)
		i += 2
	}
}

func (m *SeasonalModel) solve(series []Observation) error {
	n, p := len(series), m.featureCount()
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	row := make([]float64, p)
	for i, o := range series {
		m.features(o.Time, row)
		x.SetRow(i, row)
		y.SetVec(i, o.Value)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return fmt.Errorf("least squares fit failed: %w", err)
	}
	m.Coefficients = make([]float64, p)
	for i := range m.Coefficients {
		m.Coefficients[i] = beta.AtVec(i)
	}

	var sq float64
	for _, o := range series {
		diff := o.Value - m.estimate(o.Time, row)
		sq += diff * diff
	}
	m.ResidualStd = math.Sqrt(sq / float64(n-p))
	return nil
}

func (m *SeasonalModel) estimate(t time.Time, row []float64) float64 {
	m.features(t, row)
	var v float64
	for i, c := range m.Coefficients {
		v += c * row[i]
	}
	return v
}

// TrainingCutoff implements Forecaster
func (m *SeasonalModel) TrainingCutoff() time.Time {
	return m.Cutoff
}

// ExtendHorizon implements Forecaster
func (m *SeasonalModel) ExtendHorizon(count int, unit Unit) []time.Time {
	if count <= 0 {
		return nil
	}
	out := make([]time.Time, count)
	for i := range out {
		out[i] = unit.Step(m.Cutoff, i+1)
	}
	return out
}

// Predict implements Forecaster
func (m *SeasonalModel) Predict(ctx context.Context, timestamps []time.Time) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.Coefficients) != m.featureCount() {
		return nil, fmt.Errorf("model has %d coefficients, expected %d", len(m.Coefficients), m.featureCount())
	}

	row := make([]float64, m.featureCount())
	spread := intervalZ * m.ResidualStd
	out := make([]Prediction, len(timestamps))
	for i, t := range timestamps {
		v := m.estimate(t, row)
		out[i] = Prediction{Value: v, Lower: v - spread, Upper: v + spread}
	}
	return out, nil
}

// Encode serializes the model artifact
func (m *SeasonalModel) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode restores a model artifact produced by Encode
func Decode(data []byte) (*SeasonalModel, error) {
	var m SeasonalModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if len(m.Coefficients) != m.featureCount() {
		return nil, fmt.Errorf("corrupt model artifact: %d coefficients, expected %d",
			len(m.Coefficients), m.featureCount())
	}
	if m.Cutoff.IsZero() {
		return nil, fmt.Errorf("corrupt model artifact: missing cutoff")
	}
	return &m, nil
}
