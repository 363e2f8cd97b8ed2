package forecast

import (
	"math"
	"time"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
)

// Point is one annotated forecast step. Points are never modified after the
// pipeline returns them.
type Point struct {
	Timestamp time.Time
	Value     float64
	Lower     *float64
	Upper     *float64
	Category  aqi.Category
	Label     string
	RiskScore *int
}

// Record is the wire shape of a Point
type Record struct {
	Timestamp      string   `json:"timestamp"`
	PredictedValue float64  `json:"predicted_value"`
	LowerBound     *float64 `json:"lower_bound,omitempty"`
	UpperBound     *float64 `json:"upper_bound,omitempty"`
	Category       string   `json:"category"`
	FrontendLabel  string   `json:"frontend_label"`
	RiskScore      *int     `json:"risk_score,omitempty"`
}

const timestampLayout = "2006-01-02T15:04:05"

// Record converts the point for transport, rounding values to 2 decimals
func (p Point) Record() Record {
	r := Record{
		Timestamp:      p.Timestamp.Format(timestampLayout),
		PredictedValue: round2(p.Value),
		Category:       p.Category.String(),
		FrontendLabel:  p.Label,
		RiskScore:      p.RiskScore,
	}
	if p.Lower != nil {
		v := round2(*p.Lower)
		r.LowerBound = &v
	}
	if p.Upper != nil {
		v := round2(*p.Upper)
		r.UpperBound = &v
	}
	return r
}

// Records converts a whole series
func Records(points []Point) []Record {
	out := make([]Record, len(points))
	for i, p := range points {
		out[i] = p.Record()
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// annotate classifies a value and, when a weight is given, scores it
func annotate(p aqi.Pollutant, ts time.Time, value float64, weight *float64) Point {
	category := aqi.ClassifyPollutant(p, value)
	pt := Point{
		Timestamp: ts,
		Value:     value,
		Category:  category,
		Label:     aqi.FrontendLabel(category),
	}
	if weight != nil {
		score := aqi.Score(category, *weight)
		pt.RiskScore = &score
	}
	return pt
}
