// Package tips produces short health recommendations for a forecast.
package tips

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
)

const (
	FallbackDelayed     = "Air quality insights are currently delayed. Avoid outdoor activities if unsure."
	FallbackUnavailable = "Air quality health tips are temporarily unavailable."
	StaticAdvice        = "Air quality data is currently unavailable. Consider staying indoors as a precaution."
)

// Request is the input of a tip generator
type Request struct {
	Region    string
	Pollutant string
	Points    []forecast.Point
	Profile   *aqi.HealthProfile
}

// Tip is a generated recommendation
type Tip struct {
	Tip          string `json:"tip"`
	RiskLevel    string `json:"riskLevel"`
	Personalized bool   `json:"personalized"`
}

// Generator produces a tip for a forecast and optional profile
type Generator interface {
	GenerateTip(ctx context.Context, req Request) (Tip, error)
}

// RiskLevel maps the category of the latest point to a coarse risk level
func RiskLevel(points []forecast.Point) string {
	if len(points) == 0 {
		return aqi.RiskLevel(aqi.CategoryUnknown)
	}
	return aqi.RiskLevel(points[len(points)-1].Category)
}

// BuildPrompt renders the instruction sent to the language model
func BuildPrompt(req Request) string {
	var forecastLines []string
	for _, p := range req.Points {
		forecastLines = append(forecastLines, fmt.Sprintf("%s: %.1f µg/m³ (%s)",
			p.Timestamp.Format("2006-01-02"), math.Round(p.Value*10)/10, p.Category))
	}
	forecastText := strings.Join(forecastLines, "\n")
	if forecastText == "" {
		forecastText = "No forecast available"
	}

	profileText := "Not provided"
	if p := req.Profile; p != nil {
		profileText = fmt.Sprintf(
			"- Asthma: %t\n- Heart Disease: %t\n- Smoker: %t\n- Diabetes: %t\n- Lung Disease: %t",
			p.HasAsthma, p.HasHeartDisease, p.IsSmoker, p.HasDiabetes, p.HasLungDisease)
	}

	pollutant := req.Pollutant
	if aqi.Normalize(pollutant).IsSynthetic() {
		pollutant = "combined pollution index"
	}

	return fmt.Sprintf(`You are a public health advisor generating user-friendly air quality health tips for citizens in %s.

Context:
- Pollutant of concern: %s
- Forecasted air quality (dates and AQI categories):
%s

User health profile:
%s

Based on the air pollution levels and the user's health conditions, write 2-5 concise, friendly health recommendations.

Format your reply as a numbered list with each item on its own line.
Start each item with a bold action verb (e.g. "**Limit**", "**Avoid**", "**Stay hydrated**").
Do not use emojis or decorative characters.
Only return the list, with no introduction or conclusion.
`, req.Region, pollutant, forecastText, profileText)
}

// Static returns fixed advice without calling any model
type Static struct{}

func (Static) GenerateTip(_ context.Context, req Request) (Tip, error) {
	return Tip{
		Tip:          StaticAdvice,
		RiskLevel:    RiskLevel(req.Points),
		Personalized: req.Profile != nil,
	}, nil
}
