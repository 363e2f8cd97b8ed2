package aqi

import (
	"fmt"
	"math"
	"strings"
)

// Category is an AQI category. The zero value is CategoryUnknown.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryGood
	CategoryModerate
	CategoryUnhealthySensitive
	CategoryUnhealthy
	CategoryVeryUnhealthy
)

var categoryNames = map[Category]string{
	CategoryUnknown:            "Unknown",
	CategoryGood:               "Good",
	CategoryModerate:           "Moderate",
	CategoryUnhealthySensitive: "Unhealthy for Sensitive Groups",
	CategoryUnhealthy:          "Unhealthy",
	CategoryVeryUnhealthy:      "Very Unhealthy",
}

var frontendLabels = map[Category]string{
	CategoryGood:               "good",
	CategoryModerate:           "moderate",
	CategoryUnhealthySensitive: "unhealthy-sensitive",
	CategoryUnhealthy:          "unhealthy",
	CategoryVeryUnhealthy:      "very-unhealthy",
}

// Categories lists the known categories from least to most severe
var Categories = []Category{
	CategoryGood,
	CategoryModerate,
	CategoryUnhealthySensitive,
	CategoryUnhealthy,
	CategoryVeryUnhealthy,
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryUnknown]
}

// Known reports whether c is one of the five ordered categories
func (c Category) Known() bool {
	return c >= CategoryGood && c <= CategoryVeryUnhealthy
}

// Index is the severity index on the alert axis: Good=0 .. Very Unhealthy=4.
// Unknown is -1.
func (c Category) Index() int {
	if !c.Known() {
		return -1
	}
	return int(c - CategoryGood)
}

// MarshalText encodes the display name so categories serialize as strings
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts display names, frontend labels and the "sensitive" shorthand
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory parses a display name ("Unhealthy for Sensitive Groups") or a
// frontend label ("unhealthy-sensitive"), case-insensitively.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for c, name := range categoryNames {
		if key == strings.ToLower(name) {
			return c, nil
		}
	}
	for c, label := range frontendLabels {
		if key == label {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown AQI category: %q", s)
}

// FrontendLabel is the lowercase hyphenated slug used by UI clients
func FrontendLabel(c Category) string {
	if label, ok := frontendLabels[c]; ok {
		return label
	}
	return "unknown"
}

// IsThresholdExceeded reports whether current is at least as severe as threshold.
// Unknown on either side never exceeds.
func IsThresholdExceeded(current, threshold Category) bool {
	if !current.Known() || !threshold.Known() {
		return false
	}
	return current.Index() >= threshold.Index()
}

// RiskLevel maps a category to the coarse risk wording used in health advice
func RiskLevel(c Category) string {
	switch c {
	case CategoryGood, CategoryModerate:
		return "Low"
	case CategoryUnhealthySensitive:
		return "Moderate"
	case CategoryUnhealthy:
		return "High"
	case CategoryVeryUnhealthy:
		return "Severe"
	default:
		return "Unknown"
	}
}

type bound struct {
	upper    float64
	category Category
}

// Upper bounds are inclusive, in μg/m³ (CO in mg/m³).
var thresholds = map[Pollutant][]bound{
	NO2:       table(20, 40, 80, 120),
	O3:        table(60, 100, 160, 200),
	SO2:       table(20, 50, 100, 150),
	CO:        table(3, 6, 10, 15),
	NO:        table(25, 50, 100, 150),
	Pollution: table(20, 40, 70, 100),
}

func table(good, moderate, sensitive, unhealthy float64) []bound {
	return []bound{
		{good, CategoryGood},
		{moderate, CategoryModerate},
		{sensitive, CategoryUnhealthySensitive},
		{unhealthy, CategoryUnhealthy},
		{math.Inf(1), CategoryVeryUnhealthy},
	}
}

// Classify maps a concentration to its category using right-closed buckets.
// The pollutant is alias-normalized; pollutants without a table give Unknown.
func Classify(pollutant string, value float64) Category {
	return ClassifyPollutant(Normalize(pollutant), value)
}

// ClassifyPollutant is Classify for an already normalized pollutant
func ClassifyPollutant(p Pollutant, value float64) Category {
	for _, b := range thresholds[p] {
		if value <= b.upper {
			return b.category
		}
	}
	return CategoryUnknown
}
