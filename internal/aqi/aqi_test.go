package aqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Examples(t *testing.T) {
	assert.Equal(t, CategoryModerate, Classify("no2_conc", 45.0))
	assert.Equal(t, CategoryGood, Classify("CO", 2.9))
	assert.Equal(t, CategoryUnknown, Classify("UNKNOWN_GAS", 10))
	assert.Equal(t, "Unknown", Classify("UNKNOWN_GAS", 10).String())
}

func TestClassify_BoundariesAreRightClosed(t *testing.T) {
	tables := map[string][]float64{
		"NO2":       {20, 40, 80, 120},
		"O3":        {60, 100, 160, 200},
		"SO2":       {20, 50, 100, 150},
		"CO":        {3, 6, 10, 15},
		"NO":        {25, 50, 100, 150},
		"POLLUTION": {20, 40, 70, 100},
	}

	for pollutant, bounds := range tables {
		for i, b := range bounds {
			atBound := Classify(pollutant, b)
			above := Classify(pollutant, b+0.01)

			assert.Equal(t, Categories[i], atBound, "%s at %v", pollutant, b)
			assert.Equal(t, Categories[i+1], above, "%s at %v", pollutant, b+0.01)
		}
		assert.Equal(t, CategoryGood, Classify(pollutant, -5), pollutant)
		assert.Equal(t, CategoryVeryUnhealthy, Classify(pollutant, 1e9), pollutant)
	}
}

func TestClassify_NO2Boundary(t *testing.T) {
	assert.Equal(t, "Good", Classify("NO2", 20.0).String())
	assert.Equal(t, "Moderate", Classify("NO2", 20.01).String())
}

func TestClassify_AliasNormalization(t *testing.T) {
	assert.Equal(t, CategoryUnhealthy, Classify("  o3_conc ", 180))
	assert.Equal(t, CategoryUnhealthy, Classify("O3_CONC", 180))
	assert.Equal(t, CategoryUnhealthySensitive, Classify("pollution", 55))
}

func TestParsePollutant(t *testing.T) {
	p, err := ParsePollutant("so2_conc")
	require.NoError(t, err)
	assert.Equal(t, SO2, p)
	assert.Equal(t, "so2_conc", p.Column())

	p, err = ParsePollutant("Pollution")
	require.NoError(t, err)
	assert.True(t, p.IsSynthetic())

	_, err = ParsePollutant("pm25")
	assert.ErrorIs(t, err, ErrInvalidPollutant)
}

func TestIsThresholdExceeded_AllPairs(t *testing.T) {
	for i, current := range Categories {
		for j, threshold := range Categories {
			assert.Equal(t, i >= j, IsThresholdExceeded(current, threshold),
				"current=%s threshold=%s", current, threshold)
		}
	}
}

func TestIsThresholdExceeded_Unknown(t *testing.T) {
	assert.False(t, IsThresholdExceeded(CategoryUnknown, CategoryGood))
	assert.False(t, IsThresholdExceeded(CategoryVeryUnhealthy, CategoryUnknown))
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"Good":                           CategoryGood,
		"moderate":                       CategoryModerate,
		"Unhealthy for Sensitive Groups": CategoryUnhealthySensitive,
		"unhealthy-sensitive":            CategoryUnhealthySensitive,
		"UNHEALTHY":                      CategoryUnhealthy,
		"very-unhealthy":                 CategoryVeryUnhealthy,
	}
	for in, want := range cases {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCategory("Hazardous")
	assert.Error(t, err)
}

func TestCategory_TextRoundTrip(t *testing.T) {
	text, err := CategoryUnhealthySensitive.MarshalText()
	require.NoError(t, err)

	var c Category
	require.NoError(t, c.UnmarshalText(text))
	assert.Equal(t, CategoryUnhealthySensitive, c)
}

func TestFrontendLabelAndRiskLevel(t *testing.T) {
	assert.Equal(t, "unhealthy-sensitive", FrontendLabel(CategoryUnhealthySensitive))
	assert.Equal(t, "very-unhealthy", FrontendLabel(CategoryVeryUnhealthy))
	assert.Equal(t, "unknown", FrontendLabel(CategoryUnknown))

	assert.Equal(t, "Low", RiskLevel(CategoryModerate))
	assert.Equal(t, "High", RiskLevel(CategoryUnhealthy))
	assert.Equal(t, "Severe", RiskLevel(CategoryVeryUnhealthy))
	assert.Equal(t, "Unknown", RiskLevel(CategoryUnknown))
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 1.0, Weight(nil))
	assert.Equal(t, 1.0, Weight(&HealthProfile{}))
	assert.InDelta(t, 1.5, Weight(&HealthProfile{HasAsthma: true}), 1e-9)
	assert.InDelta(t, 1.5*1.3*1.2*1.3*1.4, Weight(&HealthProfile{
		HasAsthma:       true,
		HasHeartDisease: true,
		IsSmoker:        true,
		HasDiabetes:     true,
		HasLungDisease:  true,
	}), 1e-9)
}

func TestScore(t *testing.T) {
	assert.Equal(t, 3, Score(CategoryUnhealthy, 1.0))
	assert.Equal(t, 6, Score(CategoryVeryUnhealthy, 1.5))
	assert.Equal(t, 0, Score(CategoryUnknown, 2.0))
	// 1 * 2.5 rounds half to even
	assert.Equal(t, 2, Score(CategoryModerate, 2.5))
	assert.Equal(t, 4, Score(CategoryModerate, 3.5))
}

func TestScore_Monotonic(t *testing.T) {
	weights := []float64{1.0, 1.2, 1.5, 1.95, 2.5, 4.26}
	for _, w := range weights {
		prev := -1
		for _, c := range Categories {
			s := Score(c, w)
			assert.GreaterOrEqual(t, s, prev, "weight %v category %s", w, c)
			prev = s
		}
	}
	for _, c := range Categories {
		prev := -1
		for _, w := range weights {
			s := Score(c, w)
			assert.GreaterOrEqual(t, s, prev, "category %s weight %v", c, w)
			prev = s
		}
	}
}
