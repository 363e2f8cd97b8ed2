package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/insights"
)

// GetYearlyTrend handles GET /api/v1/insights/trend
func (h *Handlers) GetYearlyTrend(c *gin.Context) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return
	}

	chart, err := h.deps.Insights.YearlyTrend(c.Request.Context(), region, pollutant)
	if !h.checkInsightError(c, err) {
		return
	}
	c.JSON(http.StatusOK, chart)
}

// GetPersonalizedTrend handles GET /api/v1/insights/personalized-trend
// The yearly trend plus values scaled by the caller's risk weight.
func (h *Handlers) GetPersonalizedTrend(c *gin.Context) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	userID := c.GetString(ctxUserID)

	profile, err := h.deps.Profiles.GetProfile(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	chart, err := h.deps.Insights.YearlyTrend(ctx, region, pollutant)
	if !h.checkInsightError(c, err) {
		return
	}
	chart.Personalize(aqi.Weight(profile))

	c.JSON(http.StatusOK, chart)
}

// GetSeasonalVariation handles GET /api/v1/insights/seasonal?year=
func (h *Handlers) GetSeasonalVariation(c *gin.Context) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return
	}
	year, ok := requireYear(c)
	if !ok {
		return
	}

	chart, err := h.deps.Insights.SeasonalVariation(c.Request.Context(), region, pollutant, year)
	if !h.checkInsightError(c, err) {
		return
	}
	c.JSON(http.StatusOK, chart)
}

// GetDailyTrend handles GET /api/v1/insights/daily-trend
// start_date and end_date are optional bounds.
func (h *Handlers) GetDailyTrend(c *gin.Context) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return
	}

	var start, end time.Time
	var err error
	if s := c.Query("start_date"); s != "" {
		if start, err = parseDate(s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start_date: %q", s)})
			return
		}
	}
	if s := c.Query("end_date"); s != "" {
		if end, err = parseDate(s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid end_date: %q", s)})
			return
		}
	}

	chart, err := h.deps.Insights.DailyTrend(c.Request.Context(), region, pollutant, start, end)
	if !h.checkInsightError(c, err) {
		return
	}
	c.JSON(http.StatusOK, chart)
}

// GetTopRegions handles GET /api/v1/insights/top-regions?year=&pollutant=&limit=
func (h *Handlers) GetTopRegions(c *gin.Context) {
	pollutant := c.Query("pollutant")
	if pollutant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pollutant is required"})
		return
	}
	year, ok := requireYear(c)
	if !ok {
		return
	}

	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit: %q", s)})
			return
		}
		limit = n
	}

	chart, err := h.deps.Insights.TopRegions(c.Request.Context(), year, pollutant, limit)
	if !h.checkInsightError(c, err) {
		return
	}
	c.JSON(http.StatusOK, chart)
}

func (h *Handlers) checkInsightError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, aqi.ErrInvalidPollutant):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, insights.ErrNoDatasets), errors.Is(err, insights.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Insight request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build chart"})
	}
	return false
}

func requireYear(c *gin.Context) (int, bool) {
	s := c.Query("year")
	year, err := strconv.Atoi(s)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid year: %q", s)})
		return 0, false
	}
	return year, true
}
