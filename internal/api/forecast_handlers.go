package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/model"
	"github.com/smukkama/aqi-forecaster/internal/tips"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// Handlers implements the HTTP endpoints
type Handlers struct {
	deps   Dependencies
	logger *zap.Logger
}

func NewHandlers(deps Dependencies, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{deps: deps, logger: logger}
}

// GetForecast handles GET /api/v1/forecast
// Query parameters:
// - region, pollutant: required
// - frequency: optional, defaults to the model's native unit
// - periods: optional step count
// - start_date, end_date: optional window replacing periods
func (h *Handlers) GetForecast(c *gin.Context) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return
	}

	horizon, err := parseHorizon(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := forecast.Request{
		Region:    region,
		Pollutant: pollutant,
		Frequency: c.Query("frequency"),
		Horizon:   horizon,
	}

	points, err := h.deps.Forecaster.Forecast(c.Request.Context(), req)
	degraded, ok := h.checkForecastError(c, req, err)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"region":    region,
		"pollutant": pollutant,
		"frequency": req.Frequency,
		"forecast":  forecast.Records(points),
		"degraded":  degraded,
	})
}

// GetRiskTimeline handles GET /api/v1/forecast/risk-timeline
// Points carry a risk score weighted by the caller's health profile.
// POLLUTION averages every constituent pollutant.
func (h *Handlers) GetRiskTimeline(c *gin.Context) {
	points, degraded, _, ok := h.riskTimeline(c)
	if !ok {
		return
	}

	records := forecast.Records(points)
	var current *forecast.Record
	if len(records) > 0 {
		current = &records[0]
	}

	c.JSON(http.StatusOK, gin.H{
		"forecast": records,
		"current":  current,
		"degraded": degraded,
	})
}

// GetHealthTip handles GET /api/v1/forecast/health-tip
func (h *Handlers) GetHealthTip(c *gin.Context) {
	points, degraded, profile, ok := h.riskTimeline(c)
	if !ok {
		return
	}

	if degraded {
		c.JSON(http.StatusOK, tips.Tip{
			Tip:          tips.StaticAdvice,
			RiskLevel:    aqi.RiskLevel(aqi.CategoryUnknown),
			Personalized: profile != nil,
		})
		return
	}
	if len(points) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Forecast is empty"})
		return
	}

	tip, err := h.deps.Tips.GenerateTip(c.Request.Context(), tips.Request{
		Region:    c.Query("region"),
		Pollutant: c.Query("pollutant"),
		Points:    points,
		Profile:   profile,
	})
	if err != nil {
		h.logger.Error("Tip generation failed", zap.Error(err))
		tip = tips.Tip{
			Tip:          tips.StaticAdvice,
			RiskLevel:    aqi.RiskLevel(aqi.CategoryUnknown),
			Personalized: profile != nil,
		}
	}

	c.JSON(http.StatusOK, tip)
}

const calendarMonths = 12

// CalendarMonth is one entry of the monthly forecast calendar
type CalendarMonth struct {
	Month    string  `json:"month"`
	Value    float64 `json:"value"`
	Category string  `json:"category"`
	Label    string  `json:"label"`
}

// GetForecastCalendar handles GET /api/v1/forecast/calendar
// Twelve monthly steps after the training cutoff, whatever the model's
// native frequency.
func (h *Handlers) GetForecastCalendar(c *gin.Context) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return
	}

	req := forecast.Request{
		Region:    region,
		Pollutant: pollutant,
		Step:      model.Monthly,
		Horizon:   forecast.Steps(calendarMonths),
	}

	ctx := c.Request.Context()
	var (
		points []forecast.Point
		err    error
	)
	if aqi.Normalize(pollutant).IsSynthetic() {
		points, err = h.deps.Aggregator.Aggregate(ctx, req)
	} else {
		points, err = h.deps.Forecaster.Forecast(ctx, req)
	}

	degraded, ok := h.checkForecastError(c, req, err)
	if !ok {
		return
	}

	months := make([]CalendarMonth, len(points))
	for i, pt := range points {
		months[i] = CalendarMonth{
			Month:    pt.Timestamp.Format("January 2006"),
			Value:    math.Round(pt.Value*100) / 100,
			Category: pt.Category.String(),
			Label:    pt.Label,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"region":    region,
		"pollutant": pollutant,
		"months":    months,
		"degraded":  degraded,
	})
}

// riskTimeline runs the weighted window forecast shared by the timeline and
// tip endpoints. ok is false when a response was already written.
func (h *Handlers) riskTimeline(c *gin.Context) (points []forecast.Point, degraded bool, profile *aqi.HealthProfile, ok bool) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return nil, false, nil, false
	}

	start, end, err := parseWindow(c, true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false, nil, false
	}

	ctx := c.Request.Context()
	userID := c.GetString(ctxUserID)

	profile, err = h.deps.Profiles.GetProfile(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return nil, false, nil, false
	}
	weight := aqi.Weight(profile)

	req := forecast.Request{
		Region:    region,
		Pollutant: pollutant,
		Frequency: c.Query("frequency"),
		Horizon:   forecast.Window(start, end),
		Weight:    &weight,
	}

	if aqi.Normalize(pollutant).IsSynthetic() {
		points, err = h.deps.Aggregator.Aggregate(ctx, req)
	} else {
		points, err = h.deps.Forecaster.Forecast(ctx, req)
	}

	degraded, ok = h.checkForecastError(c, req, err)
	if !ok {
		return nil, false, nil, false
	}
	return points, degraded, profile, true
}

// checkForecastError writes the response for caller and lookup errors.
// A failed prediction is not an error for the caller: it yields an empty,
// degraded forecast.
func (h *Handlers) checkForecastError(c *gin.Context, req forecast.Request, err error) (degraded, ok bool) {
	switch {
	case err == nil:
		return false, true
	case forecast.IsBadRequest(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false, false
	case forecast.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return false, false
	case errors.Is(err, forecast.ErrForecastFailed):
		h.logger.Warn("Serving degraded forecast",
			zap.String("region", req.Region),
			zap.String("pollutant", req.Pollutant),
			zap.Error(err))
		return true, true
	default:
		h.logger.Error("Forecast request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Forecast failed"})
		return false, false
	}
}

func requireKey(c *gin.Context) (region, pollutant string, ok bool) {
	region = c.Query("region")
	pollutant = c.Query("pollutant")
	if region == "" || pollutant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region and pollutant are required"})
		return "", "", false
	}
	return region, pollutant, true
}

func parseHorizon(c *gin.Context) (forecast.Horizon, error) {
	if c.Query("start_date") != "" || c.Query("end_date") != "" {
		start, end, err := parseWindow(c, false)
		if err != nil {
			return forecast.Horizon{}, err
		}
		return forecast.Window(start, end), nil
	}

	periods := 0
	if s := c.Query("periods"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return forecast.Horizon{}, fmt.Errorf("invalid periods: %q", s)
		}
		periods = n
	}
	return forecast.Steps(periods), nil
}

// parseWindow reads start_date and end_date. Without required, a missing
// start defaults to today.
func parseWindow(c *gin.Context, required bool) (start, end time.Time, err error) {
	startStr, endStr := c.Query("start_date"), c.Query("end_date")
	if endStr == "" || (required && startStr == "") {
		return start, end, errors.New("start_date and end_date are required")
	}

	if startStr == "" {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	} else if start, err = parseDate(startStr); err != nil {
		return start, end, fmt.Errorf("invalid start_date: %q", startStr)
	}
	if end, err = parseDate(endStr); err != nil {
		return start, end, fmt.Errorf("invalid end_date: %q", endStr)
	}
	return start, end, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
