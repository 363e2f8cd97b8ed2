package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/model"
)

const (
	defaultPreviewLimit = 7
	comparePeriods      = 90
)

// CheckModelExists handles GET /api/v1/models/check-exists
func (h *Handlers) CheckModelExists(c *gin.Context) {
	region, pollutant, ok := requireKey(c)
	if !ok {
		return
	}

	p, err := aqi.ParsePollutant(pollutant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := model.ParseFrequency(c.Query("frequency"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exists, err := h.deps.Models.ModelExists(c.Request.Context(), region, p.String(), string(unit))
	if err != nil {
		h.logger.Error("Failed to check model", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check model"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// PreviewModel handles GET /api/v1/models/:id/preview
// Query parameters:
// - limit: number of native steps, defaults to 7
func (h *Handlers) PreviewModel(c *gin.Context) {
	limit := defaultPreviewLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit: %q", s)})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	tm, err := h.deps.Models.GetModel(ctx, id)
	if errors.Is(err, forecast.ErrModelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load model", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load model"})
		return
	}

	points, err := h.deps.Forecaster.Project(ctx, tm.Forecaster, tm.Pollutant, tm.Unit, forecast.Steps(limit), nil)
	if forecast.IsBadRequest(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Model preview failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Model preview failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"model_id":  tm.ID,
		"region":    tm.Region,
		"pollutant": tm.Pollutant,
		"frequency": tm.Unit,
		"forecast":  forecast.Records(points),
	})
}

type compareRequest struct {
	ModelIDs []string `json:"model_ids" binding:"required,min=1"`
}

type comparedModel struct {
	ModelID   string            `json:"model_id"`
	Region    string            `json:"region"`
	Pollutant aqi.Pollutant     `json:"pollutant"`
	Frequency model.Unit        `json:"frequency"`
	Forecast  []forecast.Record `json:"forecast"`
}

// CompareModels handles POST /api/v1/models/compare
// Every model must share pollutant and frequency. Unknown ids are skipped.
func (h *Handlers) CompareModels(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	var loaded []*forecast.TrainedModel
	for _, id := range req.ModelIDs {
		tm, err := h.deps.Models.GetModel(ctx, id)
		if errors.Is(err, forecast.ErrModelNotFound) {
			continue
		}
		if err != nil {
			h.logger.Error("Failed to load model", zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load model"})
			return
		}
		if len(loaded) > 0 && (tm.Pollutant != loaded[0].Pollutant || tm.Unit != loaded[0].Unit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Models must have the same pollutant and frequency for comparison"})
			return
		}
		loaded = append(loaded, tm)
	}

	models := make([]comparedModel, 0, len(loaded))
	for _, tm := range loaded {
		points, err := h.deps.Forecaster.Project(ctx, tm.Forecaster, tm.Pollutant, tm.Unit, forecast.Steps(comparePeriods), nil)
		if err != nil {
			h.logger.Warn("Skipping model in comparison", zap.String("id", tm.ID), zap.Error(err))
			continue
		}
		models = append(models, comparedModel{
			ModelID:   tm.ID,
			Region:    tm.Region,
			Pollutant: tm.Pollutant,
			Frequency: tm.Unit,
			Forecast:  forecast.Records(points),
		})
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}
