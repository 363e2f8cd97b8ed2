package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/alerting"
	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/database"
)

type subscriptionRequest struct {
	Region    string `json:"region" binding:"required"`
	Pollutant string `json:"pollutant" binding:"required"`
	Threshold string `json:"threshold" binding:"required"`
}

// Subscribe handles POST /api/v1/alerts/subscribe
func (h *Handlers) Subscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pollutant, err := aqi.ParsePollutant(req.Pollutant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	threshold, err := aqi.ParseCategory(req.Threshold)
	if err != nil || threshold == aqi.CategoryUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid threshold: %q", req.Threshold)})
		return
	}

	sub := &database.Subscription{
		UserID:    c.GetString(ctxUserID),
		Region:    req.Region,
		Pollutant: pollutant.String(),
		Threshold: threshold.String(),
	}

	if err := h.deps.Subscriptions.CreateSubscription(c.Request.Context(), sub); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Subscription already exists"})
			return
		}
		h.logger.Error("Failed to create subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}

	h.logger.Info("Subscription created",
		zap.String("id", sub.ID),
		zap.String("user_id", sub.UserID),
		zap.String("region", sub.Region),
		zap.String("pollutant", sub.Pollutant))

	c.JSON(http.StatusCreated, sub)
}

// ListMySubscriptions handles GET /api/v1/alerts/my-subscriptions
func (h *Handlers) ListMySubscriptions(c *gin.Context) {
	subs, err := h.deps.Subscriptions.ListUserSubscriptions(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		h.logger.Error("Failed to list subscriptions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve subscriptions"})
		return
	}
	if subs == nil {
		subs = []database.Subscription{}
	}
	c.JSON(http.StatusOK, subs)
}

// Unsubscribe handles DELETE /api/v1/alerts/unsubscribe/:id
func (h *Handlers) Unsubscribe(c *gin.Context) {
	id := c.Param("id")
	err := h.deps.Subscriptions.DeleteSubscription(c.Request.Context(), id, c.GetString(ctxUserID))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete subscription", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Subscription %s deleted.", id)})
}

// CheckAlerts handles GET /api/v1/alerts/check (admin only)
// Query parameters:
// - send_email: notify subscribers, defaults to true
func (h *Handlers) CheckAlerts(c *gin.Context) {
	send := true
	if s := c.Query("send_email"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid send_email: %q", s)})
			return
		}
		send = v
	}

	alerts, err := h.deps.Alerts.EvaluateAll(c.Request.Context(), send)
	if err != nil {
		h.logger.Error("Alert evaluation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Alert evaluation failed"})
		return
	}
	if alerts == nil {
		alerts = []alerting.TriggeredAlert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_triggered": len(alerts),
		"alerts":          alerts,
	})
}

// DashboardAlerts handles GET /api/v1/dashboard/alerts
func (h *Handlers) DashboardAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(ctxUserID)

	active, err := h.deps.ActiveAlerts.ListForUser(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load active alerts", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load active alerts"})
		return
	}
	if active == nil {
		active = []alerting.TriggeredAlert{}
	}

	subs, err := h.deps.Subscriptions.ListUserSubscriptions(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to list subscriptions", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve subscriptions"})
		return
	}

	seen := make(map[string]bool)
	regions := []string{}
	for _, s := range subs {
		if !seen[s.Region] {
			seen[s.Region] = true
			regions = append(regions, s.Region)
		}
	}
	sort.Strings(regions)

	status := fmt.Sprintf("%d active alerts", len(active))
	if len(subs) == 0 {
		status = "No alerts configured yet"
	}

	c.JSON(http.StatusOK, gin.H{
		"active_alerts":      active,
		"subscribed_regions": regions,
		"status":             status,
	})
}

// DismissAlert handles DELETE /api/v1/dashboard/alerts/:id
// The id is the subscription that triggered the alert.
func (h *Handlers) DismissAlert(c *gin.Context) {
	if err := h.deps.ActiveAlerts.Dismiss(c.Request.Context(), c.GetString(ctxUserID), c.Param("id")); err != nil {
		h.logger.Error("Failed to dismiss alert", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dismiss alert"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetProfile handles GET /api/v1/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	profile, err := h.deps.Profiles.GetProfile(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PutProfile handles PUT /api/v1/profile
func (h *Handlers) PutProfile(c *gin.Context) {
	var profile aqi.HealthProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.deps.Profiles.UpsertProfile(c.Request.Context(), c.GetString(ctxUserID), &profile); err != nil {
		h.logger.Error("Failed to save profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":     profile,
		"risk_weight": aqi.Weight(&profile),
	})
}

// ListDatasets handles GET /api/v1/datasets?region=
func (h *Handlers) ListDatasets(c *gin.Context) {
	region := c.Query("region")
	if region == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	datasets, err := h.deps.Datasets.ListDatasets(c.Request.Context(), region)
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve datasets"})
		return
	}
	if datasets == nil {
		datasets = []database.Dataset{}
	}
	c.JSON(http.StatusOK, datasets)
}

// ListModels handles GET /api/v1/models (admin only)
func (h *Handlers) ListModels(c *gin.Context) {
	models, err := h.deps.Models.ListModels(c.Request.Context(), c.Query("region"))
	if err != nil {
		h.logger.Error("Failed to list models", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve models"})
		return
	}
	if models == nil {
		models = []database.ModelRecord{}
	}
	c.JSON(http.StatusOK, models)
}

// DeleteModel handles DELETE /api/v1/models/:id (admin only)
func (h *Handlers) DeleteModel(c *gin.Context) {
	id := c.Param("id")
	err := h.deps.Models.DeleteModel(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete model", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete model"})
		return
	}

	h.logger.Info("Model deleted", zap.String("id", id))
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Model %s deleted successfully.", id)})
}
