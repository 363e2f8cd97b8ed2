// Package api exposes forecasts, risk timelines, health tips and alert
// subscriptions over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/internal/alerting"
	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/database"
	"github.com/smukkama/aqi-forecaster/internal/forecast"
	"github.com/smukkama/aqi-forecaster/internal/insights"
	"github.com/smukkama/aqi-forecaster/internal/metrics"
	"github.com/smukkama/aqi-forecaster/internal/model"
	"github.com/smukkama/aqi-forecaster/internal/tips"
	"github.com/smukkama/aqi-forecaster/pkg/config"
)

// Forecaster runs single-pollutant forecasts. Project runs an already
// loaded model.
type Forecaster interface {
	Forecast(ctx context.Context, req forecast.Request) ([]forecast.Point, error)
	Project(ctx context.Context, m model.Forecaster, pollutant aqi.Pollutant, unit model.Unit, h forecast.Horizon, weight *float64) ([]forecast.Point, error)
}

// Aggregator runs the combined multi-pollutant forecast
type Aggregator interface {
	Aggregate(ctx context.Context, req forecast.Request) ([]forecast.Point, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*aqi.HealthProfile, error)
	UpsertProfile(ctx context.Context, userID string, p *aqi.HealthProfile) error
}

type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *database.Subscription) error
	ListUserSubscriptions(ctx context.Context, userID string) ([]database.Subscription, error)
	DeleteSubscription(ctx context.Context, id, userID string) error
}

type ModelRegistry interface {
	ListModels(ctx context.Context, region string) ([]database.ModelRecord, error)
	GetModel(ctx context.Context, id string) (*forecast.TrainedModel, error)
	ModelExists(ctx context.Context, region, pollutant, frequency string) (bool, error)
	DeleteModel(ctx context.Context, id string) error
}

type DatasetStore interface {
	ListDatasets(ctx context.Context, region string) ([]database.Dataset, error)
}

// InsightService summarizes the uploaded datasets as charts
type InsightService interface {
	YearlyTrend(ctx context.Context, region, pollutant string) (*insights.Chart, error)
	SeasonalVariation(ctx context.Context, region, pollutant string, year int) (*insights.Chart, error)
	DailyTrend(ctx context.Context, region, pollutant string, start, end time.Time) (*insights.Chart, error)
	TopRegions(ctx context.Context, year int, pollutant string, limit int) (*insights.Chart, error)
}

// AlertChecker evaluates every subscription on demand
type AlertChecker interface {
	EvaluateAll(ctx context.Context, sendNotifications bool) ([]alerting.TriggeredAlert, error)
}

// ActiveAlertStore serves the dashboard view of triggered alerts
type ActiveAlertStore interface {
	ListForUser(ctx context.Context, userID string) ([]alerting.TriggeredAlert, error)
	Dismiss(ctx context.Context, userID, subscriptionID string) error
}

// Dependencies are the collaborators behind the HTTP handlers
type Dependencies struct {
	Forecaster    Forecaster
	Aggregator    Aggregator
	Profiles      ProfileStore
	Subscriptions SubscriptionStore
	Models        ModelRegistry
	Datasets      DatasetStore
	Insights      InsightService
	Alerts        AlertChecker
	ActiveAlerts  ActiveAlertStore
	Tips          tips.Generator
}

// Server is the HTTP API server
type Server struct {
	config   config.HTTPConfig
	router   *gin.Engine
	server   *http.Server
	handlers *Handlers
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewServer creates the router and registers every route
func NewServer(cfg config.HTTPConfig, auth config.AuthConfig, deps Dependencies, logger *zap.Logger, m *metrics.Metrics) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), MetricsMiddleware(m))

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: NewHandlers(deps, logger),
		logger:   logger,
	}
	s.setupRoutes([]byte(auth.JWTSecret))

	return s
}

func (s *Server) setupRoutes(secret []byte) {
	h := s.handlers

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.Use(AuthMiddleware(secret, s.logger))
	{
		v1.GET("/forecast", h.GetForecast)
		v1.GET("/forecast/risk-timeline", h.GetRiskTimeline)
		v1.GET("/forecast/health-tip", h.GetHealthTip)
		v1.GET("/forecast/calendar", h.GetForecastCalendar)

		v1.GET("/insights/trend", h.GetYearlyTrend)
		v1.GET("/insights/personalized-trend", h.GetPersonalizedTrend)
		v1.GET("/insights/seasonal", h.GetSeasonalVariation)
		v1.GET("/insights/daily-trend", h.GetDailyTrend)
		v1.GET("/insights/top-regions", h.GetTopRegions)

		v1.GET("/profile", h.GetProfile)
		v1.PUT("/profile", h.PutProfile)

		v1.POST("/alerts/subscribe", h.Subscribe)
		v1.GET("/alerts/my-subscriptions", h.ListMySubscriptions)
		v1.DELETE("/alerts/unsubscribe/:id", h.Unsubscribe)
		v1.GET("/alerts/check", RequireRole(RoleAdmin), h.CheckAlerts)

		v1.GET("/dashboard/alerts", h.DashboardAlerts)
		v1.DELETE("/dashboard/alerts/:id", h.DismissAlert)

		v1.GET("/datasets", h.ListDatasets)

		v1.GET("/models/check-exists", h.CheckModelExists)
		v1.GET("/models/:id/preview", h.PreviewModel)
		v1.POST("/models/compare", h.CompareModels)

		admin := v1.Group("/models", RequireRole(RoleAdmin))
		admin.GET("", h.ListModels)
		admin.DELETE("/:id", h.DeleteModel)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts serving in the background
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server listening", zap.Int("port", s.config.Port))
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(timeout time.Duration) error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.wg.Wait()
	return err
}
