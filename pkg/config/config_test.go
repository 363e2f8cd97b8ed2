package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Forecast.SafetyBuffer)
	assert.Equal(t, "NO2", cfg.Forecast.RepresentativePollutant)
	assert.Equal(t, 3, cfg.Alerting.Periods)
	assert.Equal(t, 7*24*time.Hour, cfg.Alerting.ActiveTTL)
	assert.Equal(t, 30*time.Second, cfg.Tips.Timeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FORECAST_SAFETY_BUFFER", "10")
	t.Setenv("ALERT_FORECAST_FREQUENCY", "monthly")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TIP_TIMEOUT", "5s")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Forecast.SafetyBuffer)
	assert.Equal(t, "monthly", cfg.Alerting.Frequency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Tips.Timeout)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_RejectsUnknownNotifier(t *testing.T) {
	t.Setenv("ALERT_NOTIFIER", "pigeon")

	_, err := Load()
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "aqi", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=aqi sslmode=disable", d.ConnectionString())
}

func TestLoad_TrainingHoldout(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.2, cfg.Training.HoldoutRatio, 1e-9)

	t.Setenv("TRAIN_HOLDOUT_RATIO", "1.5")
	_, err = Load()
	assert.Error(t, err)
}
