package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to components by section.
// Nothing mutates it after Load returns.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Forecast ForecastConfig
	Alerting AlertingConfig
	Tips     TipsConfig
	Training TrainingConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers     []string
	TopicAlerts string
	GroupID     string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type HTTPConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

// ForecastConfig drives the forecast pipeline and the multi-pollutant aggregator
type ForecastConfig struct {
	// SafetyBuffer is added to the day count between the training cutoff and
	// the requested end date so the window is fully covered.
	SafetyBuffer   int
	DefaultPeriods int
	MaxPeriods     int
	// RepresentativePollutant classifies averaged multi-pollutant values
	RepresentativePollutant string
}

type AlertingConfig struct {
	Periods int
	// Frequency overrides the model's native unit when set
	Frequency string
	// Notifier is one of "kafka", "smtp" or "log"
	Notifier  string
	ActiveTTL time.Duration
}

type TipsConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
}

type TrainingConfig struct {
	// DatasetDir holds uploaded dataset files, addressed by their registered filename
	DatasetDir string
	// HoldoutRatio is the trailing share of a series used for MAE/RMSE
	HoldoutRatio float64
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "aqi_user"),
			Password: getEnv("DB_PASSWORD", "aqi_pass"),
			DBName:   getEnv("DB_NAME", "aqi_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicAlerts: getEnv("KAFKA_TOPIC_ALERTS", "aqi.alerts"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "aqi-notification-group"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "aqi-alerts@example.com"),
		},
		HTTP: HTTPConfig{
			Port:         getEnvAsInt("HTTP_PORT", 8000),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Forecast: ForecastConfig{
			SafetyBuffer:            getEnvAsInt("FORECAST_SAFETY_BUFFER", 30),
			DefaultPeriods:          getEnvAsInt("FORECAST_DEFAULT_PERIODS", 7),
			MaxPeriods:              getEnvAsInt("FORECAST_MAX_PERIODS", 3650),
			RepresentativePollutant: getEnv("AGGREGATE_REPRESENTATIVE_POLLUTANT", "NO2"),
		},
		Alerting: AlertingConfig{
			Periods:   getEnvAsInt("ALERT_FORECAST_PERIODS", 3),
			Frequency: getEnv("ALERT_FORECAST_FREQUENCY", ""),
			Notifier:  getEnv("ALERT_NOTIFIER", "kafka"),
			ActiveTTL: getEnvAsDuration("ALERT_ACTIVE_TTL", 7*24*time.Hour),
		},
		Tips: TipsConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:      getEnvAsDuration("TIP_TIMEOUT", 30*time.Second),
		},
		Training: TrainingConfig{
			DatasetDir:   getEnv("DATASET_DIR", "./data/datasets"),
			HoldoutRatio: getEnvAsFloat("TRAIN_HOLDOUT_RATIO", 0.2),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Forecast.SafetyBuffer < 0 {
		return fmt.Errorf("FORECAST_SAFETY_BUFFER must not be negative")
	}
	if c.Forecast.DefaultPeriods <= 0 || c.Forecast.MaxPeriods < c.Forecast.DefaultPeriods {
		return fmt.Errorf("FORECAST_DEFAULT_PERIODS must be positive and not exceed FORECAST_MAX_PERIODS")
	}
	if c.Alerting.Periods <= 0 {
		return fmt.Errorf("ALERT_FORECAST_PERIODS must be positive")
	}
	if c.Training.HoldoutRatio < 0 || c.Training.HoldoutRatio >= 1 {
		return fmt.Errorf("TRAIN_HOLDOUT_RATIO must be in [0, 1)")
	}
	switch c.Alerting.Notifier {
	case "kafka", "smtp", "log":
	default:
		return fmt.Errorf("unknown ALERT_NOTIFIER: %s", c.Alerting.Notifier)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
