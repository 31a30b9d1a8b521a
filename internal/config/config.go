package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Broker       BrokerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Collaborator CollaboratorConfig
	App          AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string
	Environment string // "development", "staging", "production"
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// CacheConfig holds the Redis connection configuration. Redis backs the
// sliding-window rate limiter; it is never used as a cache in front of
// the URL store.
type CacheConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// BrokerConfig holds the RabbitMQ connection used to fan out click
// events to the analytics pipeline. An empty URL disables publishing.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// AuthConfig holds bearer-credential settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// RateLimitConfig holds per-operation-class admission control settings.
type RateLimitConfig struct {
	LoginLimit    int64
	LoginPeriod   time.Duration
	InsightLimit  int64
	InsightPeriod time.Duration
}

// CollaboratorConfig holds settings for the external analytics/AI service.
type CollaboratorConfig struct {
	BaseURL           string
	AnalyticsTimeout  time.Duration
	GenerativeTimeout time.Duration
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	BaseURL          string // Base URL for generating short links
	ShortCodeLen     int
	ShortCodeRetries int
	VisitLogTimeout  time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "linksight"),
			Password: getEnv("DB_PASSWORD", "linksight_secret"),
			DBName:   getEnv("DB_NAME", "linksight"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Cache: CacheConfig{
			Host:     getEnv("RDB_HOST", "localhost"),
			Port:     getEnv("RDB_PORT", "6379"),
			User:     getEnv("RDB_USER", ""),
			Password: getEnv("RDB_PASSWORD", ""),
		},
		Broker: BrokerConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "clicks"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:    int64(getEnvInt("LOGIN_RATE_LIMIT", 5)),
			LoginPeriod:   getEnvDuration("LOGIN_RATE_PERIOD", 15*time.Minute),
			InsightLimit:  int64(getEnvInt("INSIGHT_RATE_LIMIT", 10)),
			InsightPeriod: getEnvDuration("INSIGHT_RATE_PERIOD", time.Minute),
		},
		Collaborator: CollaboratorConfig{
			BaseURL:           getEnv("AI_SERVICE_URL", "http://localhost:8001"),
			AnalyticsTimeout:  getEnvDuration("AI_ANALYTICS_TIMEOUT", 10*time.Second),
			GenerativeTimeout: getEnvDuration("AI_GENERATIVE_TIMEOUT", 20*time.Second),
		},
		App: AppConfig{
			BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
			ShortCodeLen:     getEnvInt("SHORT_CODE_LENGTH", 6),
			ShortCodeRetries: getEnvInt("SHORT_CODE_MAX_RETRIES", 3),
			VisitLogTimeout:  getEnvDuration("VISIT_LOG_TIMEOUT", 5*time.Second),
		},
	}

	if len(cfg.Auth.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be set and at least 32 characters long")
	}

	return cfg, nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// ConnectionString returns the Redis connection string
func (c *CacheConfig) ConnectionString() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s/0", c.User, c.Password, c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
