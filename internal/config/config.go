package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Fixture/results data source
	ScraperBaseURL string        `envconfig:"SCRAPER_BASE_URL" default:"https://afltables.com/afl"`
	ScraperTimeout time.Duration `envconfig:"SCRAPER_TIMEOUT" default:"30s"`

	// AI inference service
	PredictorBaseURL   string        `envconfig:"PREDICTOR_BASE_URL" required:"true"`
	PredictorAPIKey    string        `envconfig:"PREDICTOR_API_KEY" default:""`
	PredictorTimeout   time.Duration `envconfig:"PREDICTOR_TIMEOUT" default:"60s"`
	PredictorRateLimit float64       `envconfig:"PREDICTOR_RATE_LIMIT" default:"2"` // requests per second
	ModelVersion       string        `envconfig:"MODEL_VERSION" default:"1.0.0"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"afl_tips"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"afl_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv     string `envconfig:"APP_ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort int    `envconfig:"SERVER_PORT" default:"8080"`

	// Scheduler
	EnableScheduler      bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	SchedulerTick        time.Duration `envconfig:"SCHEDULER_TICK" default:"30s"`
	StopGracePeriod      time.Duration `envconfig:"STOP_GRACE_PERIOD" default:"30s"`
	ScrapeUpcomingCron   string        `envconfig:"SCRAPE_UPCOMING_CRON" default:"0 6 * * 2"`
	ScrapeResultsCron    string        `envconfig:"SCRAPE_RESULTS_CRON" default:"0 8 * * 1"`
	GenerateTipsCron     string        `envconfig:"GENERATE_TIPS_CRON" default:"0 10 * * 2"`
	UpdateAccuracyCron   string        `envconfig:"UPDATE_ACCURACY_CRON" default:"0 9 * * 1"`
	FullWeeklyUpdateCron string        `envconfig:"FULL_WEEKLY_UPDATE_CRON" default:"0 5 * * 2"`
	HealthCheckCron      string        `envconfig:"HEALTH_CHECK_CRON" default:"0 7 * * *"`

	// Ingestion
	UpcomingWindowDays  int           `envconfig:"UPCOMING_WINDOW_DAYS" default:"14"`
	ResultsLookbackDays int           `envconfig:"RESULTS_LOOKBACK_DAYS" default:"7"`
	IngestMaxRetries    int           `envconfig:"INGEST_MAX_RETRIES" default:"3"`
	IngestRetryBase     time.Duration `envconfig:"INGEST_RETRY_BASE" default:"1s"`

	// Tip generation
	TipsWindowDays int `envconfig:"TIPS_WINDOW_DAYS" default:"7"`
	// Threshold for recommending a bet on the favored side. The product UI
	// suggested 0.7 as a placeholder; it is a default here, not a rule.
	BetConfidenceThreshold float64 `envconfig:"BET_CONFIDENCE_THRESHOLD" default:"0.7"`

	// Caching TTL
	CacheTTLSnapshots time.Duration `envconfig:"CACHE_TTL_SNAPSHOTS" default:"10m"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PredictorBaseURL == "" {
		return fmt.Errorf("PREDICTOR_BASE_URL is required")
	}
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}
	if c.BetConfidenceThreshold < 0 || c.BetConfidenceThreshold > 1 {
		return fmt.Errorf("BET_CONFIDENCE_THRESHOLD must be between 0 and 1")
	}
	if c.IngestMaxRetries < 0 {
		return fmt.Errorf("INGEST_MAX_RETRIES must be non-negative")
	}
	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
