package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment variables.
type Config struct {
	// Server
	Host string `env:"GATEWAY_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"GATEWAY_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Metrics
	MetricsPath string `env:"METRICS_PATH" envDefault:"/metrics"`

	// NodeEnv controls whether internal error details are elided ("production").
	NodeEnv string `env:"NODE_ENV" envDefault:"development"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// API keys (spec.md §4.C). Primary is required at startup.
	PrimaryAPIKey    string `env:"PUBLIC_DATA_API_KEY"`
	PrimaryKeyExpiry string `env:"API_KEY_EXPIRY"`
	AddressAPIKey    string `env:"PUBLIC_DATA_ADDRESS_API_KEY"`
	BusinessAPIKey   string `env:"PUBLIC_DATA_BUSINESS_API_KEY"`
	ApartmentAPIKey  string `env:"PUBLIC_DATA_APARTMENT_API_KEY"`
	RealEstateAPIKey string `env:"PUBLIC_DATA_REALESTATE_API_KEY"`
	BuildingAPIKey   string `env:"PUBLIC_DATA_BUILDING_API_KEY"`
	SubwayAPIKey     string `env:"PUBLIC_DATA_SUBWAY_API_KEY"`

	// Upstream (spec.md §4.F)
	UpstreamBaseURL         string `env:"UPSTREAM_BASE_URL" envDefault:"https://apis.data.go.kr"`
	UpstreamTimeout         string `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`
	UpstreamMaxRetries      int    `env:"UPSTREAM_MAX_RETRIES" envDefault:"3"`
	UpstreamRetryDelay      string `env:"UPSTREAM_RETRY_DELAY" envDefault:"1s"`
	UpstreamEnableCache     bool   `env:"UPSTREAM_ENABLE_CACHE" envDefault:"true"`
	UpstreamEnableRateLimit bool   `env:"UPSTREAM_ENABLE_RATE_LIMIT" envDefault:"true"`

	// Coordinate validation (spec.md §6 env table). Spec semantics: any
	// value other than the literal string "false" enables the check, so
	// this is read as a raw string rather than a bool.
	StrictKoreaBounds string `env:"STRICT_KOREA_BOUNDS" envDefault:"true"`

	// Health thresholds — policy numbers, not invariants (spec.md §9).
	HealthMemoryPctThreshold      float64 `env:"HEALTH_MEMORY_PCT_THRESHOLD" envDefault:"90"`
	HealthBlockRatePctThreshold   float64 `env:"HEALTH_BLOCK_RATE_PCT_THRESHOLD" envDefault:"50"`
	HealthSuccessRatePctThreshold float64 `env:"HEALTH_SUCCESS_RATE_PCT_THRESHOLD" envDefault:"70"`

	// Slack (optional — if not set, expiry alerting is disabled)
	SlackBotToken     string `env:"SLACK_BOT_TOKEN"`
	SlackAlertChannel string `env:"SLACK_ALERT_CHANNEL"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether error details should be elided from responses.
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// KoreaBoundsEnforced reports whether out-of-Korea-range coordinates should
// produce warnings (spec default: enabled unless explicitly "false").
func (c *Config) KoreaBoundsEnforced() bool {
	return c.StrictKoreaBounds != "false"
}
