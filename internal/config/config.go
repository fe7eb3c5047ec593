package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         string        `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            string        `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"opendesk"`
	Password        string        `envconfig:"DB_PASSWORD"`
	Database        string        `envconfig:"DB_NAME" default:"opendesk"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// AuthConfig holds token signing configuration.
//
// The access and refresh secrets are independent so that knowledge of one
// token kind can never be used to forge the other. There are deliberately
// no fallback values: outside dev mode the service refuses to start
// without both.
type AuthConfig struct {
	AccessSecret  string        `envconfig:"AUTH_ACCESS_SECRET"`
	RefreshSecret string        `envconfig:"AUTH_REFRESH_SECRET"`
	AccessTTL     time.Duration `envconfig:"AUTH_ACCESS_TTL" default:"1h"`
	RefreshTTL    time.Duration `envconfig:"AUTH_REFRESH_TTL" default:"168h"`
	CookieDomain  string        `envconfig:"AUTH_COOKIE_DOMAIN" default:""`
	CookieSecure  bool          `envconfig:"AUTH_COOKIE_SECURE" default:"false"`
	DevMode       bool          `envconfig:"AUTH_DEV_MODE" default:"false"`
}

// SecurityConfig holds password hashing configuration
type SecurityConfig struct {
	Argon2Memory      uint32 `envconfig:"ARGON2_MEMORY" default:"65536"`
	Argon2Iterations  uint32 `envconfig:"ARGON2_ITERATIONS" default:"3"`
	Argon2Parallelism uint8  `envconfig:"ARGON2_PARALLELISM" default:"4"`
	Argon2SaltLength  uint32 `envconfig:"ARGON2_SALT_LENGTH" default:"16"`
	Argon2KeyLength   uint32 `envconfig:"ARGON2_KEY_LENGTH" default:"32"`
}

// RateLimitConfig holds the fixed-window rate limit settings.
// All windows are keyed by client network address.
type RateLimitConfig struct {
	APILimit     int           `envconfig:"RATELIMIT_API_LIMIT" default:"100"`
	APIWindow    time.Duration `envconfig:"RATELIMIT_API_WINDOW" default:"15m"`
	LoginLimit   int           `envconfig:"RATELIMIT_LOGIN_LIMIT" default:"5"`
	LoginWindow  time.Duration `envconfig:"RATELIMIT_LOGIN_WINDOW" default:"15m"`
	UploadLimit  int           `envconfig:"RATELIMIT_UPLOAD_LIMIT" default:"20"`
	UploadWindow time.Duration `envconfig:"RATELIMIT_UPLOAD_WINDOW" default:"60m"`
	RedisAddr    string        `envconfig:"RATELIMIT_REDIS_ADDR" default:""`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"LOG_FORMAT" default:"json"`
	OTELEnabled    bool   `envconfig:"OTEL_ENABLED" default:"false"`
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"opendesk"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION" default:"0.1.0"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Auth.DevMode {
		// Local development only. Never a silent fallback in production:
		// Validate rejects empty secrets whenever DevMode is off.
		if cfg.Auth.AccessSecret == "" {
			cfg.Auth.AccessSecret = "opendesk-dev-access"
		}
		if cfg.Auth.RefreshSecret == "" {
			cfg.Auth.RefreshSecret = "opendesk-dev-refresh"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("AUTH_ACCESS_SECRET is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("AUTH_REFRESH_SECRET is required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	return nil
}
