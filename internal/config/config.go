package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort  string `env:"APP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	KeycloakIssuer        string `env:"KEYCLOAK_ISSUER"`
	KeycloakClientID      string `env:"KEYCLOAK_CLIENT_ID"`
	KeycloakRedirectURL   string `env:"KEYCLOAK_REDIRECT_URL"`
	KeycloakPublicBaseURL string `env:"KEYCLOAK_PUBLIC_BASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	DatabaseDSN string `env:"DATABASE_DSN"`

	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionIdleTTL     time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	AuthResolveTimeout time.Duration `env:"AUTH_RESOLVE_TIMEOUT" envDefault:"2s"`
	ProductCacheTTL    time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"5m"`
	CookieSecure       bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

// GoogleEnabled reports whether all google oauth fields are set.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// KeycloakEnabled reports whether all keycloak fields are set.
func (c Config) KeycloakEnabled() bool {
	return c.KeycloakIssuer != "" && c.KeycloakClientID != "" &&
		c.KeycloakRedirectURL != "" && c.KeycloakPublicBaseURL != ""
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if cfg.DatabaseDSN == "" {
		return Config{}, fmt.Errorf("config: DATABASE_DSN is required")
	}
	if cfg.SessionTTL <= 0 || cfg.SessionIdleTTL <= 0 {
		return Config{}, fmt.Errorf("config: SESSION_TTL and SESSION_IDLE_TTL must be positive")
	}
	if cfg.AuthResolveTimeout <= 0 {
		return Config{}, fmt.Errorf("config: AUTH_RESOLVE_TIMEOUT must be positive")
	}

	return cfg, nil
}
