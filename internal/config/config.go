// Package config loads the application configuration from the environment.
//
// Configuration comes from environment variables, optionally seeded from a
// .env file in development (godotenv). Parsing into a tagged struct keeps
// every knob, its env var name, and its default in one place instead of
// scattering os.Getenv calls across main.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all server configuration.
type Config struct {
	Port   int    `env:"PORT"    envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/microblog.db"`

	// SessionSecret signs the session JWT cookie. Generate with:
	//   SESSION_SECRET=$(openssl rand -hex 32)
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// OAuth app credentials. Register an OAuth app with the provider and
	// set the callback URL to OAUTH_CALLBACK_URL exactly.
	OAuthClientID     string `env:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	OAuthCallbackURL  string `env:"OAUTH_CALLBACK_URL"`
}

// Load reads .env (if present) and then parses the environment.
//
// A missing .env file is not an error — production deployments set real
// environment variables and ship no .env at all.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.OAuthCallbackURL == "" {
		cfg.OAuthCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

// OAuthConfigured reports whether the provider credentials are present.
// The server still starts without them; the OAuth routes are just not
// registered.
func (c Config) OAuthConfigured() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}
