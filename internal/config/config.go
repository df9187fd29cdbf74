// Package config loads the gateway's settings from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env  string `env:"APP_ENV" env-default:"development"`
	Port string `env:"PORT" env-default:"8080"`

	// AllowOrigin is echoed in Access-Control-Allow-Origin on every response.
	AllowOrigin string `env:"ALLOW_ORIGIN" env-required:"true"`

	Auth    AuthConfig
	Webhook WebhookConfig

	SentryDSN string `env:"SENTRY_DSN"`
}

type AuthConfig struct {
	AdminPIN      string `env:"ADMIN_PIN" env-required:"true"`
	SigningSecret string `env:"SIGNING_SECRET" env-required:"true"`
}

// WebhookConfig points at the audit sink. An empty URL disables delivery.
type WebhookConfig struct {
	URL     string        `env:"DISCORD_WEBHOOK_URL"`
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" env-default:"0s"`
}

func (c Config) Addr() string {
	return net.JoinHostPort("", c.Port)
}

type Options struct {
	// DotEnvFiles are loaded before reading the environment; variables that
	// are already set win. Missing files are ignored.
	DotEnvFiles []string
}

func Load(options Options) (*Config, error) {
	for _, file := range options.DotEnvFiles {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	c.AllowOrigin = strings.TrimSpace(c.AllowOrigin)
	c.Auth.AdminPIN = strings.TrimSpace(c.Auth.AdminPIN)
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)
}

func (c *Config) validate() error {
	if c.AllowOrigin == "" {
		return fmt.Errorf("ALLOW_ORIGIN must not be blank")
	}
	if c.Auth.AdminPIN == "" {
		return fmt.Errorf("ADMIN_PIN must not be blank")
	}
	if strings.TrimSpace(c.Auth.SigningSecret) == "" {
		return fmt.Errorf("SIGNING_SECRET must not be blank")
	}
	if c.Webhook.Timeout < 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must not be negative")
	}
	if c.Webhook.URL != "" {
		parsed, err := url.Parse(c.Webhook.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("DISCORD_WEBHOOK_URL must be an absolute http(s) url")
		}
	}
	return nil
}
