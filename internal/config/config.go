// Package config loads service settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone lookups must not depend on the host

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Session store backends.
const (
	SessionsDB    = "db"
	SessionsRedis = "redis"
)

// Config is the full service configuration.
type Config struct {
	Addr        string `yaml:"addr"`
	WebDir      string `yaml:"web_dir"`
	DatabaseURL string `yaml:"database_url"`
	Store       string `yaml:"store"`
	// SessionStore selects where sessions live: the main store or Redis.
	SessionStore string `yaml:"session_store"`
	RedisURL     string `yaml:"redis_url"`
	// Timezone defines calendar-day boundaries for "today".
	Timezone string `yaml:"timezone"`

	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`

	TrustForwardAuth   bool `yaml:"trust_forward_auth"`
	SecureCookies      bool `yaml:"secure_cookies"`
	LoginRatePerMinute int  `yaml:"login_rate_per_minute"`

	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`

	OIDC OIDC `yaml:"oidc"`

	location *time.Location
}

// OIDC configures optional single sign-on.
type OIDC struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether enough is set to attempt SSO.
func (o OIDC) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		WebDir:               "web",
		Store:                StorePostgres,
		SessionStore:         SessionsDB,
		Timezone:             "America/Los_Angeles",
		LogFormat:            "text",
		LogLevel:             "info",
		LoginRatePerMinute:   10,
		SessionSweepInterval: time.Hour,
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("WEB_DIR", &c.WebDir)
	str("DATABASE_URL", &c.DatabaseURL)
	str("STORE", &c.Store)
	str("SESSION_STORE", &c.SessionStore)
	str("REDIS_URL", &c.RedisURL)
	str("TIMEZONE", &c.Timezone)
	str("LOG_FORMAT", &c.LogFormat)
	str("LOG_LEVEL", &c.LogLevel)
	str("OIDC_ISSUER", &c.OIDC.Issuer)
	str("OIDC_CLIENT_ID", &c.OIDC.ClientID)
	str("OIDC_CLIENT_SECRET", &c.OIDC.ClientSecret)
	str("OIDC_REDIRECT_URL", &c.OIDC.RedirectURL)

	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	boolean("TRUST_FORWARD_AUTH", &c.TrustForwardAuth)
	boolean("SECURE_COOKIES", &c.SecureCookies)

	if v, ok := lookup("LOGIN_RATE_PER_MINUTE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOGIN_RATE_PER_MINUTE: %w", err))
		} else {
			c.LoginRatePerMinute = n
		}
	}
	if v, ok := lookup("SESSION_SWEEP_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_SWEEP_INTERVAL: %w", err))
		} else {
			c.SessionSweepInterval = d
		}
	}
	return errors.Join(errs...)
}

// Validate checks option combinations and loads the timezone.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}

	switch c.SessionStore {
	case SessionsDB:
	case SessionsRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.SessionStore))
	}

	if c.LoginRatePerMinute < 0 {
		errs = append(errs, errors.New("login rate must not be negative"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("session sweep interval must be positive"))
	}

	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	c.location = loc
	return errors.Join(errs...)
}

// Location is the loaded reference timezone. It is nil until Validate succeeds.
func (c *Config) Location() *time.Location {
	return c.location
}
