// Package config loads the CLI configuration from environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	TransportHTTP  = "http"
	TransportResty = "resty"

	DefaultBaseURL = "https://kilonova.ro"
	DefaultEnvFile = ".env"
)

// Config holds the CLI configuration, each field can be set by the KN_* environment variable.
type Config struct {
	BaseURL        string        `mapstructure:"kn_base_url"`
	Session        string        `mapstructure:"kn_session"`
	SessionDB      string        `mapstructure:"kn_session_db"`
	Transport      string        `mapstructure:"kn_transport"`
	TimeoutSeconds int64         `mapstructure:"kn_timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`
	RetryCount     int           `mapstructure:"kn_retry_count"`
	LogLevel       string        `mapstructure:"kn_log_level"`
	HTTPDump       bool          `mapstructure:"kn_http_dump"`
}

// Load reads the env file, if it exists, and the environment.
// Variables already present in the environment take precedence over the env file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(`cannot load env file "%s": %w`, envFile, err)
	}

	v := viper.New()
	v.SetDefault("kn_base_url", DefaultBaseURL)
	v.SetDefault("kn_session", "")
	v.SetDefault("kn_session_db", "")
	v.SetDefault("kn_transport", TransportHTTP)
	v.SetDefault("kn_timeout_seconds", 30)
	v.SetDefault("kn_retry_count", 0)
	v.SetDefault("kn_log_level", "warn")
	v.SetDefault("kn_http_dump", false)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.BaseURL == "" {
		return errors.New("invalid KN_BASE_URL: value is empty")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf(`invalid KN_BASE_URL "%s": expected an absolute URL`, c.BaseURL)
	}
	switch c.Transport {
	case TransportHTTP, TransportResty:
	default:
		return fmt.Errorf(`invalid KN_TRANSPORT "%s": expected "%s" or "%s"`, c.Transport, TransportHTTP, TransportResty)
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("invalid KN_TIMEOUT_SECONDS: must not be negative")
	}
	if c.RetryCount < 0 {
		return errors.New("invalid KN_RETRY_COUNT: must not be negative")
	}
	c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second

	if c.SessionDB == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("cannot resolve session store path: %w", err)
		}
		c.SessionDB = filepath.Join(dir, "kilonova", "session.db")
	}
	return nil
}
