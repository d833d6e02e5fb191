// Package config loads the server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/insight-engine/pkg/logging"
	"github.com/Sternrassler/insight-engine/pkg/provider/aws"
	"github.com/Sternrassler/insight-engine/pkg/provider/azure"
	"github.com/Sternrassler/insight-engine/pkg/provider/google"
	"github.com/Sternrassler/insight-engine/pkg/ratelimit"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// TextLimits bounds the submitted text length in runes, after trimming.
type TextLimits struct {
	Min int
	Max int
}

// Config is the complete server configuration.
type Config struct {
	Port    string
	Logging logging.Config

	Text      TextLimits
	RateLimit ratelimit.Config

	CacheBackend  string
	CacheTTL      time.Duration
	RedisURL      string
	SweepInterval time.Duration

	ProviderTimeout time.Duration
	AWS             aws.Config
	Azure           azure.Config
	Google          google.Config
}

// Load reads .env (if present) or the given files, then the environment.
// Variables already set in the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	p := parser{}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(strings.ToLower(getEnv("LOG_LEVEL", string(logCfg.Level))))
	logCfg.Pretty = p.getBool("LOG_PRETTY", false)

	limits := ratelimit.DefaultConfig()
	limits.Cooldown = p.getDuration("RATE_LIMIT_COOLDOWN", limits.Cooldown)
	limits.HourlyLimit = p.getInt("RATE_LIMIT_HOURLY", limits.HourlyLimit)
	limits.DailyLimit = p.getInt("RATE_LIMIT_DAILY", limits.DailyLimit)
	limits.SessionLimit = p.getInt("RATE_LIMIT_SESSION", limits.SessionLimit)

	rps := p.getFloat("PROVIDER_RPS", 5)
	burst := p.getInt("PROVIDER_BURST", 10)
	timeout := p.getDuration("PROVIDER_TIMEOUT", 10*time.Second)

	cfg := &Config{
		Port:    getEnv("PORT", "3000"),
		Logging: logCfg,
		Text: TextLimits{
			Min: p.getInt("TEXT_MIN_LENGTH", 3),
			Max: p.getInt("TEXT_MAX_LENGTH", 5000),
		},
		RateLimit:       limits,
		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", BackendMemory)),
		CacheTTL:        p.getDuration("CACHE_TTL", 5*time.Minute),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		SweepInterval:   p.getDuration("SWEEP_INTERVAL", 5*time.Minute),
		ProviderTimeout: timeout,
		AWS: aws.Config{
			Region:            getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:       os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
			ClassifierARN:     os.Getenv("AWS_COMPREHEND_CLASSIFIER_ARN"),
			RequestsPerSecond: rps,
			Burst:             burst,
		},
		Azure: azure.Config{
			Endpoint: os.Getenv("AZURE_LANGUAGE_ENDPOINT"),
			// The misspelled name is still read for existing deployments.
			Key:               getEnv("AZURE_LANGUAGE_CREDENTIAL_KEY", os.Getenv("AZURE_LANGUAGE_CREDIANTIAL_KEY")),
			Timeout:           timeout,
			RequestsPerSecond: rps,
			Burst:             burst,
		},
		Google: google.Config{
			APIKey:            os.Getenv("GOOGLE_API_KEY"),
			CredentialsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			RequestsPerSecond: rps,
			Burst:             burst,
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric (got %q)", c.Port))
	}

	switch c.Logging.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error (got %q)", c.Logging.Level))
	}

	if c.Text.Min < 1 {
		errs = append(errs, fmt.Errorf("TEXT_MIN_LENGTH must be >= 1 (got %d)", c.Text.Min))
	}
	if c.Text.Max < c.Text.Min {
		errs = append(errs, fmt.Errorf("TEXT_MAX_LENGTH must be >= TEXT_MIN_LENGTH (got %d < %d)", c.Text.Max, c.Text.Min))
	}

	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be memory or redis (got %q)", c.CacheBackend))
	}

	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be > 0 (got %s)", c.CacheTTL))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("SWEEP_INTERVAL must be >= 0 (got %s)", c.SweepInterval))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be > 0 (got %s)", c.ProviderTimeout))
	}

	return errors.Join(errs...)
}

// getEnv returns the environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed variables and collects every parse error.
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return v
}

func (p *parser) getFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return def
	}
	return v
}

func (p *parser) getBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return def
	}
	return v
}

// getDuration accepts Go durations ("5s", "10m") or a bare number of seconds.
func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return v
}
