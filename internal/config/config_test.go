package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/insight-engine/pkg/logging"
)

var allKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_PRETTY",
	"TEXT_MIN_LENGTH", "TEXT_MAX_LENGTH",
	"RATE_LIMIT_COOLDOWN", "RATE_LIMIT_HOURLY", "RATE_LIMIT_DAILY", "RATE_LIMIT_SESSION",
	"CACHE_BACKEND", "CACHE_TTL", "REDIS_URL", "SWEEP_INTERVAL",
	"PROVIDER_TIMEOUT", "PROVIDER_RPS", "PROVIDER_BURST",
	"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_COMPREHEND_CLASSIFIER_ARN",
	"AZURE_LANGUAGE_ENDPOINT", "AZURE_LANGUAGE_CREDENTIAL_KEY", "AZURE_LANGUAGE_CREDIANTIAL_KEY",
	"GOOGLE_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS",
}

// clearEnv blanks every variable the loader reads; empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.Logging.Level != logging.LevelInfo || cfg.Logging.Pretty {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Text.Min != 3 || cfg.Text.Max != 5000 {
		t.Errorf("Text = %+v, want {3 5000}", cfg.Text)
	}
	rl := cfg.RateLimit
	if rl.Cooldown != 5*time.Second || rl.HourlyLimit != 50 || rl.DailyLimit != 200 || rl.SessionLimit != 25 {
		t.Errorf("RateLimit = %+v", rl)
	}
	if cfg.CacheBackend != BackendMemory || cfg.CacheTTL != 5*time.Minute {
		t.Errorf("cache = %q/%s", cfg.CacheBackend, cfg.CacheTTL)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Errorf("ProviderTimeout = %s, want 10s", cfg.ProviderTimeout)
	}
	if cfg.AWS.Region != "us-east-1" {
		t.Errorf("AWS.Region = %q", cfg.AWS.Region)
	}
	if cfg.AWS.RequestsPerSecond != 5 || cfg.AWS.Burst != 10 {
		t.Errorf("AWS throttle = %v/%d", cfg.AWS.RequestsPerSecond, cfg.AWS.Burst)
	}
	if cfg.Azure.Timeout != cfg.ProviderTimeout {
		t.Errorf("Azure.Timeout = %s, want provider timeout", cfg.Azure.Timeout)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("TEXT_MAX_LENGTH", "1000")
	t.Setenv("RATE_LIMIT_COOLDOWN", "2")
	t.Setenv("RATE_LIMIT_HOURLY", "10")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("PROVIDER_RPS", "2.5")
	t.Setenv("AZURE_LANGUAGE_ENDPOINT", "https://res.cognitiveservices.azure.com")
	t.Setenv("AZURE_LANGUAGE_CREDENTIAL_KEY", "azure-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Port != "8081" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Logging.Level != logging.LevelDebug || !cfg.Logging.Pretty {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Text.Max != 1000 {
		t.Errorf("Text.Max = %d", cfg.Text.Max)
	}
	if cfg.RateLimit.Cooldown != 2*time.Second {
		t.Errorf("Cooldown = %s, want 2s (bare seconds)", cfg.RateLimit.Cooldown)
	}
	if cfg.RateLimit.HourlyLimit != 10 {
		t.Errorf("HourlyLimit = %d", cfg.RateLimit.HourlyLimit)
	}
	if cfg.CacheBackend != BackendRedis || cfg.CacheTTL != 90*time.Second {
		t.Errorf("cache = %q/%s", cfg.CacheBackend, cfg.CacheTTL)
	}
	if cfg.Google.RequestsPerSecond != 2.5 {
		t.Errorf("Google.RequestsPerSecond = %v", cfg.Google.RequestsPerSecond)
	}
	if cfg.Azure.Key != "azure-key" || cfg.Google.APIKey != "google-key" {
		t.Errorf("keys = %q/%q", cfg.Azure.Key, cfg.Google.APIKey)
	}
}

func TestFromEnv_LegacyAzureKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_LANGUAGE_CREDIANTIAL_KEY", "legacy")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Azure.Key != "legacy" {
		t.Errorf("Azure.Key = %q, want legacy", cfg.Azure.Key)
	}

	t.Setenv("AZURE_LANGUAGE_CREDENTIAL_KEY", "current")
	cfg, err = FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Azure.Key != "current" {
		t.Errorf("Azure.Key = %q, want current to win", cfg.Azure.Key)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"non-numeric port", "PORT", "http", "PORT"},
		{"bad level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"bad bool", "LOG_PRETTY", "maybe", "LOG_PRETTY"},
		{"bad integer", "RATE_LIMIT_DAILY", "many", "RATE_LIMIT_DAILY"},
		{"zero hourly", "RATE_LIMIT_HOURLY", "0", "hourly_limit"},
		{"bad duration", "CACHE_TTL", "soon", "CACHE_TTL"},
		{"negative ttl", "CACHE_TTL", "-1m", "CACHE_TTL"},
		{"zero timeout", "PROVIDER_TIMEOUT", "0", "PROVIDER_TIMEOUT"},
		{"unknown backend", "CACHE_BACKEND", "memcached", "CACHE_BACKEND"},
		{"min above max", "TEXT_MIN_LENGTH", "6000", "TEXT_MAX_LENGTH"},
		{"zero min", "TEXT_MIN_LENGTH", "0", "TEXT_MIN_LENGTH"},
		{"bad rps", "PROVIDER_RPS", "fast", "PROVIDER_RPS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			if err == nil {
				t.Fatal("FromEnv() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv only fills unset variables, so drop the blanks for the
	// keys the file provides. t.Setenv restores them afterwards.
	os.Unsetenv("PORT")
	os.Unsetenv("RATE_LIMIT_SESSION")
	t.Setenv("TEXT_MAX_LENGTH", "800")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "PORT=4000\nRATE_LIMIT_SESSION=5\nTEXT_MAX_LENGTH=9999\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "4000" {
		t.Errorf("Port = %q, want 4000 from file", cfg.Port)
	}
	if cfg.RateLimit.SessionLimit != 5 {
		t.Errorf("SessionLimit = %d, want 5 from file", cfg.RateLimit.SessionLimit)
	}
	if cfg.Text.Max != 800 {
		t.Errorf("Text.Max = %d, want environment value 800", cfg.Text.Max)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("Load() with a missing explicit file should fail")
	}
}
