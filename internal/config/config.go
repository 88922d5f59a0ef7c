package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // carrier time zones must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	CarrierTimeout       time.Duration
	CarrierCacheTTL      time.Duration
	CarrierInsecureTLS   bool
	CarrierRatePerMinute int64
	BreakerMinRequests   int
	BreakerFailureRatio  float64
	BreakerOpenFor       time.Duration

	TrackingTimezone string
	Zone             *time.Location
	DPDBaseURL       string
	GLSBaseURL       string
	HereBaseURL      string
	HereAppID        string
	HereAppCode      string
	HereLayerID      string
	ContactMapping   string

	APIRateLimitMax    int
	APIRateLimitWindow time.Duration

	LogFormat            string
	LogLevel             string
	MetricsNamespace     string
	EnableMetrics        bool
	EnableTracing        bool
	OTLPEndpoint         string
	TracingSamplingRatio float64
	MetricsBucketsMS     string

	EnablePprof        bool
	PprofUser          string
	PprofPass          string
	HealthRedisTimeout time.Duration
	ShutdownTimeout    time.Duration

	SecurityHeaders bool
	EnableHSTS      bool
	HSTSMaxAge      int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CarrierTimeout:       parseDuration(k.String("CARRIER_TIMEOUT"), "10s"),
		CarrierCacheTTL:      parseDuration(k.String("CARRIER_CACHE_TTL"), "0s"),
		CarrierInsecureTLS:   parseBool(k.String("CARRIER_INSECURE_TLS")),
		CarrierRatePerMinute: int64(parseInt(k.String("CARRIER_RATE_PER_MINUTE"), 0)),
		BreakerMinRequests:   parseInt(k.String("BREAKER_MIN_REQUESTS"), 5),
		BreakerFailureRatio:  parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:       parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		TrackingTimezone: valueOrDefault(k.String("TRACKING_TIMEZONE"), "Europe/Berlin"),
		DPDBaseURL:       strings.TrimSpace(k.String("DPD_BASE_URL")),
		GLSBaseURL:       strings.TrimSpace(k.String("GLS_BASE_URL")),
		HereBaseURL:      strings.TrimSpace(k.String("HERE_BASE_URL")),
		HereAppID:        strings.TrimSpace(k.String("HERE_APP_ID")),
		HereAppCode:      strings.TrimSpace(k.String("HERE_APP_CODE")),
		HereLayerID:      strings.TrimSpace(k.String("HERE_LAYER_ID")),
		ContactMapping:   strings.ToLower(valueOrDefault(k.String("CONTACT_MAPPING"), "labelled")),

		APIRateLimitMax:    parseInt(k.String("API_RATE_LIMIT_MAX"), 60),
		APIRateLimitWindow: parseDuration(k.String("API_RATE_LIMIT_WINDOW"), "1m"),

		LogFormat:            valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:             valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace:     valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "parceltrack"),
		EnableMetrics:        parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		EnableTracing:        parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		OTLPEndpoint:         strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSamplingRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		MetricsBucketsMS:     strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),

		EnablePprof:        parseBool(k.String("OBS_ENABLE_PPROF")),
		PprofUser:          strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:          strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		HealthRedisTimeout: parseDuration(k.String("HEALTH_READY_REDIS_TIMEOUT"), "300ms"),
		ShutdownTimeout:    parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),

		SecurityHeaders: parseBoolDefault(k.String("SECURITY_HEADERS"), true),
		EnableHSTS:      parseBool(k.String("SECURITY_HSTS")),
		HSTSMaxAge:      parseInt(k.String("SECURITY_HSTS_MAX_AGE"), 31536000),
	}

	zone, err := time.LoadLocation(cfg.TrackingTimezone)
	if err != nil {
		return nil, fmt.Errorf("TRACKING_TIMEZONE: %w", err)
	}
	cfg.Zone = zone

	switch cfg.ContactMapping {
	case "labelled", "labeled", "vendor":
	default:
		return nil, fmt.Errorf("CONTACT_MAPPING must be labelled or vendor, got %q", cfg.ContactMapping)
	}
	if cfg.CarrierTimeout <= 0 {
		return nil, errors.New("CARRIER_TIMEOUT must be positive")
	}
	if cfg.BreakerFailureRatio <= 0 || cfg.BreakerFailureRatio > 1 {
		return nil, errors.New("BREAKER_FAILURE_RATIO must be within (0, 1]")
	}
	if cfg.CarrierCacheTTL > 0 && cfg.RedisURL == "" {
		return nil, errors.New("CARRIER_CACHE_TTL requires REDIS_URL")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return v
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return v
	}
	return fallback
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
