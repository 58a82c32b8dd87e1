// Package config handles loading and validation of workbench configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Document source kinds.
const (
	DocumentSourceBackend = "backend"
	DocumentSourceS3      = "s3"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
}

// BackendConfig points the workbench at the AP REST backend.
type BackendConfig struct {
	BaseURL        string `mapstructure:"BASE_URL" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout for backend calls.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig holds Redis connection details. When Enabled is false, sessions
// and submit locks are kept in process memory.
type RedisConfig struct {
	Enabled      bool   `mapstructure:"ENABLED" yaml:"enabled"`
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// SessionConfig controls the lifetime of workbench sessions.
type SessionConfig struct {
	TTLMinutes int `mapstructure:"TTL_MINUTES" yaml:"ttl_minutes"`
}

// TTL returns the idle lifetime of a stored session.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// JobsConfig controls ingestion job polling.
type JobsConfig struct {
	PollIntervalMS     int `mapstructure:"POLL_INTERVAL_MS" yaml:"poll_interval_ms"`
	MaxLifetimeMinutes int `mapstructure:"MAX_LIFETIME_MINUTES" yaml:"max_lifetime_minutes"`
}

// PollInterval returns the fixed delay between job status polls.
func (c JobsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// MaxLifetime bounds how long a single job may be watched.
func (c JobsConfig) MaxLifetime() time.Duration {
	return time.Duration(c.MaxLifetimeMinutes) * time.Minute
}

// DocumentsConfig selects where source PDFs are read from.
type DocumentsConfig struct {
	Source            string `mapstructure:"SOURCE" yaml:"source"`
	MaxOpenHandles    int    `mapstructure:"MAX_OPEN_HANDLES" yaml:"max_open_handles"`
	SweepSeconds      int    `mapstructure:"SWEEP_SECONDS" yaml:"sweep_seconds"`
	S3Bucket          string `mapstructure:"S3_BUCKET" yaml:"s3_bucket"`
	S3Region          string `mapstructure:"S3_REGION" yaml:"s3_region"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT" yaml:"s3_endpoint"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID" yaml:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY" yaml:"s3_secret_access_key"`
	S3Prefix          string `mapstructure:"S3_PREFIX" yaml:"s3_prefix"`
}

// SweepInterval is how often handles of expired sessions are released.
func (c DocumentsConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

// RulesConfig holds automation-rule settings.
type RulesConfig struct {
	// PromoteThreshold is the minimum heuristic confidence for "promote to rule".
	PromoteThreshold float64 `mapstructure:"PROMOTE_THRESHOLD" yaml:"promote_threshold"`
}

// SubmitGuardConfig bounds how long a save or transition may hold its lock.
type SubmitGuardConfig struct {
	TTLSeconds int `mapstructure:"TTL_SECONDS" yaml:"ttl_seconds"`
}

// TTL returns the lock expiry.
func (c SubmitGuardConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RateLimitConfig bounds expensive per-session calls. Limits apply only when
// Redis is enabled.
type RateLimitConfig struct {
	CopilotPerMinute int `mapstructure:"COPILOT_PER_MINUTE" yaml:"copilot_per_minute"`
	UploadsPerMinute int `mapstructure:"UPLOADS_PER_MINUTE" yaml:"uploads_per_minute"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server      ServerConfig      `mapstructure:"SERVER" yaml:"server"`
	Backend     BackendConfig     `mapstructure:"BACKEND" yaml:"backend"`
	Redis       RedisConfig       `mapstructure:"REDIS" yaml:"redis"`
	Session     SessionConfig     `mapstructure:"SESSION" yaml:"session"`
	Jobs        JobsConfig        `mapstructure:"JOBS" yaml:"jobs"`
	Documents   DocumentsConfig   `mapstructure:"DOCUMENTS" yaml:"documents"`
	Rules       RulesConfig       `mapstructure:"RULES" yaml:"rules"`
	SubmitGuard SubmitGuardConfig `mapstructure:"SUBMIT_GUARD" yaml:"submit_guard"`
	RateLimit   RateLimitConfig   `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// optionally layered over the YAML file named by CONFIG_FILE, applies
// defaults, unmarshals and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("BACKEND.BASE_URL", "http://127.0.0.1:8000/api")
	v.SetDefault("BACKEND.TIMEOUT_SECONDS", 30)
	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 5)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("SESSION.TTL_MINUTES", 120)
	v.SetDefault("JOBS.POLL_INTERVAL_MS", 2000)
	v.SetDefault("JOBS.MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("DOCUMENTS.SOURCE", DocumentSourceBackend)
	v.SetDefault("DOCUMENTS.MAX_OPEN_HANDLES", 256)
	v.SetDefault("DOCUMENTS.SWEEP_SECONDS", 60)
	v.SetDefault("DOCUMENTS.S3_REGION", "auto")
	v.SetDefault("RULES.PROMOTE_THRESHOLD", 0.8)
	v.SetDefault("SUBMIT_GUARD.TTL_SECONDS", 30)
	v.SetDefault("RATE_LIMIT.COPILOT_PER_MINUTE", 20)
	v.SetDefault("RATE_LIMIT.UPLOADS_PER_MINUTE", 10)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Optional YAML file; environment variables still take precedence.
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.VERSION", "VERSION"},
		// Backend
		{"BACKEND.BASE_URL", "AP_API_BASE_URL"},
		{"BACKEND.TIMEOUT_SECONDS", "AP_API_TIMEOUT_SECONDS"},
		// Redis config
		{"REDIS.ENABLED", "REDIS_ENABLED"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		// Sessions and jobs
		{"SESSION.TTL_MINUTES", "SESSION_TTL_MINUTES"},
		{"JOBS.POLL_INTERVAL_MS", "JOBS_POLL_INTERVAL_MS"},
		{"JOBS.MAX_LIFETIME_MINUTES", "JOBS_MAX_LIFETIME_MINUTES"},
		// Documents
		{"DOCUMENTS.SOURCE", "DOCUMENTS_SOURCE"},
		{"DOCUMENTS.MAX_OPEN_HANDLES", "DOCUMENTS_MAX_OPEN_HANDLES"},
		{"DOCUMENTS.SWEEP_SECONDS", "DOCUMENTS_SWEEP_SECONDS"},
		{"DOCUMENTS.S3_BUCKET", "DOCUMENTS_S3_BUCKET"},
		{"DOCUMENTS.S3_REGION", "DOCUMENTS_S3_REGION"},
		{"DOCUMENTS.S3_ENDPOINT", "DOCUMENTS_S3_ENDPOINT"},
		{"DOCUMENTS.S3_ACCESS_KEY_ID", "DOCUMENTS_S3_ACCESS_KEY_ID"},
		{"DOCUMENTS.S3_SECRET_ACCESS_KEY", "DOCUMENTS_S3_SECRET_ACCESS_KEY"},
		{"DOCUMENTS.S3_PREFIX", "DOCUMENTS_S3_PREFIX"},
		// Rules and guard
		{"RULES.PROMOTE_THRESHOLD", "RULES_PROMOTE_THRESHOLD"},
		{"SUBMIT_GUARD.TTL_SECONDS", "SUBMIT_GUARD_TTL_SECONDS"},
		{"RATE_LIMIT.COPILOT_PER_MINUTE", "RATE_LIMIT_COPILOT_PER_MINUTE"},
		{"RATE_LIMIT.UPLOADS_PER_MINUTE", "RATE_LIMIT_UPLOADS_PER_MINUTE"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg, log); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"backend_url", cfg.Backend.BaseURL,
		"redis_enabled", cfg.Redis.Enabled,
		"document_source", cfg.Documents.Source,
		"s3_access_key", logger.MaskSensitiveString(cfg.Documents.S3AccessKeyID, 3, 2),
		"job_poll_interval", cfg.Jobs.PollInterval(),
	)
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config, log *zap.SugaredLogger) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.Backend.BaseURL); err != nil {
		return fmt.Errorf("invalid backend base URL: %w", err)
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if cfg.Redis.Enabled {
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis address is required when redis is enabled")
		}
		if cfg.Redis.Password == "" && cfg.Redis.UseTLS {
			log.Warn("Redis password is not set, but TLS is enabled. Ensure this is correct for your Redis provider.")
		}
	}

	if cfg.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if cfg.Jobs.PollIntervalMS <= 0 {
		return fmt.Errorf("job poll interval must be positive")
	}
	if cfg.Jobs.MaxLifetimeMinutes <= 0 {
		return fmt.Errorf("job max lifetime must be positive")
	}
	if cfg.SubmitGuard.TTLSeconds <= 0 {
		return fmt.Errorf("submit guard TTL must be positive")
	}
	if cfg.RateLimit.CopilotPerMinute < 0 || cfg.RateLimit.UploadsPerMinute < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if cfg.Rules.PromoteThreshold <= 0 || cfg.Rules.PromoteThreshold > 1 {
		return fmt.Errorf("promote threshold must be in (0, 1]")
	}

	return validateDocumentsConfig(&cfg.Documents)
}

// validateDocumentsConfig checks the document source selection.
func validateDocumentsConfig(cfg *DocumentsConfig) error {
	if cfg.MaxOpenHandles <= 0 {
		return fmt.Errorf("documents max open handles must be positive")
	}
	if cfg.SweepSeconds <= 0 {
		return fmt.Errorf("documents sweep interval must be positive")
	}
	switch cfg.Source {
	case DocumentSourceBackend:
		return nil
	case DocumentSourceS3:
		if cfg.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for the s3 document source")
		}
		if (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
			return fmt.Errorf("S3 access key id and secret must be set together")
		}
		return nil
	default:
		return fmt.Errorf("unknown document source %q", cfg.Source)
	}
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
