// Package config provides centralized configuration management for the
// import service and CLI. It loads configuration from environment variables
// with sensible defaults and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Commit backends
const (
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Commit   CommitConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Schema   SchemaConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"3m"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds non-commit requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings for the postgres backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Required when
	// COMMIT_BACKEND=postgres. Supports DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema creates the import tables on startup (default: true)
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"true"`
}

// CommitConfig selects and tunes the commit backend.
type CommitConfig struct {
	// Backend is one of postgres, http, memory (default: postgres)
	Backend string `env:"COMMIT_BACKEND" default:"postgres"`

	// Endpoint is the remote import URL; required when COMMIT_BACKEND=http.
	// "{entity}" is replaced with the entity key.
	Endpoint string `env:"COMMIT_ENDPOINT"`

	// APIKey is sent as a bearer token to the http backend
	APIKey string `env:"COMMIT_API_KEY"`

	// Timeout bounds one batch submit (default: 2m)
	Timeout time.Duration `env:"COMMIT_TIMEOUT" default:"2m"`

	// MaxConcurrent is the number of batches in flight at once (default: 4)
	MaxConcurrent int `env:"COMMIT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a commit waits for a free slot (default: 15s)
	MaxWaitTime time.Duration `env:"COMMIT_MAX_WAIT_TIME" default:"15s"`

	// DefaultPolicy applies when a commit request names none
	DefaultPolicy string `env:"COMMIT_DEFAULT_POLICY" default:"skip-invalid"`
}

// UploadConfig holds preview settings.
type UploadConfig struct {
	// MaxFileSize is the maximum upload size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// SessionTTL is how long a preview can wait for its commit (default: 30m)
	SessionTTL time.Duration `env:"UPLOAD_SESSION_TTL" default:"30m"`

	// ExtraFields is the default overflow policy: ignore or reject
	ExtraFields string `env:"UPLOAD_EXTRA_FIELDS" default:"ignore"`

	RowSamples   int `env:"UPLOAD_ROW_SAMPLES" default:"10"`
	ErrorSamples int `env:"UPLOAD_ERROR_SAMPLES" default:"20"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for preview and commit (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`

	// BurstFactor scales the token bucket size from the per-minute rate (default: 0.2)
	BurstFactor float64 `env:"RATE_LIMIT_BURST_FACTOR" default:"0.2"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys lists accepted keys as name:key pairs, or bare keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// SchemaConfig locates additional entity catalog files.
type SchemaConfig struct {
	// Dir holds *.yaml entity definitions loaded at startup (optional)
	Dir string `env:"SCHEMA_DIR"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
