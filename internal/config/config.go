// Package config provides centralized configuration management for the application.
// It loads configuration from struct-tag defaults, an optional YAML file and
// environment variables, then validates all settings on startup to fail fast
// on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Import   ImportConfig    `yaml:"import"`
	Rate     RateLimitConfig `yaml:"rate"`
	Security SecurityConfig  `yaml:"security"`
	Auth     AuthConfig      `yaml:"auth"`
	Logging  LoggingConfig   `yaml:"logging"`
	Audit    AuditConfig     `yaml:"audit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of imports parsed at once (default: 2)
	MaxConcurrent int `yaml:"max_concurrent" env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 10s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// ReadTimeout bounds reading an uploaded file (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"IMPORT_READ_TIMEOUT" default:"30s"`

	// SchemaMode is "free" (any header row) or "fixed" (required columns) (default: free)
	SchemaMode string `yaml:"schema_mode" env:"IMPORT_SCHEMA_MODE" default:"free"`

	// Schema is the registered schema key used in fixed mode (default: employee_rewards)
	Schema string `yaml:"schema" env:"IMPORT_SCHEMA" default:"employee_rewards"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `yaml:"import_limit" env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `yaml:"enable_csp" env:"SECURITY_ENABLE_CSP" default:"true"`

	// APIKeys grants admin access to API clients via X-API-Key
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`
}

// AuthConfig holds the fixed sign-in credentials and session settings.
type AuthConfig struct {
	// AdminUsername is the admin login (default: admin)
	AdminUsername string `yaml:"admin_username" env:"AUTH_ADMIN_USERNAME" default:"admin"`

	// AdminPassword is the admin password (default: admin123)
	AdminPassword string `yaml:"admin_password" env:"AUTH_ADMIN_PASSWORD" default:"admin123"`

	// EmployeePassword is shared by every employee login (default: password123)
	EmployeePassword string `yaml:"employee_password" env:"AUTH_EMPLOYEE_PASSWORD" default:"password123"`

	// SessionTTL is how long a session stays valid without activity (default: 8h)
	SessionTTL time.Duration `yaml:"session_ttl" env:"AUTH_SESSION_TTL" default:"8h"`

	// ReapInterval is how often expired sessions are removed (default: 5m)
	ReapInterval time.Duration `yaml:"reap_interval" env:"AUTH_REAP_INTERVAL" default:"5m"`

	// CookieName is the session cookie name (default: hrpulse_session)
	CookieName string `yaml:"cookie_name" env:"AUTH_COOKIE_NAME" default:"hrpulse_session"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// AuditConfig holds in-memory audit log settings.
type AuditConfig struct {
	// Capacity is the number of entries kept before the oldest are dropped (default: 1000)
	Capacity int `yaml:"capacity" env:"AUDIT_CAPACITY" default:"1000"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
