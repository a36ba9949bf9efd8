// Package config loads the gateway's configuration from ASHFOX_* environment variables.
// Built on the same EnvConfig/Validator pattern eve.evalgo.org uses for its services,
// narrowed from that package's many per-concern Load*Config helpers down to the single
// GatewayConfig this binary needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig provides utilities for loading configuration from environment variables.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a new environment configuration loader with an optional prefix.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

// GetString retrieves a string value from environment with optional default.
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		return value
	}
	return defaultValue
}

// GetInt retrieves an integer value from environment with optional default.
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean value from environment with optional default.
func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDurationMS retrieves a duration value, expressed in milliseconds, from environment.
func (ec *EnvConfig) GetDurationMS(key string, defaultValue time.Duration) time.Duration {
	fullKey := ec.buildKey(key)
	if value := os.Getenv(fullKey); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// PipelineBackend enumerates ASHFOX_NATIVE_PIPELINE_BACKEND.
type PipelineBackend string

const (
	PipelineBackendMemory      PipelineBackend = "memory"
	PipelineBackendPersistence PipelineBackend = "persistence"
)

// DBProvider enumerates ASHFOX_DB_PROVIDER, selecting the pipeline.ProjectRepository
// backend when ASHFOX_NATIVE_PIPELINE_BACKEND=persistence.
type DBProvider string

const (
	DBProviderBolt     DBProvider = "bolt"
	DBProviderPostgres DBProvider = "postgres"
	DBProviderRedis    DBProvider = "redis"
)

// GatewayConfig is the gateway's full runtime configuration, covering every ASHFOX_*
// variable spec.md §6 enumerates plus the additional ones this implementation adds.
type GatewayConfig struct {
	// HTTP/MCP transport
	Port    int
	MCPPath string

	// Upstream/proxy
	GatewayURL string

	// Persistence
	NativePipelineBackend PipelineBackend
	DBProvider            DBProvider
	PostgresDSN           string
	BoltPath              string
	RedisURL              string

	// Session/SSE
	SessionIdleTTL time.Duration
	SSEMaxPerConn  int
	SSEKeepalive   time.Duration

	// Revision store
	RevisionCacheSize int

	// Distributed lock
	LockTTL            time.Duration
	LockAcquireTimeout time.Duration
	LockRetryInterval  time.Duration

	// Observability
	MetricsNamespace string
	TraceLogPath     string
	LogLevel         string
	LogFormat        string

	// Auth (consumed by the external auth collaborator, not implemented here)
	AuthCookieName            string
	AuthTokenTTL              time.Duration
	AuthGitHubScopes          []string
	AuthPostLoginRedirectPath string
}

// Load reads GatewayConfig from the process environment.
func Load() GatewayConfig {
	env := NewEnvConfig("ASHFOX")

	cfg := GatewayConfig{
		Port:    env.GetInt("PORT", 8080),
		MCPPath: env.GetString("MCP_PATH", "/mcp"),

		GatewayURL: env.GetString("GATEWAY_URL", ""),

		NativePipelineBackend: PipelineBackend(env.GetString("NATIVE_PIPELINE_BACKEND", string(PipelineBackendMemory))),
		DBProvider:            DBProvider(env.GetString("DB_PROVIDER", string(DBProviderBolt))),
		PostgresDSN:           env.GetString("POSTGRES_DSN", ""),
		BoltPath:              env.GetString("BOLT_PATH", "./ashfox-pipeline.db"),
		RedisURL:              env.GetString("REDIS_URL", ""),

		SessionIdleTTL: time.Duration(env.GetInt("SESSION_IDLE_TTL_SEC", 1800)) * time.Second,
		SSEMaxPerConn:  env.GetInt("SSE_MAX_PER_SESSION", 3),
		SSEKeepalive:   time.Duration(env.GetInt("SSE_KEEPALIVE_SEC", 15)) * time.Second,

		RevisionCacheSize: env.GetInt("REVISION_CACHE_SIZE", 5),

		LockTTL:            env.GetDurationMS("LOCK_TTL_MS", 2*time.Second),
		LockAcquireTimeout: env.GetDurationMS("LOCK_ACQUIRE_TIMEOUT_MS", 10*time.Second),
		LockRetryInterval:  env.GetDurationMS("LOCK_RETRY_MS", 50*time.Millisecond),

		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "ashfox"),
		TraceLogPath:     env.GetString("TRACE_LOG_PATH", ""),
		LogLevel:         env.GetString("LOG_LEVEL", "info"),
		LogFormat:        env.GetString("LOG_FORMAT", "text"),

		AuthCookieName:            env.GetString("AUTH_COOKIE_NAME", "ashfox_session"),
		AuthTokenTTL:              time.Duration(env.GetInt("AUTH_TOKEN_TTL_SEC", 3600)) * time.Second,
		AuthGitHubScopes:          splitNonEmpty(env.GetString("AUTH_GITHUB_SCOPES", "read:user")),
		AuthPostLoginRedirectPath: env.GetString("AUTH_POST_LOGIN_REDIRECT_PATH", "/"),
	}

	return cfg
}

func splitNonEmpty(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validator accumulates configuration validation errors.
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// RequireString validates that a string field is not empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequireOneOf validates that a value is one of the allowed options.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// RequirePositiveInt validates that an integer field is positive.
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// IsValid returns true if there are no validation errors.
func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

// ErrorString returns all validation errors as a single string.
func (v *Validator) ErrorString() string { return strings.Join(v.errors, "; ") }

// Validate runs validation and returns an error if invalid.
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("configuration validation failed: %s", v.ErrorString())
	}
	return nil
}

// Check validates a loaded GatewayConfig against cross-field requirements (spec.md §6):
// the selected persistence backend must carry the connection info it needs.
func Check(cfg GatewayConfig) error {
	v := NewValidator()

	v.RequirePositiveInt("Port", cfg.Port)
	v.RequireOneOf("NativePipelineBackend", string(cfg.NativePipelineBackend),
		[]string{string(PipelineBackendMemory), string(PipelineBackendPersistence)})

	if cfg.NativePipelineBackend == PipelineBackendPersistence {
		switch cfg.DBProvider {
		case DBProviderPostgres:
			v.RequireString("PostgresDSN", cfg.PostgresDSN)
		case DBProviderRedis:
			v.RequireString("RedisURL", cfg.RedisURL)
		case DBProviderBolt:
			v.RequireString("BoltPath", cfg.BoltPath)
		default:
			v.errors = append(v.errors, fmt.Sprintf("DBProvider must be one of: %s, %s, %s", DBProviderBolt, DBProviderPostgres, DBProviderRedis))
		}
	}

	v.RequireOneOf("LogLevel", cfg.LogLevel, []string{"debug", "info", "warn", "error"})
	v.RequireOneOf("LogFormat", cfg.LogFormat, []string{"text", "json"})

	return v.Validate()
}
