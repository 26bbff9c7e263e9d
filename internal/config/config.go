/**
 * Config: application configuration model
 * @description: typed configuration for the lead synchronization service;
 *               top-level fields mirror the first-level keys of the YAML file
 * @func: Config and section structs, ConfigError
 */
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`     // HTTP server settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"` // MySQL and Redis settings
	Log      LogConfig      `yaml:"log" mapstructure:"log"`           // logging settings
	Security SecurityConfig `yaml:"security" mapstructure:"security"` // auth, CORS, rate limit
	CRM      CRMConfig      `yaml:"crm" mapstructure:"crm"`           // external CRM endpoint
	Sync     SyncConfig     `yaml:"sync" mapstructure:"sync"`         // synchronization engine tuning
	App      AppConfig      `yaml:"app" mapstructure:"app"`           // application metadata
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	Mode           string        `yaml:"mode" mapstructure:"mode"` // debug, release, test
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" mapstructure:"max_header_bytes"`
}

// DatabaseConfig groups the two backing stores.
type DatabaseConfig struct {
	MySQL MySQLConfig `yaml:"mysql" mapstructure:"mysql"`
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	Username        string        `yaml:"username" mapstructure:"username"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	Charset         string        `yaml:"charset" mapstructure:"charset"`
	ParseTime       bool          `yaml:"parse_time" mapstructure:"parse_time"`
	Loc             string        `yaml:"loc" mapstructure:"loc"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	LogLevel        string        `yaml:"log_level" mapstructure:"log_level"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	Database     int           `yaml:"database" mapstructure:"database"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" mapstructure:"pool_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"` // json, text
	Output     string `yaml:"output" mapstructure:"output"` // stdout, stderr, file
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB per file
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Caller     bool   `yaml:"caller" mapstructure:"caller"`
}

// SecurityConfig groups auth and transport protection settings.
type SecurityConfig struct {
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// AuthConfig configures API-key auth on mutating routes and the
// shared secret expected on inbound webhooks.
type AuthConfig struct {
	APIKey        string   `yaml:"api_key" mapstructure:"api_key"`
	APIKeyHeader  string   `yaml:"api_key_header" mapstructure:"api_key_header"`
	WebhookSecret string   `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	SkipPaths     []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled" mapstructure:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Rate    int  `yaml:"rate" mapstructure:"rate"`   // tokens per second
	Burst   int  `yaml:"burst" mapstructure:"burst"` // bucket capacity
}

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	EnableRequestLog bool          `yaml:"enable_request_log" mapstructure:"enable_request_log"`
	LogRequestBody   bool          `yaml:"log_request_body" mapstructure:"log_request_body"`
	SlowThreshold    time.Duration `yaml:"slow_threshold" mapstructure:"slow_threshold"`
}

// CRMConfig holds the external CRM endpoint settings.
// BaseURL and Token are required; missing values fail closed at startup.
type CRMConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Token          string        `yaml:"token" mapstructure:"token"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	PageDelay      time.Duration `yaml:"page_delay" mapstructure:"page_delay"` // inter-page pause during sweeps
	PageSize       int           `yaml:"page_size" mapstructure:"page_size"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// SyncConfig tunes the synchronization engine.
type SyncConfig struct {
	LoopWindow       time.Duration `yaml:"loop_window" mapstructure:"loop_window"`     // echo suppression window
	TokenSecret      string        `yaml:"token_secret" mapstructure:"token_secret"`   // signing key for echo write-tokens
	TokenTTL         time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`         // outstanding token lifetime
	AtomicBatch      bool          `yaml:"atomic_batch" mapstructure:"atomic_batch"`   // allow the stored-procedure batch path
	QueueBackoffBase time.Duration `yaml:"queue_backoff_base" mapstructure:"queue_backoff_base"`
	QueueBackoffMax  time.Duration `yaml:"queue_backoff_max" mapstructure:"queue_backoff_max"`
	QueueMaxAttempts int           `yaml:"queue_max_attempts" mapstructure:"queue_max_attempts"`
	OutboxInterval   time.Duration `yaml:"outbox_interval" mapstructure:"outbox_interval"` // outbox drain period
	QueueInterval    time.Duration `yaml:"queue_interval" mapstructure:"queue_interval"`   // queue replay period
	HealthCron       string        `yaml:"health_cron" mapstructure:"health_cron"`         // cron spec, blank disables
	PipelineCron     string        `yaml:"pipeline_cron" mapstructure:"pipeline_cron"`     // cron spec, blank disables
}

// AppConfig holds application metadata.
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
}

// ConfigError reports a missing or invalid required setting.
// Credentials never fall back to a built-in default; the service
// refuses to start instead.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// Defaults applied by the loader when a field is left zero.
const (
	DefaultLoopWindow       = 60 * time.Second
	DefaultTokenTTL         = 5 * time.Minute
	DefaultPageDelay        = 100 * time.Millisecond
	DefaultRequestTimeout   = 15 * time.Second
	DefaultPageSize         = 50
	DefaultQueueBackoffBase = 30 * time.Second
	DefaultQueueBackoffMax  = 30 * time.Minute
	DefaultQueueMaxAttempts = 5
)
