/**
 * Config: loader
 * @description: viper-based YAML loader with environment overrides,
 *               default filling and fail-closed validation
 * @func: LoadConfig, validateConfig, helpers
 */
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// GlobalConfig is the process-wide configuration instance.
	GlobalConfig *Config
)

// LoadConfig reads the configuration file for the given environment and
// applies LEADSYNC_* environment variable overrides.
// configPath: directory holding the config files; empty uses the default.
// env: one of development, test, production; empty is resolved from the
// environment.
func LoadConfig(configPath, env string) (*Config, error) {
	if env == "" {
		env = getEnvFromEnvironment()
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath == "" {
		configPath = getDefaultConfigPath()
	}
	v.SetConfigFile(getConfigFileName(configPath, env))

	v.SetEnvPrefix("LEADSYNC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	GlobalConfig = &config
	return &config, nil
}

// MustLoadConfig loads the configuration and panics on failure.
// Intended for program entry points only.
func MustLoadConfig(configPath, env string) *Config {
	cfg, err := LoadConfig(configPath, env)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// GetConfig returns the global configuration instance.
func GetConfig() *Config {
	return GlobalConfig
}

// getEnvFromEnvironment resolves the environment tag from LEADSYNC_ENV
// or GO_ENV, defaulting to development.
func getEnvFromEnvironment() string {
	env := os.Getenv("LEADSYNC_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development"
	}
	return env
}

// getDefaultConfigPath probes the usual locations for the configs dir.
func getDefaultConfigPath() string {
	candidates := []string{
		"configs",
		"../configs",
		"../../configs",
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "configs"
}

// getConfigFileName maps the environment tag to a config file.
// production and development share config.yaml; test uses config.test.yaml.
func getConfigFileName(configPath, env string) string {
	switch env {
	case "test":
		return filepath.Join(configPath, "config.test.yaml")
	default:
		return filepath.Join(configPath, "config.yaml")
	}
}

// bindEnvironmentVariables binds the settings that come from the
// deployment environment rather than the file. Credentials are expected
// to arrive this way in production.
func bindEnvironmentVariables(v *viper.Viper) {
	bindings := [][2]string{
		{"server.host", "LEADSYNC_SERVER_HOST"},
		{"server.port", "LEADSYNC_SERVER_PORT"},
		{"server.mode", "LEADSYNC_SERVER_MODE"},
		{"database.mysql.host", "LEADSYNC_MYSQL_HOST"},
		{"database.mysql.port", "LEADSYNC_MYSQL_PORT"},
		{"database.mysql.username", "LEADSYNC_MYSQL_USERNAME"},
		{"database.mysql.password", "LEADSYNC_MYSQL_PASSWORD"},
		{"database.mysql.database", "LEADSYNC_MYSQL_DATABASE"},
		{"database.redis.host", "LEADSYNC_REDIS_HOST"},
		{"database.redis.port", "LEADSYNC_REDIS_PORT"},
		{"database.redis.password", "LEADSYNC_REDIS_PASSWORD"},
		{"crm.base_url", "LEADSYNC_CRM_BASE_URL"},
		{"crm.token", "LEADSYNC_CRM_TOKEN"},
		{"sync.token_secret", "LEADSYNC_SYNC_TOKEN_SECRET"},
		{"security.auth.api_key", "LEADSYNC_API_KEY"},
		{"security.auth.webhook_secret", "LEADSYNC_WEBHOOK_SECRET"},
		{"log.level", "LEADSYNC_LOG_LEVEL"},
	}
	for _, b := range bindings {
		_ = v.BindEnv(b[0], b[1])
	}
}

// applyDefaults fills zero-valued tuning knobs with their defaults.
// Credentials are deliberately not defaulted.
func applyDefaults(config *Config) {
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if config.Security.Auth.APIKeyHeader == "" {
		config.Security.Auth.APIKeyHeader = "X-API-Key"
	}
	if config.CRM.RequestTimeout <= 0 {
		config.CRM.RequestTimeout = DefaultRequestTimeout
	}
	if config.CRM.PageDelay <= 0 {
		config.CRM.PageDelay = DefaultPageDelay
	}
	if config.CRM.PageSize <= 0 {
		config.CRM.PageSize = DefaultPageSize
	}
	if config.CRM.MaxRetries <= 0 {
		config.CRM.MaxRetries = 2
	}
	if config.Sync.LoopWindow <= 0 {
		config.Sync.LoopWindow = DefaultLoopWindow
	}
	if config.Sync.TokenTTL <= 0 {
		config.Sync.TokenTTL = DefaultTokenTTL
	}
	if config.Sync.QueueBackoffBase <= 0 {
		config.Sync.QueueBackoffBase = DefaultQueueBackoffBase
	}
	if config.Sync.QueueBackoffMax <= 0 {
		config.Sync.QueueBackoffMax = DefaultQueueBackoffMax
	}
	if config.Sync.QueueMaxAttempts <= 0 {
		config.Sync.QueueMaxAttempts = DefaultQueueMaxAttempts
	}
}

// validateConfig enforces the required settings. Missing CRM credentials
// or signing secrets fail closed with a ConfigError.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Reason: fmt.Sprintf("invalid port %d", config.Server.Port)}
	}
	if config.Database.MySQL.Host == "" {
		return &ConfigError{Field: "database.mysql.host", Reason: "required"}
	}
	if config.Database.MySQL.Database == "" {
		return &ConfigError{Field: "database.mysql.database", Reason: "required"}
	}
	if config.CRM.BaseURL == "" {
		return &ConfigError{Field: "crm.base_url", Reason: "required"}
	}
	if !strings.HasPrefix(config.CRM.BaseURL, "http://") && !strings.HasPrefix(config.CRM.BaseURL, "https://") {
		return &ConfigError{Field: "crm.base_url", Reason: "must be an http(s) URL"}
	}
	if config.CRM.Token == "" {
		return &ConfigError{Field: "crm.token", Reason: "required, no default"}
	}
	if config.Sync.TokenSecret == "" {
		return &ConfigError{Field: "sync.token_secret", Reason: "required, no default"}
	}
	switch config.Server.Mode {
	case "debug", "release", "test":
	default:
		return &ConfigError{Field: "server.mode", Reason: fmt.Sprintf("unknown mode %q", config.Server.Mode)}
	}
	return nil
}

// Environment helpers.

// GetEnv returns the current environment tag.
func GetEnv() string {
	return getEnvFromEnvironment()
}

// IsDevelopment reports whether the service runs in development mode.
func IsDevelopment() bool {
	return GetEnv() == "development"
}

// IsProduction reports whether the service runs in production mode.
func IsProduction() bool {
	return GetEnv() == "production"
}

// IsTest reports whether the service runs under tests.
func IsTest() bool {
	return GetEnv() == "test"
}
