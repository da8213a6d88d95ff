// Package config provides configuration loading from environment variables
// and the optional tenants file.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/seclens/edrsearch-mcp/pkg/edr"
)

// Poll and pagination defaults, matching the executor's own.
const (
	DefaultPollIntervalMs  = 5000
	DefaultPollMaxAttempts = 60
)

// Tool output defaults
const (
	DefaultToolMaxRecordsValue = 100
	DefaultAlertLimitValue     = 100
)

// Config holds all configuration for the MCP server.
type Config struct {
	BaseURL        string        // EDR_BASE_URL, default edr.DefaultBaseURL
	EnvPrefix      string        // EDR_ENV_PREFIX, default "EDR" (credential variable prefix)
	DefaultTenant  string        // EDR_DEFAULT_TENANT, default "" (tenant used when a tool omits tenant_code)
	RequestTimeout time.Duration // EDR_HTTP_TIMEOUT_MS, default 30000ms

	// Search defaults
	SearchRepository string        // EDR_SEARCH_REPOSITORY, default "search-all"
	SearchStart      string        // EDR_SEARCH_START, default "15m"
	PollInterval     time.Duration // EDR_POLL_INTERVAL_MS, default 5000ms
	PollMaxAttempts  int           // EDR_POLL_MAX_ATTEMPTS, default 60

	// Tool output limits
	ToolMaxRecords     int // EDR_TOOL_MAX_RECORDS, default 100
	DefaultAlertLimit  int // EDR_DEFAULT_ALERT_LIMIT, default 100
	AlertCacheMaxItems int // EDR_ALERT_CACHE_MAX_ITEMS, default 512

	// Multi-tenant setup
	TenantsFile string // EDR_TENANTS_FILE, default "" (env-only tenants)

	// Operational listener (metrics + health); empty disables it
	OpsListenAddr string // EDR_OPS_ADDR, default ""

	// Logging configuration
	LogLevel      string // EDR_LOG_LEVEL, default "info"
	LogFile       string // EDR_LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // EDR_LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // EDR_LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // EDR_LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // EDR_LOG_COMPRESS, default true
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		BaseURL:        getEnvString("EDR_BASE_URL", edr.DefaultBaseURL),
		EnvPrefix:      getEnvString("EDR_ENV_PREFIX", "EDR"),
		DefaultTenant:  getEnvString("EDR_DEFAULT_TENANT", ""),
		RequestTimeout: getEnvDurationMs("EDR_HTTP_TIMEOUT_MS", 30000),

		SearchRepository: getEnvString("EDR_SEARCH_REPOSITORY", edr.DefaultRepository),
		SearchStart:      getEnvString("EDR_SEARCH_START", edr.DefaultStart),
		PollInterval:     getEnvDurationMs("EDR_POLL_INTERVAL_MS", DefaultPollIntervalMs),
		PollMaxAttempts:  getEnvInt("EDR_POLL_MAX_ATTEMPTS", DefaultPollMaxAttempts),

		ToolMaxRecords:     getEnvInt("EDR_TOOL_MAX_RECORDS", DefaultToolMaxRecordsValue),
		DefaultAlertLimit:  getEnvInt("EDR_DEFAULT_ALERT_LIMIT", DefaultAlertLimitValue),
		AlertCacheMaxItems: getEnvInt("EDR_ALERT_CACHE_MAX_ITEMS", 512),

		TenantsFile: getEnvString("EDR_TENANTS_FILE", ""),

		OpsListenAddr: getEnvString("EDR_OPS_ADDR", ""),

		LogLevel:      getEnvString("EDR_LOG_LEVEL", "info"),
		LogFile:       getEnvString("EDR_LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("EDR_LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("EDR_LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("EDR_LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("EDR_LOG_COMPRESS", true),
	}
}

// SearchOptions returns the executor options implied by the configured
// defaults.
func (c *Config) SearchOptions() edr.SearchOptions {
	return edr.SearchOptions{
		Repository:  c.SearchRepository,
		Start:       c.SearchStart,
		Interval:    c.PollInterval,
		MaxAttempts: c.PollMaxAttempts,
	}
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}
