// FILE: src/internal/config/config.go
package config

import (
	"fmt"
	"strings"
)

// Config is the full configuration surface of the exporter. Embedders
// usually fill only APIURL and APIKey; everything else has a working
// default.
type Config struct {
	// TeraOps API base URL, e.g. "https://back-poc.teraops.ai"
	APIURL string `toml:"api_url"`

	// API key issued on signup, sent as a bearer token
	APIKey string `toml:"api_key"`

	// Log type identifier sent in the X-Log-Type header
	LogType string `toml:"log_type"`

	// HTTP request timeout in seconds
	TimeoutSeconds int64 `toml:"timeout_seconds"`

	// Seconds between background flushes
	FlushIntervalSeconds int64 `toml:"flush_interval_seconds"`

	// When true, payloads carry historical_data=true
	LiveLogs bool `toml:"live_logs"`

	// Maximum records held in the memory buffer
	MaxBufferSize int64 `toml:"max_buffer_size"`

	// Delivery attempts per chunk before spilling to disk
	MaxRetries int64 `toml:"max_retries"`

	// Raises internal SDK logging to debug level
	Debug bool `toml:"debug"`

	// Sends browser-shaped headers for endpoints behind bot mitigation
	BrowserHeaders bool `toml:"browser_headers"`

	// Probes the API key with an empty batch on startup
	ValidateAPIKey bool `toml:"validate_api_key"`

	// Directory for spillover files; empty means the system temp dir
	SpilloverDir string `toml:"spillover_dir"`

	// Outbound requests per second, 0 disables rate limiting
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`

	Logging *LogConfig `toml:"logging"`
}

func defaults() *Config {
	return &Config{
		APIURL:               "https://back-poc.teraops.ai",
		LogType:              "otel",
		TimeoutSeconds:       10,
		FlushIntervalSeconds: 30,
		MaxBufferSize:        10000,
		MaxRetries:           3,
		ValidateAPIKey:       true,
		Logging:              DefaultLogConfig(),
	}
}

// Validate normalizes the configuration and rejects values the pipeline
// cannot run with. Non-positive numeric fields fall back to defaults
// rather than erroring, matching the forgiving producer-facing contract.
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url must start with http:// or https://, got '%s'", c.APIURL)
	}

	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}

	if c.LogType == "" {
		c.LogType = "otel"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.FlushIntervalSeconds <= 0 {
		c.FlushIntervalSeconds = 30
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = 10000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RateLimitPerSec < 0 {
		c.RateLimitPerSec = 0
	}

	if c.Logging != nil {
		if err := validateLogConfig(c.Logging); err != nil {
			return err
		}
	}

	return nil
}
