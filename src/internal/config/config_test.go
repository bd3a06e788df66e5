// FILE: src/internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("FillsDefaults", func(t *testing.T) {
		cfg := &Config{APIURL: "https://api.example.com", APIKey: "k"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "otel", cfg.LogType)
		assert.EqualValues(t, 10, cfg.TimeoutSeconds)
		assert.EqualValues(t, 30, cfg.FlushIntervalSeconds)
		assert.EqualValues(t, 10000, cfg.MaxBufferSize)
		assert.EqualValues(t, 3, cfg.MaxRetries)
	})

	t.Run("TrimsTrailingSlash", func(t *testing.T) {
		cfg := &Config{APIURL: "https://api.example.com/", APIKey: "k"}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://api.example.com", cfg.APIURL)
	})

	t.Run("MissingURL", func(t *testing.T) {
		cfg := &Config{APIKey: "k"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_url")
	})

	t.Run("MissingKey", func(t *testing.T) {
		cfg := &Config{APIURL: "https://api.example.com"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key")
	})

	t.Run("RejectsNonHTTPScheme", func(t *testing.T) {
		cfg := &Config{APIURL: "ftp://api.example.com", APIKey: "k"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("ClampsNonPositiveNumbers", func(t *testing.T) {
		cfg := &Config{
			APIURL:         "http://localhost:8080",
			APIKey:         "k",
			TimeoutSeconds: -1,
			MaxBufferSize:  0,
			MaxRetries:     -5,
		}
		require.NoError(t, cfg.Validate())
		assert.EqualValues(t, 10, cfg.TimeoutSeconds)
		assert.EqualValues(t, 10000, cfg.MaxBufferSize)
		assert.EqualValues(t, 3, cfg.MaxRetries)
	})

	t.Run("InvalidLogOutput", func(t *testing.T) {
		cfg := &Config{
			APIURL:  "http://localhost",
			APIKey:  "k",
			Logging: &LogConfig{Output: "syslog"},
		}
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	cfg, err := Load("https://api.example.com/", "secret")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.True(t, cfg.ValidateAPIKey)
}
