// FILE: src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

// GetConfigPath resolves the config file location: TERALOG_CONFIG_FILE
// wins, then teralog.toml in the working directory.
func GetConfigPath() string {
	if path := os.Getenv("TERALOG_CONFIG_FILE"); path != "" {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "teralog.toml"
	}
	return filepath.Join(cwd, "teralog.toml")
}

// LoadWithCLI loads configuration with precedence CLI > env > file >
// defaults. A missing config file is not an error; env and defaults
// still apply.
func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("TERALOG_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.Validate()
}

// Load returns the defaults overlaid with the given base URL and key,
// for programmatic embedding without a config file.
func Load(apiURL, apiKey string) (*Config, error) {
	cfg := defaults()
	cfg.APIURL = apiURL
	cfg.APIKey = apiKey
	return cfg, cfg.Validate()
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "TERALOG_" + env
	return env
}
