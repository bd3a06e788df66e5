// FILE: src/internal/exporter/logger.go
package exporter

import (
	"fmt"
	"strings"

	"teralog/src/internal/config"

	"github.com/lixenwraith/log"
)

// newLogger builds the SDK's internal diagnostic logger from the
// config's logging section. Debug mode forces debug level regardless of
// the configured level.
func newLogger(cfg *config.Config) (*log.Logger, error) {
	logger := log.NewLogger()

	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = config.DefaultLogConfig()
	}

	var configArgs []string

	if logCfg.Output == "none" {
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_console=false",
			"level=255")
		return logger, logger.ApplyConfigString(configArgs...)
	}

	level := logCfg.Level
	if cfg.Debug {
		level = "debug"
	}
	levelValue, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}

	configArgs = append(configArgs,
		fmt.Sprintf("level=%d", levelValue),
		"disable_file=true",
		"enable_console=true",
		fmt.Sprintf("console_target=%s", logCfg.Output))

	return logger, logger.ApplyConfigString(configArgs...)
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info", "":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
