// FILE: src/teralog/teralog.go

// Package teralog is the public surface of the SDK. Consumers import
// only this package; the pipeline stages live under src/internal and
// are re-exported here.
package teralog

import (
	"teralog/src/internal/config"
	"teralog/src/internal/exporter"

	"github.com/lixenwraith/log"
)

type (
	Exporter    = exporter.Exporter
	LogItem     = exporter.LogItem
	Result      = exporter.Result
	BatchReport = exporter.BatchReport
	SkipReason  = exporter.SkipReason
	Config      = config.Config
	LogConfig   = config.LogConfig
)

const (
	ResultSuccess = exporter.ResultSuccess
	ResultFailure = exporter.ResultFailure
)

// NewConfig returns the default configuration overlaid with the given
// endpoint and key, validated and ready for New.
func NewConfig(apiURL, apiKey string) (*Config, error) {
	return config.Load(apiURL, apiKey)
}

// LoadConfig loads configuration with precedence CLI args > TERALOG_*
// environment > teralog.toml > defaults.
func LoadConfig(cliArgs []string) (*Config, error) {
	return config.LoadWithCLI(cliArgs)
}

// New wires the pipeline and starts the background flush loop. An
// explicitly rejected API key fails construction; an unreachable
// endpoint does not.
func New(cfg *Config) (*Exporter, error) {
	return exporter.New(cfg, nil)
}

// NewWithLogger is New with a caller-supplied logger instead of one
// built from the config's logging section.
func NewWithLogger(cfg *Config, logger *log.Logger) (*Exporter, error) {
	return exporter.New(cfg, logger)
}

// Attach is the one-call setup: default configuration with the given
// credentials, exporter started. Callers must Shutdown the returned
// exporter to flush buffered records.
func Attach(apiURL, apiKey string) (*Exporter, error) {
	cfg, err := config.Load(apiURL, apiKey)
	if err != nil {
		return nil, err
	}
	return exporter.New(cfg, nil)
}
