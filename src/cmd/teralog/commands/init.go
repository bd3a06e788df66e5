// FILE: src/cmd/teralog/commands/init.go
package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"
)

const configTemplate = `# TeraLog configuration
# Values here are overridden by TERALOG_* environment variables and CLI flags.

api_url = "%s"
# api_key is best kept out of this file; set TERALOG_API_KEY instead.
log_type = "otel"
timeout_seconds = 10
flush_interval_seconds = 30
max_buffer_size = 10000
max_retries = 3
validate_api_key = true

[logging]
output = "stderr"
level = "info"
`

const envExample = `TERALOG_API_URL=your_teraops_api_url_here
TERALOG_API_KEY=your_teraops_api_key_here
`

const setupGuide = `# TeraLog - Setup Guide

## Step 1: Set your credentials

Copy ` + "`.env.example`" + ` to ` + "`.env`" + ` and fill in the values TeraOps
gave you on signup, or export them in your environment:

` + "```env" + `
TERALOG_API_URL=your_teraops_api_url_here
TERALOG_API_KEY=your_teraops_api_key_here
` + "```" + `

## Step 2: Attach the exporter in your application

` + "```go" + `
import "teralog/src/teralog"

ex, err := teralog.Attach(os.Getenv("TERALOG_API_URL"), os.Getenv("TERALOG_API_KEY"))
if err != nil {
    // handle startup error (invalid API key fails here)
}
defer ex.Shutdown()
` + "```" + `

For full control build the configuration yourself:

` + "```go" + `
cfg, err := teralog.NewConfig(apiURL, apiKey)
// adjust cfg fields, then
ex, err := teralog.New(cfg)
` + "```" + `

Hand your telemetry framework's log records to ` + "`ex.Export(items)`" + `.
Everything else is automatic:

- Logs are buffered and sent in batches
- Secrets are redacted before sending
- System info (hostname, pid, etc.) is auto-enriched
- Oversized messages are truncated
- If the API is down, logs spill to disk and are recovered later

## Step 3 (optional): Tune via teralog.toml

The generated ` + "`teralog.toml`" + ` documents every knob. Environment
variables with the ` + "`TERALOG_`" + ` prefix override the file.
`

// InitCommand scaffolds TeraLog configuration into the current project.
type InitCommand struct {
	output io.Writer
	errOut io.Writer
}

// NewInitCommand creates a new init command handler.
func NewInitCommand() *InitCommand {
	return &InitCommand{
		output: os.Stdout,
		errOut: os.Stderr,
	}
}

func (c *InitCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("init", flag.ContinueOnError)
	cmd.SetOutput(c.errOut)

	var (
		apiURL   = cmd.String("url", "https://back-poc.teraops.ai", "TeraOps API base URL")
		noPrompt = cmd.Bool("no-prompt", false, "Do not prompt for the API key")
		dir      = cmd.String("dir", ".", "Target project directory")
	)
	if err := cmd.Parse(args); err != nil {
		return err
	}

	configPath := filepath.Join(*dir, "teralog.toml")
	envPath := filepath.Join(*dir, ".env.example")
	guidePath := filepath.Join(*dir, "TERALOG_SETUP.md")

	// Refuse to clobber an existing setup
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists; remove it first to reinitialize", configPath)
	}

	if err := os.WriteFile(configPath, []byte(fmt.Sprintf(configTemplate, *apiURL)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envContent := envExample
		if !*noPrompt {
			if key := c.promptForKey(); key != "" {
				envContent = fmt.Sprintf("TERALOG_API_URL=%s\nTERALOG_API_KEY=%s\n", *apiURL, key)
			}
		}
		if err := os.WriteFile(envPath, []byte(envContent), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", envPath, err)
		}
	}

	if err := os.WriteFile(guidePath, []byte(setupGuide), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", guidePath, err)
	}

	fmt.Fprintln(c.output, "Created:")
	fmt.Fprintf(c.output, "  %s\n", configPath)
	fmt.Fprintf(c.output, "  %s\n", envPath)
	fmt.Fprintf(c.output, "  %s\n", guidePath)
	fmt.Fprintln(c.output, "\nNext: read TERALOG_SETUP.md")
	return nil
}

// promptForKey reads the API key without echoing it. Returns empty when
// stdin is not a terminal or the user just presses enter.
func (c *InitCommand) promptForKey() string {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return ""
	}

	fmt.Fprint(c.output, "TeraOps API key (enter to skip): ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(c.output)
	if err != nil {
		fmt.Fprintf(c.errOut, "Could not read key: %v\n", err)
		return ""
	}
	return strings.TrimSpace(string(key))
}

func (c *InitCommand) Description() string {
	return "Scaffold TeraLog config and setup guide into a project"
}

func (c *InitCommand) Help() string {
	return `Init Command - Scaffold TeraLog into your project

Creates teralog.toml, .env.example and TERALOG_SETUP.md in the target
directory and optionally prompts for your API key (input is not echoed).
Existing files are never overwritten.

Usage:
  teralog init [options]

Options:
  --url <url>       TeraOps API base URL (default: https://back-poc.teraops.ai)
  --dir <path>      Target project directory (default: current directory)
  --no-prompt       Do not prompt for the API key
`
}
