// FILE: src/cmd/teralog/commands/help.go
package commands

import (
	"fmt"
	"sort"
	"strings"
)

// generalHelpTemplate is the default help message shown when no specific command is requested.
const generalHelpTemplate = `TeraLog: ship application logs to the TeraOps ingestion API.

Usage:
  teralog <command> [options]

Commands:
%s

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - Environment variables use the TERALOG_ prefix (e.g. TERALOG_API_KEY)
  - teralog.toml in the working directory is the primary method

For command-specific help:
  teralog help <command>
  teralog <command> --help

Examples:
  teralog init
  teralog version
`

// HelpCommand shows usage for the CLI or a specific command.
type HelpCommand struct {
	router *CommandRouter
}

// NewHelpCommand creates a new help command handler.
func NewHelpCommand(router *CommandRouter) *HelpCommand {
	return &HelpCommand{router: router}
}

func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 {
		if handler, exists := c.router.GetCommand(args[0]); exists {
			fmt.Print(handler.Help())
			return nil
		}
		return fmt.Errorf("unknown command: %s", args[0])
	}

	names := make([]string, 0, len(c.router.GetCommands()))
	for name := range c.router.GetCommands() {
		names = append(names, name)
	}
	sort.Strings(names)

	var list strings.Builder
	for _, name := range names {
		handler, _ := c.router.GetCommand(name)
		fmt.Fprintf(&list, "  %-10s %s\n", name, handler.Description())
	}

	fmt.Printf(generalHelpTemplate, list.String())
	return nil
}

func (c *HelpCommand) Description() string {
	return "Show help for teralog or a specific command"
}

func (c *HelpCommand) Help() string {
	return `Help Command - Show usage information

Usage:
  teralog help
  teralog help <command>
`
}
