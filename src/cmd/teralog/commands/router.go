// FILE: src/cmd/teralog/commands/router.go
package commands

import (
	"fmt"
	"os"
)

// Handler defines the interface required for all subcommands.
type Handler interface {
	Execute(args []string) error
	Description() string
	Help() string
}

// CommandRouter handles the routing of CLI arguments to the appropriate subcommand handler.
type CommandRouter struct {
	commands map[string]Handler
}

// NewCommandRouter creates and initializes the command router with all available commands.
func NewCommandRouter() *CommandRouter {
	router := &CommandRouter{
		commands: make(map[string]Handler),
	}

	// Register available commands
	router.commands["init"] = NewInitCommand()
	router.commands["version"] = NewVersionCommand()
	router.commands["help"] = NewHelpCommand(router)

	return router
}

// Route checks for and executes a subcommand based on the provided CLI arguments.
func (r *CommandRouter) Route(args []string) (bool, error) {
	if len(args) < 2 {
		return false, nil // No command specified, let main decide
	}

	cmdName := args[1]

	// Special case: help flag at any position shows general help
	for _, arg := range args[1:] {
		if arg == "-h" || arg == "--help" {
			// If it's after a valid command, show command-specific help
			if handler, exists := r.commands[cmdName]; exists && cmdName != "help" {
				fmt.Print(handler.Help())
				return true, nil
			}
			return true, r.commands["help"].Execute(nil)
		}
	}

	if cmdName == "-v" || cmdName == "--version" {
		return true, r.commands["version"].Execute(nil)
	}

	handler, exists := r.commands[cmdName]
	if !exists {
		if cmdName[0] != '-' {
			return false, fmt.Errorf("unknown command: %s\n\nRun 'teralog help' for usage", cmdName)
		}
		return false, nil
	}

	return true, handler.Execute(args[2:])
}

// GetCommand returns a specific command handler by its name.
func (r *CommandRouter) GetCommand(name string) (Handler, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommands returns a map of all registered commands.
func (r *CommandRouter) GetCommands() map[string]Handler {
	return r.commands
}

// ShowCommands displays a list of available subcommands to stderr.
func (r *CommandRouter) ShowCommands() {
	for name, handler := range r.commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, handler.Description())
	}
	fmt.Fprintln(os.Stderr, "\nUse 'teralog <command> --help' for command-specific help")
}
