// FILE: src/cmd/teralog/main.go
package main

import (
	"fmt"
	"os"

	"teralog/src/cmd/teralog/commands"
)

func main() {
	router := commands.NewCommandRouter()

	handled, err := router.Route(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if handled {
		return
	}

	// No command given: show usage
	fmt.Fprintln(os.Stderr, "Usage: teralog <command> [options]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	router.ShowCommands()
	os.Exit(1)
}
