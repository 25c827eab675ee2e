// ./main.go
package main

import (
	"github.com/procdoc-lab/cua-cli/cmd"
)

// main is the entry point for the cua-cli application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
