// Command statepick compiles machine definitions, resolves priority
// orders and runs scenario scripts against the selection engine.
package main

import (
	"fmt"
	"os"

	"github.com/dhowell/statepick/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
