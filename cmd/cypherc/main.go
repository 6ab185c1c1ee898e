// Command cypherc compiles GraphQL-style requests into Cypher statements.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cypherc/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cypherc: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
