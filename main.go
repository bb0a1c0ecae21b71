// mb is the CLI for microbeads, a git-backed issue tracker that stores
// issues as JSON files on a dedicated branch.
package main

import (
	"fmt"
	"os"

	"microbeads/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
