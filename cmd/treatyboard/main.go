// Command treatyboard is the reporting command line.
package main

import (
	"os"

	"github.com/turtacn/TreatyBoard/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(cli.DefaultServiceFactory); err != nil {
		os.Exit(1)
	}
}
