package main

import (
	"os"

	"github.com/finch-money/finch/internal/commands"
)

// version is set by the linker at release time.
var version = "dev"

func main() {
	if err := commands.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
