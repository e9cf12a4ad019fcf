package main

import (
	"os"

	"charsmith/cmd/charsheet/commands"
)

// set during build
var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersionInfo(version, commit)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
