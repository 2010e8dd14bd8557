package main

import (
	"os"

	"github.com/recondash-dev/recondash/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
