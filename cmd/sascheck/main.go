package main

import (
	"os"

	"sascheck/cmd/sascheck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
