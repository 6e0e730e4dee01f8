package main

import (
	"os"

	"github.com/wonny/stockcast/cmd/stockcast/commands"
)

// main is the entry point for the stockcast CLI
// ⭐ Single CLI entry point: go run ./cmd/stockcast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
