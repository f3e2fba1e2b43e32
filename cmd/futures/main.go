package main

import (
	"os"

	"github.com/wonny/futures/backend/cmd/futures/commands"
)

// main is the entry point for the futures CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/futures [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
