// Package main provides the entry point for the rune CLI.
package main

import (
	"os"

	"github.com/rune-engine/rune/cmd/rune/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
