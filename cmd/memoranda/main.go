// Package main provides the entry point for the memoranda CLI.
package main

import (
	"os"

	"github.com/openclaw/memoranda/cmd/memoranda/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
