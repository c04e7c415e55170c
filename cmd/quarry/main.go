// Package main provides the entry point for the quarry CLI.
package main

import (
	"fmt"
	"os"

	"github.com/quarry-ai/quarry/cmd/quarry/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
