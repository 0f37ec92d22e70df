// Package main is the pantry CLI entry point.
package main

import (
	"os"

	"github.com/pantrylab/pantry/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
