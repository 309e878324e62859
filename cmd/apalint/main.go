// Package main provides the apalint command.
package main

import (
	"os"

	"github.com/leapstack-labs/apalint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
