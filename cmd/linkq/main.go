// Package main is the entry point for the linkq CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/linkq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
