// Package main is the entry point for the alertctl CLI tool.
package main

import (
	"os"

	"github.com/gridwatch/alertflow/cmd/alertctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
