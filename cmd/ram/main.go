// Package main provides the entry point for the ram CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/ram/cmd/ram/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
