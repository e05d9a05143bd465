// Package main provides the entry point for the amanjournal CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/amanjournal/cmd/amanjournal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
