// Package main is the entry point for the subdigest CLI
package main

import (
	"os"

	"github.com/gaurav-prasanna/subdigest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
